package refine

import (
	"context"
	"errors"
	"testing"

	"videogen/internal/llm"
)

type staticCompleter struct {
	response string
	err      error
}

func (s *staticCompleter) Complete(ctx context.Context, req llm.CompleteRequest) (string, error) {
	return s.response, s.err
}

func TestAnalyzeParsesWrappedJSON(t *testing.T) {
	r := NewRefiner(&staticCompleter{response: "Here is the analysis:\n" +
		`{"intent":"create_video","topic":"nature","emotions":["peaceful"],"style":"Cinematic","elements":["mountains"],"motion":"slow_pan"}` +
		"\nHope that helps!"})

	analysis, err := r.Analyze(context.Background(), "mountains at dawn", nil)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Intent != "create_video" || analysis.Topic != "nature" {
		t.Errorf("analysis = %+v", analysis)
	}
	if analysis.Motion != "slow_pan" {
		t.Errorf("motion = %q", analysis.Motion)
	}
}

func TestAnalyzeDefaultsOnError(t *testing.T) {
	r := NewRefiner(&staticCompleter{err: errors.New("model offline")})

	analysis, err := r.Analyze(context.Background(), "mountains", nil)
	if err == nil {
		t.Fatal("expected error to surface")
	}
	if analysis.Intent != "generate_video" || analysis.Style != "Cinematic" {
		t.Errorf("default analysis = %+v", analysis)
	}
}

func TestGenerateConfigKeepsOriginalPromptOnFailure(t *testing.T) {
	r := NewRefiner(&staticCompleter{response: "not json at all"})

	cfg, err := r.GenerateConfig(context.Background(), defaultAnalysis(), "a fox at dawn", nil)
	if err == nil {
		t.Fatal("expected parse error to surface")
	}
	if cfg.Prompt != "a fox at dawn" {
		t.Errorf("prompt = %q", cfg.Prompt)
	}
	if cfg.FPS != 24 {
		t.Errorf("fps = %d", cfg.FPS)
	}
}

func TestRefineToJSONFixedFallback(t *testing.T) {
	r := NewRefiner(&staticCompleter{err: errors.New("model offline")})

	cfg := r.RefineToJSON(context.Background(), "a fox", nil)
	if cfg.Prompt != "a fox" {
		t.Errorf("prompt = %q", cfg.Prompt)
	}
	if cfg.NegativePrompt != "blurry, low quality, distorted" {
		t.Errorf("negative prompt = %q", cfg.NegativePrompt)
	}
	if cfg.Style != "Cinematic" || cfg.FPS != 24 || cfg.NumSteps != 30 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestRefineToJSONParsesModelConfig(t *testing.T) {
	r := NewRefiner(&staticCompleter{response: `{"prompt":"a majestic fox","fps":30,"num_inference_steps":40,"style":"Anime"}`})

	cfg := r.RefineToJSON(context.Background(), "a fox", nil)
	if cfg.Prompt != "a majestic fox" {
		t.Errorf("prompt = %q", cfg.Prompt)
	}
	if cfg.FPS != 30 || cfg.NumSteps != 40 || cfg.Style != "Anime" {
		t.Errorf("config = %+v", cfg)
	}
}
