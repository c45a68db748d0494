// Package refine augments a raw prompt with a structured analysis and an
// enhanced generation configuration. All methods degrade to fixed defaults
// when the hosted model is unavailable, so the caller never loses the
// original prompt.
package refine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"videogen/internal/llm"
)

// Analysis is the structured read of a prompt.
type Analysis struct {
	Intent   string   `json:"intent"`
	Topic    string   `json:"topic"`
	Emotions []string `json:"emotions"`
	Style    string   `json:"style"`
	Elements []string `json:"elements"`
	Motion   string   `json:"motion"`
}

// Config is the enhanced generation configuration derived from an analysis.
type Config struct {
	Prompt          string  `json:"prompt"`
	NegativePrompt  string  `json:"negative_prompt"`
	Style           string  `json:"style"`
	FPS             int     `json:"fps"`
	DurationSeconds float64 `json:"duration_seconds"`
	NumSteps        int     `json:"num_inference_steps"`
	CameraMotion    string  `json:"camera_motion,omitempty"`
	Lighting        string  `json:"lighting,omitempty"`
	ColorPalette    string  `json:"color_palette,omitempty"`
}

// Completer is the slice of the llm client the refiner needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompleteRequest) (string, error)
}

// Refiner runs prompt analysis and enhancement against a hosted model.
type Refiner struct {
	client Completer
}

func NewRefiner(client Completer) *Refiner {
	return &Refiner{client: client}
}

// Analyze extracts intent, topic and emotions from a prompt. On any failure
// a neutral default analysis is returned along with the error.
func (r *Refiner) Analyze(ctx context.Context, text string, onProgress func(string)) (Analysis, error) {
	progress(onProgress, "Analyzing prompt...")

	system := `You are an expert at analyzing video generation prompts.
Analyze the user's request and extract structured information.
Always respond with valid JSON only.`

	user := fmt.Sprintf(`Analyze this video generation prompt and extract:
- intent: What the user wants (e.g., "create_video", "generate_scene", "animate")
- topic: Main subject/theme (e.g., "nature", "technology", "emotions")
- emotions: List of emotions conveyed (e.g., ["peaceful", "exciting", "mysterious"])
- style: Visual style recommendation (e.g., "Cinematic", "Anime", "Documentary", "Abstract")
- elements: Key visual elements to include (e.g., ["mountains", "sunset", "birds"])
- motion: Suggested camera/motion type (e.g., "slow_pan", "zoom_in", "tracking", "static")

User prompt: %q

Respond with ONLY valid JSON:`, text)

	response, err := r.client.Complete(ctx, llm.CompleteRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   500,
		Temperature: 0.3,
	})
	if err != nil {
		return defaultAnalysis(), err
	}

	var analysis Analysis
	if err := json.Unmarshal(extractJSON(response), &analysis); err != nil {
		return defaultAnalysis(), fmt.Errorf("parse analysis: %w", err)
	}

	progress(onProgress, "Analysis complete!")
	return analysis, nil
}

// GenerateConfig turns an analysis into an enhanced generation config. On
// failure the original prompt is carried into a fixed default config.
func (r *Refiner) GenerateConfig(ctx context.Context, analysis Analysis, originalPrompt string, onProgress func(string)) (Config, error) {
	progress(onProgress, "Generating enhanced video prompt...")

	system := `You are an expert at creating detailed prompts for AI video generation.
Create rich, visual descriptions that will produce high-quality videos.
Always respond with valid JSON only.`

	analysisJSON, _ := json.Marshal(analysis)
	user := fmt.Sprintf(`Based on this analysis and original prompt, create an enhanced video generation configuration:

Original prompt: %q
Analysis: %s

Create a JSON with:
- prompt: A detailed, visual description for the video (2-3 sentences, rich in visual detail)
- negative_prompt: Things to avoid (e.g., "blurry, distorted, low quality, text, watermark")
- style: Visual style from the analysis
- fps: Recommended frame rate (8-24 based on content type)
- duration_seconds: Suggested duration (2-8 seconds)
- camera_motion: Suggested camera movement
- lighting: Lighting recommendation
- color_palette: Color scheme suggestion

Respond with ONLY valid JSON:`, originalPrompt, analysisJSON)

	response, err := r.client.Complete(ctx, llm.CompleteRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   600,
		Temperature: 0.5,
	})
	if err != nil {
		return defaultConfig(originalPrompt, analysis), err
	}

	var config Config
	if err := json.Unmarshal(extractJSON(response), &config); err != nil {
		return defaultConfig(originalPrompt, analysis), fmt.Errorf("parse config: %w", err)
	}
	if config.Prompt == "" {
		config.Prompt = originalPrompt
	}

	progress(onProgress, "Enhanced prompt ready!")
	return config, nil
}

// RefineToJSON is the legacy single-shot refinement path, used when the
// analysis pipeline fails. It may itself fail silently: the returned config
// is always usable.
func (r *Refiner) RefineToJSON(ctx context.Context, prompt string, onProgress func(string)) Config {
	progress(onProgress, "Analyzing prompt for structure...")

	system := `You are an AI video generation expert.
Convert the user's request into a structured JSON for a video generation model.
Analyze the prompt to determine the best settings (style, fps, etc).
Return ONLY valid JSON.`

	user := fmt.Sprintf(`Input: %q

Create a JSON object with these fields:
- prompt: A highly detailed, visual description for the video (2-3 sentences).
- negative_prompt: Things to avoid (e.g. "blurry, distorted").
- style: The visual style (e.g. "Cinematic", "Anime", "Realistic", "3D Render").
- fps: Best frame rate (e.g. 24 for cinematic, 60 for smooth).
- num_inference_steps: Quality steps (20-50).

Return ONLY the JSON object.`, prompt)

	response, err := r.client.Complete(ctx, llm.CompleteRequest{
		Messages: []llm.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	if err == nil {
		var config Config
		if jsonErr := json.Unmarshal(extractJSON(response), &config); jsonErr == nil && config.Prompt != "" {
			return config
		}
	}

	return Config{
		Prompt:         prompt,
		NegativePrompt: "blurry, low quality, distorted",
		Style:          "Cinematic",
		FPS:            24,
		NumSteps:       30,
	}
}

func defaultAnalysis() Analysis {
	return Analysis{
		Intent:   "generate_video",
		Topic:    "general",
		Emotions: []string{"neutral"},
		Style:    "Cinematic",
		Motion:   "smooth",
	}
}

func defaultConfig(prompt string, analysis Analysis) Config {
	style := analysis.Style
	if style == "" {
		style = "Cinematic"
	}
	motion := analysis.Motion
	if motion == "" {
		motion = "smooth"
	}
	return Config{
		Prompt:          prompt,
		NegativePrompt:  "blurry, distorted, low quality, text, watermark",
		Style:           style,
		FPS:             24,
		DurationSeconds: 4,
		CameraMotion:    motion,
		Lighting:        "natural",
		ColorPalette:    "balanced",
	}
}

// extractJSON returns the slice between the first '{' and the last '}' so
// models that wrap JSON in prose still parse.
func extractJSON(s string) []byte {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return []byte(s)
	}
	return []byte(s[start : end+1])
}

func progress(fn func(string), msg string) {
	if fn != nil {
		fn(msg)
	}
}
