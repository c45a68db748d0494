package orchestrator

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"videogen/internal/domain"
	"videogen/internal/generator"
	"videogen/internal/history"
	"videogen/internal/refine"
	"videogen/internal/storage"
)

// recordingSink captures pipeline events for assertions.
type recordingSink struct {
	mu       sync.Mutex
	videos   []domain.VideoRecord
	entries  []domain.HistoryEntry
	searches []domain.SearchEntry
}

func (r *recordingSink) VideoGenerated(entry domain.HistoryEntry, rec domain.VideoRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	r.videos = append(r.videos, rec)
}

func (r *recordingSink) PromptAnalyzed(entry domain.SearchEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, entry)
}

func (r *recordingSink) CloudSubmitted(history.CloudSubmission) {}

func newTestOrchestrator(t *testing.T, sink history.EventSink) *Orchestrator {
	t.Helper()
	videos, err := storage.NewVideoStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewVideoStore: %v", err)
	}
	orch, err := New(Options{
		Local:  generator.New(generator.Options{ModelID: "test-model"}),
		Videos: videos,
		Sink:   sink,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

func TestGenerateLocalRecordsHistory(t *testing.T) {
	sink := &recordingSink{}
	orch := newTestOrchestrator(t, sink)

	settings := domain.DefaultSettings()
	result, err := orch.Generate(context.Background(), "a fox in the snow", settings, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if _, err := os.Stat(result.VideoPath); err != nil {
		t.Fatalf("video file missing: %v", err)
	}
	if result.Source != "local" {
		t.Errorf("source = %q, want local", result.Source)
	}
	if result.ModelUsed != "test-model" {
		t.Errorf("model = %q", result.ModelUsed)
	}
	if result.Resolution != "512x512" {
		t.Errorf("resolution = %q", result.Resolution)
	}

	if len(sink.entries) != 1 || len(sink.videos) != 1 {
		t.Fatalf("expected one history event, got %d/%d", len(sink.entries), len(sink.videos))
	}
	if sink.videos[0].Source != "local" {
		t.Errorf("csv source = %q", sink.videos[0].Source)
	}
	if sink.entries[0].VideoPath != result.VideoPath {
		t.Errorf("history path = %q, want %q", sink.entries[0].VideoPath, result.VideoPath)
	}
	if len(sink.searches) != 1 {
		t.Fatalf("expected one search event, got %d", len(sink.searches))
	}
	if sink.searches[0].OriginalPrompt != "a fox in the snow" {
		t.Errorf("search prompt = %q", sink.searches[0].OriginalPrompt)
	}
}

func TestGenerateAppliesStylePrefix(t *testing.T) {
	sink := &recordingSink{}
	orch := newTestOrchestrator(t, sink)

	settings := domain.DefaultSettings()
	settings.VideoStyle = domain.StyleAnime
	result, err := orch.Generate(context.Background(), "a fox", settings, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := "anime style, vibrant colors, japanese animation, a fox"
	if result.Prompt != want {
		t.Errorf("prompt = %q, want %q", result.Prompt, want)
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	orch := newTestOrchestrator(t, &recordingSink{})
	if _, err := orch.Generate(context.Background(), "  ", domain.DefaultSettings(), nil); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
}

func TestGenerateCloudWithoutRemoteFails(t *testing.T) {
	orch := newTestOrchestrator(t, &recordingSink{})
	settings := domain.DefaultSettings()
	settings.Mode = domain.ModeCloud
	if _, err := orch.Generate(context.Background(), "a fox", settings, nil); !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestApplyRefinementCapsFrames(t *testing.T) {
	s := domain.DefaultSettings()
	working, refined, duration := applyRefinement("a fox", s, refineConfigFor(24, 8))
	if working != "a detailed fox" {
		t.Errorf("working = %q", working)
	}
	if refined.FPS != 24 {
		t.Errorf("fps = %d", refined.FPS)
	}
	// 8s at 24fps would be 192 frames; the cap holds it at 90.
	if refined.NumFrames != 90 {
		t.Errorf("frames = %d, want 90", refined.NumFrames)
	}
	if duration <= 0 {
		t.Errorf("duration = %f", duration)
	}
}

func TestSessionRegenerationBudget(t *testing.T) {
	sink := &recordingSink{}
	session := NewSession(newTestOrchestrator(t, sink))
	ctx := context.Background()

	if session.Remaining() != 0 {
		t.Fatalf("fresh session remaining = %d, want 0", session.Remaining())
	}
	if _, err := session.Regenerate(ctx, nil); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("regenerate before start: %v", err)
	}

	if _, err := session.Start(ctx, "a fox", domain.DefaultSettings(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.Remaining() != MaxRegenerate {
		t.Fatalf("remaining = %d, want %d", session.Remaining(), MaxRegenerate)
	}

	for i := 0; i < MaxRegenerate; i++ {
		if _, err := session.Regenerate(ctx, nil); err != nil {
			t.Fatalf("Regenerate %d: %v", i+1, err)
		}
	}
	if _, err := session.Regenerate(ctx, nil); !errors.Is(err, domain.ErrRegenerateExhausted) {
		t.Fatalf("expected ErrRegenerateExhausted, got %v", err)
	}

	// A new prompt resets the budget.
	if _, err := session.Start(ctx, "a wolf", domain.DefaultSettings(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.Remaining() != MaxRegenerate {
		t.Fatalf("remaining after reset = %d, want %d", session.Remaining(), MaxRegenerate)
	}

	// Two starts plus two successful regenerations ran the pipeline.
	if got := len(sink.videos); got != 4 {
		t.Fatalf("generations recorded = %d, want 4", got)
	}
}

// flakyRunner succeeds a fixed number of times, then fails every run.
type flakyRunner struct {
	successesLeft int
	calls         int
}

func (f *flakyRunner) Generate(ctx context.Context, prompt string, settings domain.Settings, onProgress func(string)) (*Result, error) {
	f.calls++
	if f.successesLeft > 0 {
		f.successesLeft--
		return &Result{Prompt: prompt, Source: "local"}, nil
	}
	return nil, errors.New("pipeline crashed")
}

func TestSessionRegenerateSpendsBudgetOnFailure(t *testing.T) {
	runner := &flakyRunner{successesLeft: 1}
	session := NewSession(runner)
	ctx := context.Background()

	if _, err := session.Start(ctx, "a fox", domain.DefaultSettings(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Each failed attempt still consumes one regeneration.
	for i := 0; i < MaxRegenerate; i++ {
		if _, err := session.Regenerate(ctx, nil); err == nil {
			t.Fatalf("Regenerate %d: expected pipeline error", i+1)
		}
		if got, want := session.Remaining(), MaxRegenerate-i-1; got != want {
			t.Fatalf("remaining after attempt %d = %d, want %d", i+1, got, want)
		}
	}

	if _, err := session.Regenerate(ctx, nil); !errors.Is(err, domain.ErrRegenerateExhausted) {
		t.Fatalf("expected ErrRegenerateExhausted, got %v", err)
	}
	// The exhausted call never reaches the pipeline.
	if runner.calls != 1+MaxRegenerate {
		t.Fatalf("pipeline calls = %d, want %d", runner.calls, 1+MaxRegenerate)
	}
}

func refineConfigFor(fps int, durationSeconds float64) refine.Config {
	return refine.Config{
		Prompt:          "a detailed fox",
		FPS:             fps,
		DurationSeconds: durationSeconds,
	}
}
