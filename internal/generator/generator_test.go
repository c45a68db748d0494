package generator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"videogen/internal/domain"
)

func TestGenerateSyntheticIsDeterministic(t *testing.T) {
	g := New(Options{ModelID: "test-model"})
	t.Cleanup(func() { g.Close() })

	first, err := g.Generate(context.Background(), "a red fox in snow", domain.DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := g.Generate(context.Background(), "a red fox in snow", domain.DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("same prompt produced different output")
	}
	if !bytes.Contains(first[:32], []byte("ftypisom")) {
		t.Fatalf("output missing container header: %x", first[:32])
	}
}

func TestGenerateDifferentPromptsDiffer(t *testing.T) {
	g := New(Options{ModelID: "test-model"})
	t.Cleanup(func() { g.Close() })

	a, err := g.Generate(context.Background(), "a fox", domain.DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := g.Generate(context.Background(), "a wolf", domain.DefaultSettings(), nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("different prompts produced identical output")
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	g := New(Options{ModelID: "test-model"})
	if _, err := g.Generate(context.Background(), "   ", domain.DefaultSettings(), nil); !errors.Is(err, domain.ErrInvalidPrompt) {
		t.Fatalf("expected ErrInvalidPrompt, got %v", err)
	}
}

func TestSetModelUnloadsPipeline(t *testing.T) {
	g := New(Options{ModelID: "model-a"})
	t.Cleanup(func() { g.Close() })

	if _, err := g.Generate(context.Background(), "a fox", domain.DefaultSettings(), nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !g.loaded {
		t.Fatal("pipeline should be loaded after Generate")
	}

	if err := g.SetModel("model-b"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if g.loaded {
		t.Fatal("pipeline should be unloaded after model switch")
	}
	if g.ModelID() != "model-b" {
		t.Fatalf("model id = %q", g.ModelID())
	}

	if _, err := g.Generate(context.Background(), "a fox", domain.DefaultSettings(), nil); err != nil {
		t.Fatalf("Generate after switch: %v", err)
	}
}

func TestSetModelRejectsEmpty(t *testing.T) {
	g := New(Options{ModelID: "model-a"})
	if err := g.SetModel(""); !errors.Is(err, domain.ErrUnsupportedModel) {
		t.Fatalf("expected ErrUnsupportedModel, got %v", err)
	}
}

func TestSetModelSameIDKeepsPipeline(t *testing.T) {
	g := New(Options{ModelID: "model-a"})
	t.Cleanup(func() { g.Close() })

	if _, err := g.Generate(context.Background(), "a fox", domain.DefaultSettings(), nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := g.SetModel("model-a"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if !g.loaded {
		t.Fatal("pipeline should stay loaded for same model id")
	}
}
