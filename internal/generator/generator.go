package generator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"videogen/internal/domain"
	"videogen/internal/inference"
	"videogen/internal/infra"
)

// Options configures a Generator.
type Options struct {
	// RunnerBin is the external diffusion runner. Empty means the synthetic
	// pipeline is used instead.
	RunnerBin string

	// ModelID is the default model loaded on first use.
	ModelID string

	Logger *infra.Logger
}

// Generator owns at most one loaded pipeline at a time. Switching models
// unloads the current pipeline first, since a GPU rarely fits two.
type Generator struct {
	mu       sync.Mutex
	pipeline Pipeline
	modelID  string
	loaded   bool

	newPipeline func() Pipeline
	logger      *infra.Logger
}

// New builds a Generator. The pipeline itself is loaded lazily on the first
// Generate call.
func New(opts Options) *Generator {
	modelID := opts.ModelID
	if modelID == "" {
		modelID = "damo-vilab/text-to-video-ms-1.7b"
	}

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	factory := func() Pipeline { return newSyntheticPipeline() }
	if strings.TrimSpace(opts.RunnerBin) != "" {
		bin := opts.RunnerBin
		factory = func() Pipeline { return newExecPipeline(bin) }
	}

	return &Generator{
		modelID:     modelID,
		newPipeline: factory,
		logger:      logger,
	}
}

// ModelID returns the model the generator is configured for.
func (g *Generator) ModelID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modelID
}

// SetModel switches the generator to a different model. The loaded pipeline
// is released immediately; the new model loads on the next Generate.
func (g *Generator) SetModel(modelID string) error {
	if strings.TrimSpace(modelID) == "" {
		return domain.ErrUnsupportedModel
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if modelID == g.modelID {
		return nil
	}
	if g.loaded {
		if err := g.pipeline.Close(); err != nil {
			g.logger.Warn().Err(err).Str("model", g.modelID).Msg("generator: unload failed")
		}
		g.pipeline = nil
		g.loaded = false
	}
	g.modelID = modelID
	return nil
}

// Generate renders a video for prompt with the given settings and returns
// the raw video bytes.
func (g *Generator) Generate(ctx context.Context, prompt string, s domain.Settings, onProgress func(string)) ([]byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.ErrInvalidPrompt
	}
	s = s.Normalize()

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.loaded {
		if onProgress != nil {
			onProgress(fmt.Sprintf("Loading model %s...", g.modelID))
		}
		pipeline := g.newPipeline()
		if err := pipeline.Load(ctx, g.modelID, s.LowVRAM); err != nil {
			return nil, fmt.Errorf("generator: load model %s: %w", g.modelID, err)
		}
		g.pipeline = pipeline
		g.loaded = true
		g.logger.Info().Str("model", g.modelID).Bool("low_vram", s.LowVRAM).Msg("generator: model loaded")
	}

	if onProgress != nil {
		onProgress("Generating frames...")
	}
	data, err := g.pipeline.Generate(ctx, Request{
		Prompt:         prompt,
		NegativePrompt: inference.DefaultNegativePrompt,
		Width:          s.Width,
		Height:         s.Height,
		NumFrames:      s.NumFrames,
		FPS:            s.FPS,
		NumSteps:       s.NumSteps,
		Guidance:       s.Guidance,
	})
	if err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress("Frames ready, encoding video...")
	}
	return data, nil
}

// Close releases the loaded pipeline, if any.
func (g *Generator) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.loaded {
		return nil
	}
	err := g.pipeline.Close()
	g.pipeline = nil
	g.loaded = false
	return err
}
