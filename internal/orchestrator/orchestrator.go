// Package orchestrator chains the generation pipeline end to end: translate,
// refine, dispatch, post-process, persist. Every stage except dispatch is
// fail-soft; the user always keeps their original prompt and, once a video
// exists, never loses it to a cosmetic step.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"videogen/internal/domain"
	"videogen/internal/generator"
	"videogen/internal/history"
	"videogen/internal/inference"
	"videogen/internal/infra"
	"videogen/internal/media"
	"videogen/internal/refine"
	"videogen/internal/storage"
	"videogen/internal/subtitle"
	"videogen/internal/translate"
)

// maxRefinedFrames caps frame counts derived from a refined duration so one
// generous model answer cannot balloon render time.
const maxRefinedFrames = 90

// Result is the outcome of one synchronous generation.
type Result struct {
	VideoPath  string
	Prompt     string
	ModelUsed  string
	Source     string
	Resolution string
	Translated translate.Result
	Subtitled  bool
	Upscaled   bool
}

// Options wires an Orchestrator. Translator, Refiner, Subtitles, Remote and
// Encoder may be nil; the corresponding stages are skipped.
type Options struct {
	Translator *translate.Translator
	Refiner    *refine.Refiner
	Subtitles  *subtitle.Generator
	Local      *generator.Generator
	Remote     *inference.Client
	Videos     *storage.VideoStore
	Encoder    *media.Encoder
	Sink       history.EventSink
	Logger     *infra.Logger
}

// Orchestrator runs one generation at a time.
type Orchestrator struct {
	translator *translate.Translator
	refiner    *refine.Refiner
	subtitles  *subtitle.Generator
	local      *generator.Generator
	remote     *inference.Client
	videos     *storage.VideoStore
	encoder    *media.Encoder
	sink       history.EventSink
	logger     *infra.Logger

	generating atomic.Bool
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Local == nil {
		return nil, fmt.Errorf("orchestrator: local generator is required")
	}
	if opts.Videos == nil {
		return nil, fmt.Errorf("orchestrator: video store is required")
	}
	sink := opts.Sink
	if sink == nil {
		sink = history.NopSink{}
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.New(io.Discard))
		logger = &discard
	}
	return &Orchestrator{
		translator: opts.Translator,
		refiner:    opts.Refiner,
		subtitles:  opts.Subtitles,
		local:      opts.Local,
		remote:     opts.Remote,
		videos:     opts.Videos,
		encoder:    opts.Encoder,
		sink:       sink,
		logger:     logger,
	}, nil
}

// Generate runs the full pipeline for one prompt. Only one generation runs
// at a time; a second call while busy returns domain.ErrUnavailable.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, settings domain.Settings, onProgress func(string)) (*Result, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, domain.ErrInvalidPrompt
	}
	if !o.generating.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("orchestrator: generation already in progress: %w", domain.ErrUnavailable)
	}
	defer o.generating.Store(false)

	s := settings.Normalize()
	working := prompt

	// Stage 1: translation. Failure keeps the original text.
	var translated translate.Result
	if o.translator != nil {
		var err error
		translated, err = o.translator.ToEnglish(ctx, prompt, s.SourceLang, onProgress)
		if err != nil {
			o.logger.Warn().Err(err).Msg("orchestrator: translation failed; using original prompt")
		}
		if translated.Translated != "" {
			working = translated.Translated
		}
	} else {
		translated = translate.Result{Original: prompt, DetectedLanguage: "en", Translated: prompt}
	}

	// Stage 2: refinement. Failures fall through the legacy chain down to
	// the untouched prompt.
	var analysis refine.Analysis
	duration := float64(s.NumFrames) / float64(s.FPS)
	if s.EnableRefinement && o.refiner != nil {
		var cfg refine.Config
		var err error
		analysis, err = o.refiner.Analyze(ctx, working, onProgress)
		if err != nil {
			o.logger.Warn().Err(err).Msg("orchestrator: analysis failed; using legacy refinement")
			cfg = o.refiner.RefineToJSON(ctx, working, onProgress)
		} else {
			cfg, err = o.refiner.GenerateConfig(ctx, analysis, working, onProgress)
			if err != nil {
				o.logger.Warn().Err(err).Msg("orchestrator: config generation failed; using defaults")
			}
		}
		working, s, duration = applyRefinement(working, s, cfg)
	}

	// Stage 3: search history, best-effort.
	o.sink.PromptAnalyzed(domain.SearchEntry{
		OriginalPrompt:   prompt,
		LanguageDetected: translated.DetectedLanguage,
		TranslatedPrompt: translatedOrEmpty(translated),
		Intent:           analysis.Intent,
		Topic:            analysis.Topic,
		Emotions:         analysis.Emotions,
	})

	enriched := s.StylePrefix() + working

	// Stage 4: dispatch. The execution mode is a hard branch; a failure here
	// aborts with no cross-fallback, since the other path was deliberately
	// not chosen.
	var (
		data      []byte
		modelUsed string
		source    string
		err       error
	)
	switch s.Mode {
	case domain.ModeCloud:
		if o.remote == nil {
			return nil, fmt.Errorf("orchestrator: remote inference not configured: %w", domain.ErrMissingCredentials)
		}
		data, err = o.remote.Generate(ctx, enriched, inference.Params{
			NumFrames: s.NumFrames,
			NumSteps:  s.NumSteps,
			Width:     s.Width,
			Height:    s.Height,
		}, onProgress)
		modelUsed = o.remote.Model()
		source = "cloud"
	default:
		data, err = o.local.Generate(ctx, enriched, s, onProgress)
		modelUsed = o.local.ModelID()
		source = "local"
	}
	if err != nil {
		return nil, err
	}

	name := "video_" + uuid.NewString() + ".mp4"
	videoPath, err := o.videos.Write(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: save video: %w", err)
	}

	result := &Result{
		VideoPath:  videoPath,
		Prompt:     enriched,
		ModelUsed:  modelUsed,
		Source:     source,
		Resolution: fmt.Sprintf("%dx%d", s.Width, s.Height),
		Translated: translated,
	}

	// Stage 5: post-processing, best-effort. The saved video survives any
	// failure below.
	o.upscaleIfNeeded(ctx, result, s, source)
	o.burnSubtitlesIfEnabled(ctx, result, s, working, duration, onProgress)

	// Stage 6: persistence, best-effort.
	o.sink.VideoGenerated(
		domain.HistoryEntry{
			Prompt:    enriched,
			Model:     modelUsed,
			VideoPath: result.VideoPath,
			Settings:  s,
		},
		domain.VideoRecord{
			Prompt:    enriched,
			Model:     modelUsed,
			Settings:  s,
			VideoPath: result.VideoPath,
			Source:    source,
		},
	)

	if onProgress != nil {
		onProgress("Video ready!")
	}
	return result, nil
}

// applyRefinement folds a refinement config into the working prompt and
// settings. A refined duration rewrites the frame count, capped so render
// time stays bounded.
func applyRefinement(working string, s domain.Settings, cfg refine.Config) (string, domain.Settings, float64) {
	if cfg.Prompt != "" {
		working = cfg.Prompt
	}
	if cfg.Style != "" {
		s.VideoStyle = cfg.Style
	}
	if cfg.FPS > 0 {
		s.FPS = cfg.FPS
	}
	if cfg.NumSteps > 0 {
		s.NumSteps = cfg.NumSteps
	}
	duration := float64(s.NumFrames) / float64(s.FPS)
	if cfg.DurationSeconds > 0 {
		frames := int(cfg.DurationSeconds * float64(s.FPS))
		if frames > maxRefinedFrames {
			frames = maxRefinedFrames
		}
		if frames > 0 {
			s.NumFrames = frames
		}
		duration = float64(s.NumFrames) / float64(s.FPS)
	}
	return working, s, duration
}

func (o *Orchestrator) upscaleIfNeeded(ctx context.Context, result *Result, s domain.Settings, source string) {
	if o.encoder == nil {
		return
	}
	nativeW, nativeH := s.Width, s.Height
	if source == "cloud" {
		// The hosted endpoint clamps output dimensions.
		if nativeW > 512 {
			nativeW = 512
		}
		if nativeH > 512 {
			nativeH = 512
		}
	}
	if !media.NeedsUpscale(nativeW, nativeH, s.Width, s.Height) {
		return
	}

	outPath := strings.TrimSuffix(result.VideoPath, ".mp4") + "_upscaled.mp4"
	if err := o.encoder.Upscale(ctx, result.VideoPath, outPath, s.Width, s.Height); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: upscale failed; keeping native resolution")
		return
	}
	if err := os.Rename(outPath, result.VideoPath); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: replace upscaled video failed")
		return
	}
	result.Upscaled = true
}

func (o *Orchestrator) burnSubtitlesIfEnabled(ctx context.Context, result *Result, s domain.Settings, working string, duration float64, onProgress func(string)) {
	if !s.EnableSubtitles || o.subtitles == nil || o.encoder == nil {
		return
	}

	segments := o.subtitles.Generate(ctx, working, duration, "en", onProgress)
	if len(segments) == 0 {
		return
	}
	srtPath := strings.TrimSuffix(result.VideoPath, ".mp4") + ".srt"
	if err := subtitle.WriteSRTFile(srtPath, segments); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: write srt failed")
		return
	}

	outPath := strings.TrimSuffix(result.VideoPath, ".mp4") + "_sub.mp4"
	if err := o.encoder.BurnSubtitles(ctx, result.VideoPath, srtPath, outPath); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: subtitle burn-in failed; keeping plain video")
		return
	}
	if err := os.Rename(outPath, result.VideoPath); err != nil {
		o.logger.Warn().Err(err).Msg("orchestrator: replace subtitled video failed")
		return
	}
	result.Subtitled = true
}

func translatedOrEmpty(r translate.Result) string {
	if r.WasTranslated {
		return r.Translated
	}
	return ""
}
