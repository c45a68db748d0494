package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"videogen/internal/generator"
	"videogen/internal/history"
	"videogen/internal/httpapi"
	"videogen/internal/inference"
	"videogen/internal/infra"
	"videogen/internal/infra/geoip"
	"videogen/internal/jobstore"
	"videogen/internal/llm"
	"videogen/internal/media"
	"videogen/internal/orchestrator"
	"videogen/internal/refine"
	"videogen/internal/storage"
	"videogen/internal/subtitle"
	"videogen/internal/translate"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()

	primary := jobstore.NewPostgresStore(pool)
	if err := primary.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("api: ensure job schema failed")
	}

	var rest *jobstore.RESTClient
	if cfg.JobStoreRESTURL != "" {
		cred, err := jobstore.LoadServiceCredential(cfg.JobStoreCredFile)
		if err != nil {
			logger.Warn().Err(err).Msg("api: rest fallback credentials unavailable")
		} else {
			rest, err = jobstore.NewRESTClient(cfg.JobStoreRESTURL, cred, nil)
			if err != nil {
				logger.Warn().Err(err).Msg("api: rest fallback disabled")
			}
		}
	}
	jobs := jobstore.NewFallbackStore(primary, rest, &logger)

	videos, err := storage.NewVideoStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: configure video storage failed")
	}

	historyStore, err := history.NewStore(filepath.Join(cfg.HistoryDir, "history.json"))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: load history failed")
	}
	searchStore, err := history.NewSearchStore(filepath.Join(cfg.HistoryDir, "search_history.json"))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: load search history failed")
	}
	cloudQueue, err := history.NewCloudQueue(filepath.Join(cfg.HistoryDir, "cloud_queue.json"))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: load cloud queue failed")
	}
	csvStore := history.NewCSVStore(filepath.Join(cfg.HistoryDir, "videos.csv"))
	sink := history.NewSink(historyStore, searchStore, csvStore, cloudQueue, &logger)

	var (
		translator *translate.Translator
		refiner    *refine.Refiner
		subtitles  *subtitle.Generator
	)
	if cfg.LLMAPIKey != "" {
		llmClient, err := llm.NewClient(llm.Options{
			APIKey:        cfg.LLMAPIKey,
			BaseURL:       cfg.LLMBaseURL,
			Model:         cfg.LLMModel,
			FallbackModel: cfg.LLMFallbackModel,
			Logger:        &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: configure llm client failed")
		}
		translator = translate.NewTranslator(llmClient)
		refiner = refine.NewRefiner(llmClient)
		subtitles = subtitle.NewGenerator(llmClient)
	} else {
		logger.Warn().Msg("api: llm api key missing; translation, refinement and subtitles disabled")
	}

	var remote *inference.Client
	if cfg.InferenceToken != "" {
		remote, err = inference.NewClient(inference.Options{
			BaseURL: cfg.InferenceURL,
			Token:   cfg.InferenceToken,
			Logger:  &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("api: configure inference client failed")
		}
	} else {
		logger.Warn().Msg("api: inference token missing; cloud execution mode disabled")
	}

	local := generator.New(generator.Options{
		RunnerBin: cfg.RunnerBin,
		ModelID:   cfg.LocalModelID,
		Logger:    &logger,
	})
	defer local.Close()
	if cfg.RunnerBin == "" {
		logger.Warn().Str("model", local.ModelID()).Msg("api: no pipeline runner configured, using synthetic generation")
	}

	orch, err := orchestrator.New(orchestrator.Options{
		Translator: translator,
		Refiner:    refiner,
		Subtitles:  subtitles,
		Local:      local,
		Remote:     remote,
		Videos:     videos,
		Encoder:    media.NewEncoder(cfg.FFmpegBin),
		Sink:       sink,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("api: configure orchestrator failed")
	}

	geo, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("api: geoip disabled")
	}

	app := &httpapi.App{
		Logger:  &logger,
		Session: orchestrator.NewSession(orch),
		Jobs:    jobs,
		Sink:    sink,
		History: historyStore,
		Search:  searchStore,
		CSV:     csvStore,
		Queue:   cloudQueue,
		Videos:  videos,
	}
	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app, geo))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
