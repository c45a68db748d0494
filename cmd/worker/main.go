package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"videogen/internal/generator"
	"videogen/internal/infra"
	"videogen/internal/jobstore"
	"videogen/internal/storage"
	"videogen/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	store := jobstore.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("worker: ensure job schema failed")
	}

	videos, err := storage.NewVideoStore(cfg.OutputDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: configure video storage failed")
	}

	local := generator.New(generator.Options{
		RunnerBin: cfg.RunnerBin,
		ModelID:   cfg.LocalModelID,
		Logger:    &logger,
	})
	defer local.Close()
	if cfg.RunnerBin == "" {
		logger.Warn().Str("model", local.ModelID()).Msg("worker: no pipeline runner configured, using synthetic generation")
	}

	w, err := worker.New(worker.Options{
		Store:     store,
		Generator: local,
		Videos:    videos,
		Logger:    &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: configure failed")
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
