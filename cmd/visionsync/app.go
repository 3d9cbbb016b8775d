package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xhad/vision-sync/internal/types"
	"github.com/xhad/vision-sync/pkg/config"
	"github.com/xhad/vision-sync/pkg/llm"
	"github.com/xhad/vision-sync/pkg/logger"
	"github.com/xhad/vision-sync/pkg/store"
)

// setup loads the config, applies flag overrides, validates the result and
// builds the logger every command shares.
func setup(opts *rootOptions, overrides ...func(*config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, nil, fmt.Errorf("invalid config: %w", errors.Join(joined...))
	}

	log, err := logger.NewWithConfig(logger.LoggerConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

func newEmbedder(cfg *config.Config) (types.Embedder, error) {
	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Provider:   cfg.Embedder.Provider,
		Model:      cfg.Embedder.Model,
		BaseURL:    cfg.Embedder.BaseURL,
		Dimensions: cfg.Embedder.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return embedder, nil
}

func openVectorStore(ctx context.Context, cfg *config.Config) (types.VectorStore, error) {
	vs, err := store.New(ctx, store.Config{
		Backend:     cfg.Vector.Backend,
		Path:        cfg.Vector.Path,
		Collection:  cfg.Vector.Collection,
		DatabaseURL: cfg.Vector.DatabaseURL,
		TableName:   cfg.Vector.TableName,
		VectorDim:   cfg.Embedder.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return vs, nil
}
