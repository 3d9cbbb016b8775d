package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/vision-sync/pkg/analyzer"
	"github.com/xhad/vision-sync/pkg/config"
	"github.com/xhad/vision-sync/pkg/history"
	"github.com/xhad/vision-sync/pkg/llm"
	"github.com/xhad/vision-sync/pkg/media"
	"github.com/xhad/vision-sync/pkg/store"
	"github.com/xhad/vision-sync/pkg/vision"
	"github.com/xhad/vision-sync/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts, func(c *config.Config) {
				if cmd.Flags().Changed("host") {
					c.Server.Host = host
				}
				if cmd.Flags().Changed("port") {
					c.Server.Port = port
				}
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			return serve(cmd.Context(), cfg, logger)
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Interface to bind")
	cmd.Flags().IntVar(&port, "port", 8000, "Port to listen on")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	vs, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer vs.Close()

	analyst, err := llm.NewAnalystWithConfig(ctx, llm.AnalystConfig{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Models:      cfg.LLM.Models,
		BaseURL:     cfg.LLM.BaseURL,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	}, logger)
	if err != nil {
		return err
	}
	if cfg.LLM.Provider == "googleai" && cfg.LLM.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, room analysis will use the rule-based fallback")
	}

	detector := vision.NewDetector(vision.DetectorConfig{
		ModelPath:     cfg.Vision.ModelPath,
		InputSize:     cfg.Vision.InputSize,
		Confidence:    cfg.Vision.Confidence,
		IoU:           cfg.Vision.IoU,
		MaxImageBytes: cfg.Vision.MaxImageBytes,
	}, logger)
	defer detector.Close()

	options := []analyzer.Option{analyzer.WithLogger(logger)}

	if cfg.HistoryEnabled() {
		hist, err := history.New(ctx, cfg.History.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer hist.Close()
		options = append(options, analyzer.WithHistory(hist))
	} else {
		logger.Warn("history database not configured, analyses will not be saved")
	}

	if cfg.Storage.Bucket != "" {
		images, err := media.NewGCSStore(ctx, media.GCSConfig{
			Bucket:          cfg.Storage.Bucket,
			CredentialsFile: cfg.Storage.CredentialsFile,
		})
		if err != nil {
			return err
		}
		defer images.Close()
		options = append(options, analyzer.WithImageStore(images))
	}

	svc := analyzer.New(analyzer.Config{
		ImagePrefix:  cfg.Storage.Prefix,
		HistoryLimit: cfg.History.Limit,
	}, detector, store.NewRecommender(vs, embedder, cfg.Vector.NResults, logger), analyst, options...)

	srv := server.New(server.Config{
		Addr:              cfg.Addr(),
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		AllowOriginSuffix: cfg.Server.AllowOriginSuffix,
		RateLimit:         cfg.Server.RateLimit,
		RateBurst:         cfg.Server.RateBurst,
		MaxUploadBytes:    cfg.Vision.MaxImageBytes,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
	}, svc, logger)

	logger.Info("starting vision-sync",
		zap.String("addr", cfg.Addr()),
		zap.String("vector_backend", cfg.Vector.Backend),
		zap.Bool("history", svc.HistoryEnabled()))

	return srv.Run(ctx)
}
