package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/vision-sync/pkg/checkpoint"
	"github.com/xhad/vision-sync/pkg/config"
)

func newFetchModelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-model",
		Short: "Download the detection checkpoint unless a verified copy is already cached",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return fetchModel(cmd.Context(), cmd.ErrOrStderr(), cfg, logger)
		},
	}
}

func fetchModel(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger) error {
	fetcher, err := checkpoint.NewFetcher(checkpoint.FetcherConfig{
		URL:    cfg.Vision.ModelURL,
		Path:   cfg.Vision.ModelPath,
		SHA256: cfg.Vision.ModelSHA256,
		Progress: func(size int64) io.Writer {
			return getByteBar(out, size, "Downloading model")
		},
	}, logger.Named("checkpoint"))
	if err != nil {
		return err
	}

	res, err := fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch model: %w", err)
	}

	status := "already cached"
	if res.Downloaded {
		fmt.Fprintln(out)
		status = "downloaded"
	}
	fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("✓ Model %s:", status), res.Path, shortDigest(res.SHA256))
	return nil
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return "sha256:" + digest[:12]
	}
	if digest == "" {
		return "unverified"
	}
	return "sha256:" + digest
}
