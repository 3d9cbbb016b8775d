package main

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/vision-sync/pkg/warmup"
)

func newWarmupCmd(opts *rootOptions) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "warmup",
		Short: "Fetch the model, then seed the catalog; stops at the first failure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			out := cmd.ErrOrStderr()
			err = warmup.Run(cmd.Context(), logger.Named("warmup"),
				warmup.Step{
					Name: "fetch-model",
					Run: func(ctx context.Context) error {
						return fetchModel(ctx, out, cfg, logger)
					},
				},
				warmup.Step{
					Name: "seed",
					Run: func(ctx context.Context) error {
						return seedCatalog(ctx, out, cfg, logger, catalogPath)
					},
				},
			)
			if err != nil {
				return err
			}

			color.New(color.FgGreen, color.Bold).Fprintln(out, "✓ Warm-up complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog to seed instead of the built-in furniture catalog")
	return cmd
}
