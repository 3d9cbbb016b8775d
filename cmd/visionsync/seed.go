package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/pkg/catalog"
	"github.com/xhad/vision-sync/pkg/config"
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Embed the product catalog and upsert it into the vector database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return seedCatalog(cmd.Context(), cmd.ErrOrStderr(), cfg, logger, catalogPath)
		},
	}
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "YAML catalog to seed instead of the built-in furniture catalog")
	return cmd
}

func loadCatalog(path string) ([]models.Product, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(path)
}

func seedCatalog(ctx context.Context, out io.Writer, cfg *config.Config, logger *zap.Logger, catalogPath string) error {
	products, err := loadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	vs, err := openVectorStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer vs.Close()

	logger.Info("seeding vector store",
		zap.String("backend", cfg.Vector.Backend),
		zap.Int("products", len(products)))

	bar := getProgressBar(out, len(products), "Seeding catalog")
	seeder := catalog.NewSeeder(embedder, vs, catalog.SeederConfig{
		BatchSize: cfg.Vector.BatchSize,
		OnProgress: func(done, total int) {
			_ = bar.Set(done)
		},
	})

	count, err := seeder.Seed(ctx, products)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	_ = bar.Finish()

	fmt.Fprintf(out, "\n%s %d products, collection now holds %d\n", color.GreenString("✓ Seeded"), len(products), count)
	return nil
}
