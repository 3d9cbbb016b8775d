package catalog

import (
	"context"
	"fmt"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/internal/types"
)

type SeederConfig struct {
	BatchSize  int
	OnProgress func(done, total int) // optional
}

// Seeder embeds product descriptions and upserts them into a vector store.
type Seeder struct {
	config   SeederConfig
	embedder types.Embedder
	store    types.VectorStore
}

func NewSeeder(embedder types.Embedder, store types.VectorStore, config SeederConfig) *Seeder {
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	return &Seeder{
		config:   config,
		embedder: embedder,
		store:    store,
	}
}

// Seed upserts every product and returns the collection size afterwards.
// Products are keyed by ID, so seeding the same catalog twice leaves the count unchanged.
func (s *Seeder) Seed(ctx context.Context, products []models.Product) (int, error) {
	total := len(products)
	for start := 0; start < total; start += s.config.BatchSize {
		end := start + s.config.BatchSize
		if end > total {
			end = total
		}
		batch := products[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = p.EmbeddingText()
		}
		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("failed to embed products %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d products", len(vectors), len(batch))
		}

		embedded := make([]models.EmbeddedProduct, len(batch))
		for i, p := range batch {
			embedded[i] = models.EmbeddedProduct{Product: p, Embedding: vectors[i]}
		}
		if err := s.store.Upsert(ctx, embedded); err != nil {
			return 0, fmt.Errorf("failed to store products: %w", err)
		}

		if s.config.OnProgress != nil {
			s.config.OnProgress(end, total)
		}
	}

	return s.store.Count(ctx)
}
