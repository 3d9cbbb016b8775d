package store

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/internal/types"
)

// Config selects and configures a vector store backend.
type Config struct {
	Backend     string // chromem or pgvector
	Path        string // chromem persistence directory
	Collection  string
	DatabaseURL string // pgvector
	TableName   string // pgvector
	VectorDim   int
}

// New opens the configured backend.
func New(ctx context.Context, config Config) (types.VectorStore, error) {
	switch config.Backend {
	case "", "chromem":
		return NewChromemStore(ChromemConfig{
			Path:       config.Path,
			Collection: config.Collection,
		})
	case "pgvector":
		return NewWithConfig(ctx, VectorStoreConfig{
			ConnString: config.DatabaseURL,
			TableName:  config.TableName,
			VectorDim:  config.VectorDim,
		})
	default:
		return nil, fmt.Errorf("unknown vector backend: %s", config.Backend)
	}
}

// similarityScore converts a cosine distance to a similarity in [0, 1], rounded to 3 places.
func similarityScore(distance float64) float64 {
	sim := math.Max(0, 1-distance)
	return math.Round(sim*1000) / 1000
}

func newMatch(id, description string, meta map[string]string, distance float64) models.VectorMatch {
	name := meta["name"]
	if name == "" {
		name = "Unknown"
	}
	return models.VectorMatch{
		ID:              id,
		Name:            name,
		Description:     description,
		Category:        meta["category"],
		Style:           meta["style"],
		RoomType:        meta["room_type"],
		SimilarityScore: similarityScore(distance),
	}
}

// Recommender finds catalog products similar to a set of detected labels.
type Recommender struct {
	store    types.VectorStore
	embedder types.Embedder
	nResults int
	logger   *zap.Logger
}

func NewRecommender(store types.VectorStore, embedder types.Embedder, nResults int, logger *zap.Logger) *Recommender {
	if nResults <= 0 {
		nResults = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{
		store:    store,
		embedder: embedder,
		nResults: nResults,
		logger:   logger,
	}
}

// Recommend returns up to nResults products for the labels, most similar first.
func (r *Recommender) Recommend(ctx context.Context, labels []string) ([]models.VectorMatch, error) {
	if len(labels) == 0 {
		return []models.VectorMatch{}, nil
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if count == 0 {
		r.logger.Warn("vector collection is empty, run `visionsync seed` first")
		return []models.VectorMatch{}, nil
	}

	query := QueryText(labels)
	embedding, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	limit := r.nResults
	if count < limit {
		limit = count
	}

	matches, err := r.store.Query(ctx, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	r.logger.Debug("vector search completed", zap.String("query", query), zap.Int("matches", len(matches)))
	return matches, nil
}
