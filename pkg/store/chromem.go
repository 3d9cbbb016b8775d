package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"

	"github.com/xhad/vision-sync/internal/models"
)

type ChromemConfig struct {
	Path       string // empty keeps the collection in memory
	Collection string
	Compress   bool
}

// ChromemStore is an embedded vector store persisted to a local directory.
type ChromemStore struct {
	config     ChromemConfig
	db         *chromem.DB
	collection *chromem.Collection
}

var errNoEmbedding = errors.New("documents must be embedded before they are stored")

func NewChromemStore(config ChromemConfig) (*ChromemStore, error) {
	if config.Collection == "" {
		config.Collection = "furniture_products"
	}

	var (
		db  *chromem.DB
		err error
	)
	if config.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(config.Path, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database at %s: %w", config.Path, err)
		}
	}

	// Embeddings are always computed by the caller, so the collection never embeds on its own.
	noEmbed := func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbedding
	}
	collection, err := db.GetOrCreateCollection(config.Collection, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &ChromemStore{
		config:     config,
		db:         db,
		collection: collection,
	}, nil
}

// Upsert stores products keyed by ID; re-adding an ID replaces the previous document.
func (s *ChromemStore) Upsert(ctx context.Context, products []models.EmbeddedProduct) error {
	if len(products) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(products))
	for _, p := range products {
		if len(p.Embedding) == 0 {
			return fmt.Errorf("product %s: %w", p.ID, errNoEmbedding)
		}
		docs = append(docs, chromem.Document{
			ID:        p.ID,
			Content:   sanitizeUTF8(p.Description),
			Metadata:  p.Metadata(),
			Embedding: p.Embedding,
		})
	}

	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

func (s *ChromemStore) Query(ctx context.Context, embedding []float32, limit int) ([]models.VectorMatch, error) {
	count := s.collection.Count()
	if limit > count {
		limit = count
	}
	if limit <= 0 {
		return []models.VectorMatch{}, nil
	}

	results, err := s.collection.QueryEmbedding(ctx, embedding, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	matches := make([]models.VectorMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, newMatch(r.ID, r.Content, r.Metadata, 1-float64(r.Similarity)))
	}
	return matches, nil
}

func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Close is a no-op; chromem persists every write as it happens.
func (s *ChromemStore) Close() {}
