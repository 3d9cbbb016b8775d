package types

import (
	"context"

	"github.com/xhad/vision-sync/internal/models"
)

// Detector finds objects in an encoded image and renders them onto a copy of it.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]models.DetectedObject, string, error)
}

// Embedder matches langchaingo's embeddings.Embedder so either implementation fits.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes catalog products by embedding.
type VectorStore interface {
	Upsert(ctx context.Context, products []models.EmbeddedProduct) error
	Query(ctx context.Context, embedding []float32, limit int) ([]models.VectorMatch, error)
	Count(ctx context.Context) (int, error)
	Close()
}

// Analyst turns detections and recommendations into a room analysis.
type Analyst interface {
	Analyze(ctx context.Context, objects []models.DetectedObject, recs []models.VectorMatch) models.RoomAnalysis
}

// HistoryStore persists finished analyses.
type HistoryStore interface {
	Save(ctx context.Context, record models.AnalysisRecord) (models.AnalysisRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.AnalysisRecord, error)
	Close()
}

// ImageStore uploads images and returns a public URL.
type ImageStore interface {
	Upload(ctx context.Context, path, contentType string, data []byte) (string, error)
}
