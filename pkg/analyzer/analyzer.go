package analyzer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/internal/types"
	"github.com/xhad/vision-sync/pkg/history"
	"github.com/xhad/vision-sync/pkg/llm"
	"github.com/xhad/vision-sync/pkg/media"
)

// Recommender finds catalog products for a set of labels.
type Recommender interface {
	Recommend(ctx context.Context, labels []string) ([]models.VectorMatch, error)
}

type Config struct {
	ImagePrefix  string // object path prefix for uploaded images
	HistoryLimit int
}

// Service runs the detection, recommendation, analysis and persistence pipeline.
type Service struct {
	config      Config
	detector    types.Detector
	recommender Recommender
	analyst     types.Analyst
	history     types.HistoryStore // nil when history is disabled
	images      types.ImageStore   // nil skips uploads
	logger      *zap.Logger
}

type Option func(*Service)

func WithHistory(store types.HistoryStore) Option {
	return func(s *Service) { s.history = store }
}

func WithImageStore(store types.ImageStore) Option {
	return func(s *Service) { s.images = store }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(config Config, detector types.Detector, recommender Recommender, analyst types.Analyst, opts ...Option) *Service {
	if config.ImagePrefix == "" {
		config.ImagePrefix = "room-images"
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 10
	}
	s := &Service{
		config:      config,
		detector:    detector,
		recommender: recommender,
		analyst:     analyst,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request is a single uploaded room image.
type Request struct {
	Image       []byte
	ContentType string
	UserID      *string
}

// Analyze fails only when detection fails. Recommendation and persistence
// errors are logged and leave their part of the response empty.
func (s *Service) Analyze(ctx context.Context, req Request) (models.AnalysisResponse, error) {
	objects, annotated, err := s.detector.Detect(ctx, req.Image)
	if err != nil {
		return models.AnalysisResponse{}, fmt.Errorf("detect objects: %w", err)
	}
	if objects == nil {
		objects = []models.DetectedObject{}
	}

	var (
		recs     []models.VectorMatch
		analysis models.RoomAnalysis
		imageURL *string
	)

	// The upload only needs the raw image, so it overlaps with search and analysis.
	var g errgroup.Group
	g.Go(func() error {
		labels := llm.UniqueLabels(objects)
		var err error
		recs, err = s.recommender.Recommend(ctx, labels)
		if err != nil {
			s.logger.Error("vector search failed", zap.Strings("labels", labels), zap.Error(err))
		}
		if recs == nil {
			recs = []models.VectorMatch{}
		}
		analysis = s.analyst.Analyze(ctx, objects, recs)
		return nil
	})
	if s.history != nil && s.images != nil {
		g.Go(func() error {
			imageURL = s.upload(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	if s.history != nil {
		s.save(ctx, req, objects, analysis, imageURL)
	}

	return models.AnalysisResponse{
		DetectedObjects:       objects,
		VectorRecommendations: recs,
		Analysis:              analysis,
		AnnotatedImage:        annotated,
		ImageURL:              imageURL,
	}, nil
}

func (s *Service) upload(ctx context.Context, req Request) *string {
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	objectPath := media.ObjectPath(s.config.ImagePrefix)
	url, err := s.images.Upload(ctx, objectPath, contentType, req.Image)
	if err != nil {
		s.logger.Error("image upload failed (non-blocking)", zap.String("path", objectPath), zap.Error(err))
		return nil
	}
	return &url
}

func (s *Service) save(ctx context.Context, req Request, objects []models.DetectedObject, analysis models.RoomAnalysis, imageURL *string) {
	full := analysis
	record := models.AnalysisRecord{
		UserID:           req.UserID,
		ImageURL:         imageURL,
		DetectedObjects:  objects,
		RoomType:         analysis.RoomType,
		StyleDetected:    analysis.StyleDetected,
		ImprovementScore: analysis.EstimatedImprovementScore,
		FullAnalysis:     &full,
	}

	saved, err := s.history.Save(ctx, record)
	if err != nil {
		s.logger.Error("analysis save failed (non-blocking)", zap.Error(err))
		return
	}
	s.logger.Info("analysis saved", zap.String("id", saved.ID))
}

// History returns the most recent analyses for a user, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]models.HistoryItem, error) {
	if s.history == nil {
		return nil, history.ErrDisabled
	}

	records, err := s.history.ListByUser(ctx, userID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	items := make([]models.HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, models.HistoryItemFrom(r))
	}
	return items, nil
}

// HistoryEnabled reports whether analyses are persisted.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}
