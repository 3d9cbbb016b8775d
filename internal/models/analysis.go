package models

import "time"

// DetectedObject is a single object found by the detector.
type DetectedObject struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels
}

// VectorMatch is a catalog product returned by the vector store.
type VectorMatch struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Category        string  `json:"category"`
	Style           string  `json:"style"`
	RoomType        string  `json:"room_type"`
	SimilarityScore float64 `json:"similarity_score"`
}

type ImprovementSuggestion struct {
	Area       string `json:"area"`
	Suggestion string `json:"suggestion"`
	Priority   string `json:"priority"`
}

type RoomAnalysis struct {
	RoomType                   string                  `json:"room_type"`
	RoomSummary                string                  `json:"room_summary"`
	StyleDetected              string                  `json:"style_detected"`
	ImprovementSuggestions     []ImprovementSuggestion `json:"improvement_suggestions"`
	ColorPaletteRecommendation []string                `json:"color_palette_recommendation"`
	EstimatedImprovementScore  float64                 `json:"estimated_improvement_score"`
	FurnitureToAdd             []string                `json:"furniture_to_add"`
	FurnitureToRemove          []string                `json:"furniture_to_remove"`
}

// NewRoomAnalysis returns an analysis populated with the documented defaults.
func NewRoomAnalysis() RoomAnalysis {
	return RoomAnalysis{
		RoomType:                   "unknown",
		StyleDetected:              "unknown",
		ImprovementSuggestions:     []ImprovementSuggestion{},
		ColorPaletteRecommendation: []string{},
		EstimatedImprovementScore:  5.0,
		FurnitureToAdd:             []string{},
		FurnitureToRemove:          []string{},
	}
}

// AnalysisResponse is the body returned by POST /api/analyze.
type AnalysisResponse struct {
	DetectedObjects       []DetectedObject `json:"detected_objects"`
	VectorRecommendations []VectorMatch    `json:"vector_recommendations"`
	Analysis              RoomAnalysis     `json:"analysis"`
	AnnotatedImage        string           `json:"annotated_image"` // base64 JPEG
	ImageURL              *string          `json:"image_url"`
}

// AnalysisRecord is what gets persisted for a finished analysis.
type AnalysisRecord struct {
	ID               string
	UserID           *string
	ImageURL         *string
	DetectedObjects  []DetectedObject
	RoomType         string
	StyleDetected    string
	ImprovementScore float64
	FullAnalysis     *RoomAnalysis
	CreatedAt        time.Time
}

// HistoryItem is a single past analysis as returned by GET /api/history/{user_id}.
type HistoryItem struct {
	ID               string           `json:"id"`
	ImageURL         *string          `json:"image_url"`
	RoomType         string           `json:"room_type"`
	StyleDetected    string           `json:"style_detected"`
	ImprovementScore float64          `json:"improvement_score"`
	DetectedObjects  []DetectedObject `json:"detected_objects"`
	FullAnalysis     *RoomAnalysis    `json:"full_analysis"`
	CreatedAt        time.Time        `json:"created_at"`
}

// HistoryItemFrom converts a stored record to its API shape.
func HistoryItemFrom(r AnalysisRecord) HistoryItem {
	item := HistoryItem{
		ID:               r.ID,
		ImageURL:         r.ImageURL,
		RoomType:         r.RoomType,
		StyleDetected:    r.StyleDetected,
		ImprovementScore: r.ImprovementScore,
		DetectedObjects:  r.DetectedObjects,
		FullAnalysis:     r.FullAnalysis,
		CreatedAt:        r.CreatedAt,
	}
	if item.RoomType == "" {
		item.RoomType = "unknown"
	}
	if item.StyleDetected == "" {
		item.StyleDetected = "unknown"
	}
	if item.DetectedObjects == nil {
		item.DetectedObjects = []DetectedObject{}
	}
	return item
}
