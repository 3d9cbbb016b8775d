package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/xhad/vision-sync/internal/models"
)

// Generator is the part of llms.Model the analyst needs.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// AnalystConfig represents the configuration for the room analyst.
type AnalystConfig struct {
	Provider    string   // googleai or ollama
	APIKey      string   // googleai only
	Models      []string // tried in order while the provider reports quota errors
	BaseURL     string   // Ollama server URL
	MaxTokens   int
	Temperature float64
}

// Analyst turns detections and catalog matches into a RoomAnalysis.
type Analyst struct {
	config AnalystConfig
	llm    Generator
	logger *zap.Logger
}

var errEmptyResponse = errors.New("empty response from model")

// NewAnalystWithConfig creates an Analyst backed by the configured provider.
// A googleai analyst without an API key is valid and always returns the fallback analysis.
func NewAnalystWithConfig(ctx context.Context, config AnalystConfig, logger *zap.Logger) (*Analyst, error) {
	if len(config.Models) == 0 {
		return nil, fmt.Errorf("at least one model is required")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2048
	}

	var gen Generator
	switch config.Provider {
	case "", "googleai":
		if config.APIKey == "" {
			break
		}
		client, err := googleai.New(ctx,
			googleai.WithAPIKey(config.APIKey),
			googleai.WithDefaultModel(config.Models[0]))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize googleai client: %w", err)
		}
		gen = client
	case "ollama":
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434" // Default Ollama URL
		}
		client, err := ollama.New(ollama.WithModel(config.Models[0]),
			ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize LLM: %w", err)
		}
		gen = client
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", config.Provider)
	}

	return NewAnalyst(gen, config, logger), nil
}

// NewAnalyst wraps an existing generator. A nil generator yields fallback analyses only.
func NewAnalyst(gen Generator, config AnalystConfig, logger *zap.Logger) *Analyst {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyst{
		config: config,
		llm:    gen,
		logger: logger,
	}
}

// Analyze never fails: when no model produces a usable answer it returns the fallback analysis.
func (a *Analyst) Analyze(ctx context.Context, objects []models.DetectedObject, recs []models.VectorMatch) models.RoomAnalysis {
	labels := make([]string, 0, len(objects))
	for _, o := range objects {
		labels = append(labels, o.Label)
	}
	roomType := InferRoomType(labels)

	if a.llm == nil {
		a.logger.Warn("no generative model configured, returning fallback analysis")
		return FallbackAnalysis(objects, recs, roomType)
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, buildPrompt(objects, roomType, recs)),
	}

	for _, model := range a.config.Models {
		a.logger.Info("requesting room analysis", zap.String("model", model))

		analysis, err := a.generate(ctx, model, content)
		if err == nil {
			a.logger.Info("room analysis completed", zap.String("model", model))
			return analysis
		}

		if isQuotaError(err) {
			a.logger.Warn("model quota exceeded, trying next", zap.String("model", model), zap.Error(err))
			continue
		}
		a.logger.Error("model failed", zap.String("model", model), zap.Error(err))
		break
	}

	a.logger.Warn("all generative models failed, using fallback analysis")
	return FallbackAnalysis(objects, recs, roomType)
}

func (a *Analyst) generate(ctx context.Context, model string, content []llms.MessageContent) (models.RoomAnalysis, error) {
	resp, err := a.llm.GenerateContent(ctx, content,
		llms.WithModel(model),
		llms.WithMaxTokens(a.config.MaxTokens),
		llms.WithTemperature(a.config.Temperature),
	)
	if err != nil {
		return models.RoomAnalysis{}, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return models.RoomAnalysis{}, errEmptyResponse
	}
	return parseResponse(resp.Choices[0].Content)
}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota")
}

// parseResponse strips markdown fences and decodes the model's JSON answer.
func parseResponse(text string) (models.RoomAnalysis, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if i := strings.Index(text, "\n"); i >= 0 {
			text = text[i+1:]
		} else {
			text = text[3:]
		}
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(text[:len(text)-3])
	}
	if strings.HasPrefix(text, "json") {
		text = strings.TrimSpace(text[4:])
	}

	analysis := models.NewRoomAnalysis()
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return models.RoomAnalysis{}, fmt.Errorf("failed to decode analysis: %w", err)
	}
	if err := validateAnalysis(&analysis); err != nil {
		return models.RoomAnalysis{}, err
	}
	return analysis, nil
}

func validateAnalysis(a *models.RoomAnalysis) error {
	for _, s := range a.ImprovementSuggestions {
		if strings.TrimSpace(s.Area) == "" || strings.TrimSpace(s.Suggestion) == "" {
			return fmt.Errorf("suggestion is missing its area or text")
		}
		switch s.Priority {
		case "high", "medium", "low":
		default:
			return fmt.Errorf("invalid suggestion priority: %q", s.Priority)
		}
	}
	if a.EstimatedImprovementScore < 1 || a.EstimatedImprovementScore > 10 {
		return fmt.Errorf("improvement score out of range: %v", a.EstimatedImprovementScore)
	}

	// explicit nulls from the model
	if a.ImprovementSuggestions == nil {
		a.ImprovementSuggestions = []models.ImprovementSuggestion{}
	}
	if a.ColorPaletteRecommendation == nil {
		a.ColorPaletteRecommendation = []string{}
	}
	if a.FurnitureToAdd == nil {
		a.FurnitureToAdd = []string{}
	}
	if a.FurnitureToRemove == nil {
		a.FurnitureToRemove = []string{}
	}
	return nil
}

// InferRoomType guesses the room from detected labels, defaulting to a living room.
func InferRoomType(labels []string) string {
	if room, ok := RoomHint(labels); ok {
		return room
	}
	return "living room"
}

// RoomHint returns the room a set of labels points to. Rules are checked in order;
// ok is false when no label identifies a room.
func RoomHint(labels []string) (room string, ok bool) {
	set := make(map[string]bool, len(labels))
	for _, l := range labels {
		set[l] = true
	}
	hasAny := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	switch {
	case hasAny("bed"):
		return "bedroom", true
	case hasAny("toilet"):
		return "bathroom", true
	case hasAny("refrigerator", "oven", "microwave"):
		return "kitchen", true
	case hasAny("sink"):
		// toilet was ruled out above
		return "kitchen", true
	case hasAny("couch", "tv"):
		return "living room", true
	case hasAny("dining table"):
		return "dining room", true
	case hasAny("laptop", "chair"):
		return "office", true
	default:
		return "", false
	}
}

func buildPrompt(objects []models.DetectedObject, roomType string, recs []models.VectorMatch) string {
	var objList, recList strings.Builder
	for _, o := range objects {
		objList.WriteString(fmt.Sprintf("- %s (confidence %.0f%%)\n", o.Label, o.Confidence*100))
	}
	if len(objects) == 0 {
		objList.WriteString("- No furniture-relevant objects detected\n")
	}
	for _, r := range recs {
		recList.WriteString(fmt.Sprintf("- %s: %s (style: %s)\n", r.Name, r.Description, r.Style))
	}
	if len(recs) == 0 {
		recList.WriteString("- No recommendations available\n")
	}

	return fmt.Sprintf(promptTemplate, objList.String(), roomType, recList.String(), roomType)
}

const promptTemplate = `You are an expert interior designer and space analyst. Analyze the following room data and provide improvement suggestions.

DETECTED OBJECTS:
%s
INFERRED ROOM TYPE: %s

RECOMMENDED PRODUCTS FROM OUR CATALOG:
%s
Based on this analysis, respond ONLY with a valid JSON object (no markdown, no code fences, no extra text). The JSON must have exactly this structure:
{
  "room_type": "%s",
  "room_summary": "2-3 sentences describing the current state of the room",
  "style_detected": "one of: minimalist, modern, traditional, industrial, bohemian, scandinavian, cluttered, sparse, eclectic",
  "improvement_suggestions": [
    { "area": "specific area", "suggestion": "actionable suggestion", "priority": "high|medium|low" }
  ],
  "color_palette_recommendation": ["#hex1", "#hex2", "#hex3"],
  "estimated_improvement_score": <number 1-10>,
  "furniture_to_add": ["item1", "item2"],
  "furniture_to_remove": ["item1"]
}

Respond ONLY in valid JSON. No markdown formatting, no code blocks, no explanations.`

// FallbackAnalysis builds a basic analysis from detections and catalog matches alone.
func FallbackAnalysis(objects []models.DetectedObject, recs []models.VectorMatch, roomType string) models.RoomAnalysis {
	labels := UniqueLabels(objects)

	analysis := models.NewRoomAnalysis()
	analysis.RoomType = roomType
	analysis.StyleDetected = "undetermined"
	analysis.ColorPaletteRecommendation = []string{"#3b82f6", "#1e293b", "#f8fafc"}
	analysis.EstimatedImprovementScore = 5.0

	contents := "no detected furniture"
	if len(labels) > 0 {
		contents = strings.Join(labels, ", ")
	}
	analysis.RoomSummary = fmt.Sprintf("A %s containing %s. Analysis generated from computer vision results (AI summary unavailable).", roomType, contents)

	if len(labels) < 3 {
		analysis.ImprovementSuggestions = append(analysis.ImprovementSuggestions, models.ImprovementSuggestion{
			Area:       "General",
			Suggestion: "The room appears sparse. Consider adding more furniture for a complete look.",
			Priority:   "medium",
		})
	}
	hasPlant := false
	for _, l := range labels {
		if l == "potted plant" {
			hasPlant = true
			break
		}
	}
	if !hasPlant {
		analysis.ImprovementSuggestions = append(analysis.ImprovementSuggestions, models.ImprovementSuggestion{
			Area:       "Greenery",
			Suggestion: "Add indoor plants to bring life and color to the space.",
			Priority:   "low",
		})
	}

	for i, r := range recs {
		if i == 3 {
			break
		}
		analysis.FurnitureToAdd = append(analysis.FurnitureToAdd, r.Name)
	}

	return analysis
}

// UniqueLabels returns the detected labels in first-seen order without duplicates.
func UniqueLabels(objects []models.DetectedObject) []string {
	seen := make(map[string]bool, len(objects))
	labels := make([]string, 0, len(objects))
	for _, o := range objects {
		if seen[o.Label] {
			continue
		}
		seen[o.Label] = true
		labels = append(labels, o.Label)
	}
	return labels
}
