package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/vision-sync/internal/types"
	"github.com/xhad/vision-sync/pkg/processor"
)

// EmbedderConfig represents the configuration for an embedder.
type EmbedderConfig struct {
	Provider   string // local or ollama
	Model      string
	BaseURL    string // Ollama server URL
	Dimensions int    // local embedder only
}

// NewEmbedderWithConfig returns the embedder selected by config.Provider.
func NewEmbedderWithConfig(config EmbedderConfig) (types.Embedder, error) {
	switch config.Provider {
	case "", "local":
		return NewLocalEmbedder(config.Dimensions), nil
	case "ollama":
		if config.Model == "" {
			config.Model = "nomic-embed-text:latest" // Default Ollama model
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434" // Default Ollama URL
		}

		client, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		emb, err := embeddings.NewEmbedder(client)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		return emb, nil
	default:
		return nil, fmt.Errorf("unknown embedder provider: %s", config.Provider)
	}
}

// LocalEmbedder is an offline feature-hashing embedder. It needs no model download,
// which keeps build-time seeding free of network access.
type LocalEmbedder struct {
	dims      int
	processor processor.Processor
}

func NewLocalEmbedder(dims int) *LocalEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &LocalEmbedder{
		dims: dims,
		processor: processor.NewWithConfig(processor.ProcessorConfig{
			RemoveStopwords: true,
			Bigrams:         true,
		}),
	}
}

func (e *LocalEmbedder) Dimensions() int {
	return e.dims
}

func (e *LocalEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors = append(vectors, e.embed(text))
	}
	return vectors, nil
}

func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *LocalEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dims)
	for _, token := range e.processor.Tokens(text) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()

		weight := float32(1.0)
		if strings.Contains(token, "_") {
			weight = 0.5
		}
		// The top bit picks the sign so unrelated collisions tend to cancel out.
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[sum%uint64(e.dims)] += weight
	}
	return normalizeVector(vec)
}

func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	for i, v := range vec {
		vec[i] = float32(float64(v) / magnitude)
	}
	return vec
}
