package llm_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/vision-sync/pkg/llm"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestNewEmbedderWithConfig(t *testing.T) {
	emb, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "local", Dimensions: 128})
	require.NoError(t, err)
	assert.NotNil(t, emb)

	_, err = llm.NewEmbedderWithConfig(llm.EmbedderConfig{Provider: "word2vec"})
	assert.Error(t, err)
}

func TestLocalEmbedder_Deterministic(t *testing.T) {
	emb := llm.NewLocalEmbedder(384)
	ctx := context.Background()

	a, err := emb.EmbedQuery(ctx, "chair, couch")
	require.NoError(t, err)
	b, err := emb.EmbedQuery(ctx, "chair, couch")
	require.NoError(t, err)

	assert.Len(t, a, 384)
	assert.Equal(t, a, b)
}

func TestLocalEmbedder_Normalized(t *testing.T) {
	emb := llm.NewLocalEmbedder(256)

	vectors, err := emb.EmbedDocuments(context.Background(), []string{
		"Low-profile platform bed frame in solid walnut.",
		"Ergonomic mesh office chair with lumbar support.",
	})
	require.NoError(t, err)
	require.Len(t, vectors, 2)

	for _, v := range vectors {
		assert.InDelta(t, 1.0, math.Sqrt(cosine(v, v)), 1e-5)
	}
}

func TestLocalEmbedder_SharedTermsAreCloser(t *testing.T) {
	emb := llm.NewLocalEmbedder(384)
	ctx := context.Background()

	query, err := emb.EmbedQuery(ctx, "bed")
	require.NoError(t, err)
	docs, err := emb.EmbedDocuments(ctx, []string{
		"Low-profile platform bed frame in solid walnut with integrated headboard.",
		"Wall-mounted industrial wine rack in wrought iron.",
	})
	require.NoError(t, err)

	assert.Greater(t, cosine(query, docs[0]), cosine(query, docs[1]))
}

func TestLocalEmbedder_CanceledContext(t *testing.T) {
	emb := llm.NewLocalEmbedder(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := emb.EmbedDocuments(ctx, []string{"sofa"})
	assert.ErrorIs(t, err, context.Canceled)
}
