// Package embedding provides the text-embedding provider interface and
// cosine similarity used for candidate selection.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no embedding model is configured.
const DefaultModel = "text-embedding-3-small"

// Vector is a similarity vector.
type Vector = []float64

// Embedder generates embedding vectors from text in a single batched,
// order-preserving call per invocation.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([]Vector, error)
	Model() string
}

// CosineSimilarity computes cosine similarity between two vectors.
// It is 0 for empty, mismatched-length, or all-zero inputs.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// OpenAIEmbedder batches texts through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// Config holds embedder configuration. The model identifier is an
// explicit value so callers and tests control staleness deterministically.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewOpenAIEmbedder creates an embedder for the configured model.
func NewOpenAIEmbedder(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Embed embeds all texts in one API call, preserving input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	start := time.Now()
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(resp.Data))
	}

	slog.DebugContext(ctx, "embedding batch completed",
		"model", e.model,
		"texts", len(texts),
		"duration_ms", time.Since(start).Milliseconds())

	vectors := make([]Vector, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Model returns the configured embedding model identifier.
func (e *OpenAIEmbedder) Model() string {
	return e.model
}
