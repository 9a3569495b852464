package embedding

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	a := Vector{1, 2, 3}
	b := Vector{2, 4, 6}

	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9, "parallel vectors")
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9, "identical vectors")
	assert.InDelta(t, 0.0, CosineSimilarity(Vector{1, 0}, Vector{0, 1}), 1e-9, "orthogonal vectors")
	assert.InDelta(t, -1.0, CosineSimilarity(Vector{1, 0}, Vector{-1, 0}), 1e-9, "opposite vectors")
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := Vector{0.3, -0.7, 0.2}
	b := Vector{0.9, 0.1, -0.4}
	assert.Equal(t, CosineSimilarity(a, b), CosineSimilarity(b, a))
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity(Vector{1, 2}, Vector{1, 2, 3}), "mismatched lengths")
	assert.Equal(t, 0.0, CosineSimilarity(Vector{0, 0}, Vector{1, 1}), "zero vector")
	assert.False(t, math.IsNaN(CosineSimilarity(Vector{0, 0}, Vector{0, 0})))
}

func TestNewOpenAIEmbedderRequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(Config{})
	assert.Error(t, err)

	e, err := NewOpenAIEmbedder(Config{APIKey: "sk-test"})
	assert.NoError(t, err)
	assert.Equal(t, DefaultModel, e.Model())

	e, err = NewOpenAIEmbedder(Config{APIKey: "sk-test", Model: "text-embedding-3-large"})
	assert.NoError(t, err)
	assert.Equal(t, "text-embedding-3-large", e.Model())
}
