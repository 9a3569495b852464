package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rcliao/issuereg/internal/embedding"
	"github.com/rcliao/issuereg/internal/extract"
	"github.com/rcliao/issuereg/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeEmbedder maps texts to vectors through vecFor and counts calls so
// tests can assert batching behavior.
type fakeEmbedder struct {
	model   string
	vecFor  func(text string) embedding.Vector
	calls   int
	batches [][]string
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([]embedding.Vector, error) {
	f.calls++
	f.batches = append(f.batches, texts)
	vectors := make([]embedding.Vector, len(texts))
	for i, text := range texts {
		vectors[i] = f.vecFor(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Model() string { return f.model }

// fakeExtractor replays canned results per call and records the inputs
// it was given.
type fakeExtractor struct {
	results []*extract.Result
	errs    []error
	calls   int

	meetingDates []string
	candidates   [][]extract.IssueContext
	documents    [][]extract.Document
}

func (f *fakeExtractor) Extract(ctx context.Context, meetingDate string, documents []extract.Document, existing []extract.IssueContext) (*extract.Result, error) {
	i := f.calls
	f.calls++
	f.meetingDates = append(f.meetingDates, meetingDate)
	f.candidates = append(f.candidates, existing)
	f.documents = append(f.documents, documents)

	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return &extract.Result{}, nil
}
