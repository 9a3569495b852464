package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/rcliao/issuereg/internal/embedding"
	"github.com/rcliao/issuereg/internal/model"
)

// DefaultCandidateLimit bounds the candidate set passed to the
// extraction provider per meeting.
const DefaultCandidateLimit = 50

// Selector narrows the register to the issues most semantically related
// to one meeting, refreshing stale or missing vectors first. A vector is
// stale exactly when its cached model tag differs from the embedder's
// model; no other invalidation rule exists.
type Selector struct {
	store    Store
	embedder embedding.Embedder
}

// NewSelector creates a candidate selector.
func NewSelector(s Store, e embedding.Embedder) *Selector {
	return &Selector{store: s, embedder: e}
}

// Select returns the top-limit issues ranked by cosine similarity to the
// meeting text, ties keeping the register's prior order. An empty
// register short-circuits without calling the embedding provider.
func (s *Selector) Select(ctx context.Context, issues []model.Issue, stepsByIssue map[string][]model.Step, meetingText string, limit int) ([]model.Issue, error) {
	if len(issues) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultCandidateLimit
	}

	modelID := s.embedder.Model()

	ids := make([]string, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
	}
	vectors, err := s.store.GetVectors(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch vectors: %w", err)
	}

	var staleIDs []string
	var staleTexts []string
	for _, issue := range issues {
		rec, ok := vectors[issue.ID]
		if ok && rec.Model == modelID {
			continue
		}
		staleIDs = append(staleIDs, issue.ID)
		staleTexts = append(staleTexts, canonicalText(issue, stepsByIssue[issue.ID]))
	}

	if len(staleIDs) > 0 {
		refreshed, err := s.embedder.Embed(ctx, staleTexts)
		if err != nil {
			return nil, fmt.Errorf("embed issues: %w", err)
		}
		for i, id := range staleIDs {
			if err := s.store.PutVector(ctx, id, modelID, refreshed[i]); err != nil {
				return nil, err
			}
			vectors[id] = model.EmbeddingRecord{IssueID: id, Model: modelID, Vector: refreshed[i]}
		}
		slog.DebugContext(ctx, "refreshed stale vectors", "count", len(staleIDs), "model", modelID)
	}

	meetingVecs, err := s.embedder.Embed(ctx, []string{meetingText})
	if err != nil {
		return nil, fmt.Errorf("embed meeting text: %w", err)
	}
	if len(meetingVecs) != 1 {
		return nil, fmt.Errorf("expected 1 meeting vector, got %d", len(meetingVecs))
	}
	meetingVec := meetingVecs[0]

	scores := make([]float64, len(issues))
	for i, issue := range issues {
		scores[i] = embedding.CosineSimilarity(vectors[issue.ID].Vector, meetingVec)
	}

	order := make([]int, len(issues))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if limit > len(order) {
		limit = len(order)
	}
	candidates := make([]model.Issue, limit)
	for i := 0; i < limit; i++ {
		candidates[i] = issues[order[i]]
	}
	return candidates, nil
}

// canonicalText is the embedded representation of an issue: its scalar
// fields plus a flattened rendering of its steps.
func canonicalText(issue model.Issue, steps []model.Step) string {
	parts := []string{
		issue.Title,
		issue.Domain,
		issue.Status,
		issue.Situation,
		issue.Complication,
		issue.Resolution,
	}
	if len(steps) > 0 {
		flat := make([]string, len(steps))
		for i, step := range steps {
			flat[i] = step.Description + "|" + step.Owner + "|" + step.DueDate + "|" + step.Status
		}
		parts = append(parts, strings.Join(flat, "; "))
	}
	return strings.Join(parts, "\n")
}
