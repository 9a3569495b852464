package store

import (
	"context"
	"testing"

	"github.com/rcliao/issuereg/internal/model"
)

func TestRevisionsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Audited"})

	params := []RevisionParams{
		{IssueID: issue.ID, Field: "title", OldValue: "Audited", NewValue: "Renamed", Actor: model.ActorLLM},
		{IssueID: issue.ID, Field: "status", OldValue: "Open", NewValue: "Closed", Actor: model.ActorUser},
	}
	for _, p := range params {
		if err := s.AddRevision(ctx, p); err != nil {
			t.Fatalf("add revision: %v", err)
		}
	}

	revs, err := s.RevisionsForIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revs) != 2 {
		t.Fatalf("expected 2 revisions, got %d", len(revs))
	}
	byField := map[string]RevisionParams{}
	for _, rev := range revs {
		byField[rev.Field] = RevisionParams{
			IssueID: rev.IssueID, Field: rev.Field,
			OldValue: rev.OldValue, NewValue: rev.NewValue, Actor: rev.Actor,
		}
	}
	for _, p := range params {
		got, ok := byField[p.Field]
		if !ok {
			t.Fatalf("missing revision for field %s", p.Field)
		}
		if got != p {
			t.Errorf("revision mismatch for %s: got %+v, want %+v", p.Field, got, p)
		}
	}
}

func TestRevisionsForIssueEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Quiet"})
	revs, err := s.RevisionsForIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("revisions: %v", err)
	}
	if len(revs) != 0 {
		t.Errorf("expected no revisions, got %d", len(revs))
	}
}
