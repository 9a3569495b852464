package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetIssue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, err := s.CreateIssue(ctx, CreateIssueParams{
		Title:      "  Flaky deploys  ",
		Confidence: 0.7,
		Situation:  "Deploys fail intermittently",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if issue.ID == "" {
		t.Error("expected non-empty ID")
	}
	if issue.Title != "Flaky deploys" {
		t.Errorf("expected trimmed title, got %q", issue.Title)
	}
	if issue.Domain != "General" {
		t.Errorf("expected default domain General, got %q", issue.Domain)
	}
	if issue.Status != "Open" {
		t.Errorf("expected default status Open, got %q", issue.Status)
	}

	got, err := s.GetIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Situation != "Deploys fail intermittently" {
		t.Errorf("unexpected situation %q", got.Situation)
	}
	if got.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7, got %v", got.Confidence)
	}
}

func TestGetIssueNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetIssue(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateIssue(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Original"})

	err := s.UpdateIssue(ctx, UpdateIssueParams{
		ID:         issue.ID,
		Title:      "Renamed",
		Domain:     "Infra",
		Status:     "Closed",
		Confidence: 0.9,
		Situation:  "updated",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetIssue(ctx, issue.ID)
	if got.Title != "Renamed" || got.Domain != "Infra" || got.Status != "Closed" {
		t.Errorf("update not applied: %+v", got)
	}

	err = s.UpdateIssue(ctx, UpdateIssueParams{ID: "missing", Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing issue, got %v", err)
	}
}

func TestListIssuesFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	s.CreateIssue(ctx, CreateIssueParams{Title: "A", Domain: "Infra", Status: "Open"})
	s.CreateIssue(ctx, CreateIssueParams{Title: "B", Domain: "Infra", Status: "Closed"})
	s.CreateIssue(ctx, CreateIssueParams{Title: "C", Domain: "Product", Status: "Open"})

	open, err := s.ListIssues(ctx, ListIssuesParams{Status: "Open"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("expected 2 open issues, got %d", len(open))
	}

	infra, _ := s.ListIssues(ctx, ListIssuesParams{Domain: "Infra"})
	if len(infra) != 2 {
		t.Errorf("expected 2 infra issues, got %d", len(infra))
	}

	limited, _ := s.ListIssues(ctx, ListIssuesParams{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected 1 issue with limit, got %d", len(limited))
	}
}

func TestWithTxRollback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func() error {
		if _, err := s.CreateIssue(ctx, CreateIssueParams{Title: "Doomed"}); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("expected error from tx")
	}

	issues, _ := s.ListIssues(ctx, ListIssuesParams{})
	if len(issues) != 0 {
		t.Errorf("expected rollback to discard issue, got %d issues", len(issues))
	}
}

func TestWithTxCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func() error {
		_, err := s.CreateIssue(ctx, CreateIssueParams{Title: "Kept"})
		return err
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	issues, _ := s.ListIssues(ctx, ListIssuesParams{})
	if len(issues) != 1 {
		t.Errorf("expected 1 issue after commit, got %d", len(issues))
	}
}
