package store

import (
	"context"
	"fmt"

	"github.com/rcliao/issuereg/internal/model"
)

// RevisionParams holds fields for one audit record.
type RevisionParams struct {
	IssueID  string
	Field    string
	OldValue string
	NewValue string
	Actor    string // model.ActorUser, ActorLLM, or ActorMerge
}

// AddRevision appends an immutable audit record. Revisions are never
// updated or deleted while their issue exists.
func (s *SQLiteStore) AddRevision(ctx context.Context, p RevisionParams) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT INTO issue_revisions (id, issue_id, field, old_value, new_value, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), p.IssueID, p.Field, p.OldValue, p.NewValue, p.Actor, nowISO())
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// RevisionsForIssue returns the issue's audit trail, newest first.
func (s *SQLiteStore) RevisionsForIssue(ctx context.Context, issueID string) ([]model.Revision, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT id, issue_id, field, old_value, new_value, actor, created_at
		 FROM issue_revisions WHERE issue_id = ?
		 ORDER BY created_at DESC, id DESC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revisions []model.Revision
	for rows.Next() {
		var rev model.Revision
		var createdAt string
		if err := rows.Scan(&rev.ID, &rev.IssueID, &rev.Field, &rev.OldValue, &rev.NewValue, &rev.Actor, &createdAt); err != nil {
			return nil, err
		}
		rev.CreatedAt = parseISO(createdAt)
		revisions = append(revisions, rev)
	}
	return revisions, rows.Err()
}
