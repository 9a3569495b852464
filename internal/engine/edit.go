package engine

import (
	"context"
	"fmt"

	"github.com/rcliao/issuereg/internal/model"
	"github.com/rcliao/issuereg/internal/store"
)

// Edit holds a human's proposed field values for one issue. Empty
// strings keep the existing value; a nil Confidence keeps the existing
// confidence, a non-nil one replaces it (including zero). Unlike
// provider updates, narrative fields are replaced directly: a human
// editing their own register is trusted to rewrite it.
type Edit struct {
	Title        string
	Domain       string
	Status       string
	Confidence   *float64
	Situation    string
	Complication string
	Resolution   string
}

// UserEdit applies a manual edit in one transaction, writing a revision
// with actor "user" for every field whose string form changed. Returns
// the changes; an edit that changes nothing writes nothing.
func UserEdit(ctx context.Context, s Store, issueID string, e Edit) ([]FieldChange, error) {
	existing, err := s.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	merged := store.UpdateIssueParams{
		ID:           existing.ID,
		Title:        orExisting(e.Title, existing.Title),
		Domain:       orExisting(e.Domain, existing.Domain),
		Status:       orExisting(e.Status, existing.Status),
		Confidence:   existing.Confidence,
		Situation:    orExisting(e.Situation, existing.Situation),
		Complication: orExisting(e.Complication, existing.Complication),
		Resolution:   orExisting(e.Resolution, existing.Resolution),
	}
	if e.Confidence != nil {
		merged.Confidence = *e.Confidence
	}

	changes := fieldChanges(existing, merged)
	if len(changes) == 0 {
		return nil, nil
	}

	err = s.WithTx(ctx, func() error {
		if err := s.UpdateIssue(ctx, merged); err != nil {
			return err
		}
		for _, change := range changes {
			err := s.AddRevision(ctx, store.RevisionParams{
				IssueID:  existing.ID,
				Field:    change.Field,
				OldValue: change.Old,
				NewValue: change.New,
				Actor:    model.ActorUser,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit issue %s: %w", issueID, err)
	}
	return changes, nil
}
