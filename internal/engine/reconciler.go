package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rcliao/issuereg/internal/extract"
	"github.com/rcliao/issuereg/internal/model"
	"github.com/rcliao/issuereg/internal/store"
)

// Reconciler folds a provider's verdict into the register as append-only
// deltas with an audit revision per changed field.
type Reconciler struct {
	store Store
}

// NewReconciler creates a reconciler.
func NewReconciler(s Store) *Reconciler {
	return &Reconciler{store: s}
}

// ApplyStats summarizes one reconciliation pass.
type ApplyStats struct {
	Created        int
	Updated        int
	SkippedUpdates int
	StepsInserted  int
}

// Apply processes new-issue proposals first, then updates, in provider
// order. Updates against issue ids that no longer exist are silently
// skipped.
func (r *Reconciler) Apply(ctx context.Context, meetingID, meetingDate string, result *extract.Result) (*ApplyStats, error) {
	stats := &ApplyStats{}

	for _, proposal := range result.NewIssues {
		if err := r.applyNew(ctx, meetingID, proposal, stats); err != nil {
			return stats, err
		}
	}
	for _, proposal := range result.Updates {
		if err := r.applyUpdate(ctx, meetingID, meetingDate, proposal, stats); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (r *Reconciler) applyNew(ctx context.Context, meetingID string, proposal extract.NewIssue, stats *ApplyStats) error {
	issue, err := r.store.CreateIssue(ctx, store.CreateIssueParams{
		Title:        proposal.Title,
		Domain:       proposal.Domain,
		Status:       "Open", // forced regardless of proposal
		Confidence:   proposal.Confidence,
		Situation:    proposal.Situation,
		Complication: proposal.Complication,
		Resolution:   proposal.Resolution,
	})
	if err != nil {
		return fmt.Errorf("create issue %q: %w", proposal.Title, err)
	}
	stats.Created++

	inserted, err := r.store.InsertSuggestedSteps(ctx, issue.ID, stepDrafts(proposal.SuggestedSteps))
	if err != nil {
		return err
	}
	stats.StepsInserted += inserted

	if err := r.store.LinkIssueMeeting(ctx, issue.ID, meetingID); err != nil {
		return err
	}
	for _, docID := range proposal.DocumentIDs {
		if err := r.store.LinkIssueDocument(ctx, issue.ID, docID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) applyUpdate(ctx context.Context, meetingID, meetingDate string, proposal extract.Update, stats *ApplyStats) error {
	existing, err := r.store.GetIssue(ctx, proposal.IssueID)
	if errors.Is(err, store.ErrNotFound) {
		// Issue deleted between selection and reconciliation.
		slog.WarnContext(ctx, "update targets missing issue, skipping", "issue_id", proposal.IssueID)
		stats.SkippedUpdates++
		return nil
	}
	if err != nil {
		return err
	}

	merged := store.UpdateIssueParams{
		ID:           existing.ID,
		Title:        orExisting(proposal.Title, existing.Title),
		Domain:       orExisting(proposal.Domain, existing.Domain),
		Status:       orExisting(proposal.Status, existing.Status),
		Confidence:   existing.Confidence,
		Situation:    MergeDelta(existing.Situation, proposal.SituationDelta, "Situation", meetingDate),
		Complication: MergeDelta(existing.Complication, proposal.ComplicationDelta, "Complication", meetingDate),
		Resolution:   MergeDelta(existing.Resolution, proposal.ResolutionDelta, "Resolution", meetingDate),
	}
	if proposal.Confidence != nil {
		merged.Confidence = *proposal.Confidence
	}

	changes := fieldChanges(existing, merged)

	if err := r.store.UpdateIssue(ctx, merged); err != nil {
		return err
	}
	for _, change := range changes {
		err := r.store.AddRevision(ctx, store.RevisionParams{
			IssueID:  existing.ID,
			Field:    change.Field,
			OldValue: change.Old,
			NewValue: change.New,
			Actor:    model.ActorLLM,
		})
		if err != nil {
			return err
		}
	}

	if err := r.store.LinkIssueMeeting(ctx, existing.ID, meetingID); err != nil {
		return err
	}
	for _, docID := range proposal.DocumentIDs {
		if err := r.store.LinkIssueDocument(ctx, existing.ID, docID); err != nil {
			return err
		}
	}

	inserted, err := r.store.InsertSuggestedSteps(ctx, existing.ID, stepDrafts(proposal.SuggestedSteps))
	if err != nil {
		return err
	}
	stats.StepsInserted += inserted
	stats.Updated++
	return nil
}

// MergeDelta appends a non-empty delta to the existing narrative with a
// bracketed provenance tag. An empty delta leaves the text unchanged.
func MergeDelta(existing, delta, label, meetingDate string) string {
	delta = strings.TrimSpace(delta)
	if delta == "" {
		return existing
	}
	return existing + "\n\n[" + label + " from meeting " + meetingDate + "]\n" + delta
}

// FieldChange is one field's before/after pair in string form.
type FieldChange struct {
	Field string
	Old   string
	New   string
}

// fieldChanges lists fields whose string form differs between the
// existing issue and the merged values, in a fixed field order.
func fieldChanges(existing *model.Issue, merged store.UpdateIssueParams) []FieldChange {
	pairs := []FieldChange{
		{"title", existing.Title, merged.Title},
		{"domain", existing.Domain, merged.Domain},
		{"status", existing.Status, merged.Status},
		{"confidence", formatConfidence(existing.Confidence), formatConfidence(merged.Confidence)},
		{"situation", existing.Situation, merged.Situation},
		{"complication", existing.Complication, merged.Complication},
		{"resolution", existing.Resolution, merged.Resolution},
	}

	var changes []FieldChange
	for _, p := range pairs {
		if p.Old != p.New {
			changes = append(changes, p)
		}
	}
	return changes
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// orExisting keeps the existing value when the proposal is blank.
func orExisting(proposed, existing string) string {
	if trimmed := strings.TrimSpace(proposed); trimmed != "" {
		return trimmed
	}
	return existing
}

func stepDrafts(steps []extract.SuggestedStep) []store.StepDraft {
	drafts := make([]store.StepDraft, len(steps))
	for i, step := range steps {
		drafts[i] = store.StepDraft{
			Description: step.Description,
			Owner:       step.Owner,
			DueDate:     step.DueDate,
			Status:      step.Status,
		}
	}
	return drafts
}
