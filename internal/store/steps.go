package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/issuereg/internal/model"
)

// Step positions within an issue form a contiguous 1..N run. Every
// operation here preserves that invariant, including delete, which
// compacts the positions above the removed step.

// AddStepParams holds fields for a new step.
type AddStepParams struct {
	IssueID     string
	Description string
	Owner       string
	DueDate     string
	Status      string
	Position    int // <= 0 appends at the end
	Suggested   bool
}

// AddStep inserts a step. A position of zero or less, or past the end
// of the run, appends after the current last step; otherwise existing
// steps at or above the position shift up by one to make room.
func (s *SQLiteStore) AddStep(ctx context.Context, p AddStepParams) (*model.Step, error) {
	description := strings.TrimSpace(p.Description)
	if description == "" {
		return nil, fmt.Errorf("step description is required")
	}

	status := strings.TrimSpace(p.Status)
	if status == "" {
		status = "Open"
	}

	maxPos, err := s.maxPosition(ctx, p.IssueID)
	if err != nil {
		return nil, err
	}
	position := p.Position
	if position <= 0 || position > maxPos {
		position = maxPos + 1
	} else {
		_, err := s.conn().ExecContext(ctx,
			`UPDATE issue_steps SET position = position + 1, updated_at = ?
			 WHERE issue_id = ? AND position >= ?`,
			nowISO(), p.IssueID, position)
		if err != nil {
			return nil, fmt.Errorf("shift steps: %w", err)
		}
	}

	now := nowISO()
	step := &model.Step{
		ID:          s.newID(),
		IssueID:     p.IssueID,
		Description: description,
		Owner:       strings.TrimSpace(p.Owner),
		DueDate:     strings.TrimSpace(p.DueDate),
		Status:      status,
		Position:    position,
		Suggested:   p.Suggested,
		CreatedAt:   parseISO(now),
		UpdatedAt:   parseISO(now),
	}

	_, err = s.conn().ExecContext(ctx,
		`INSERT INTO issue_steps (id, issue_id, description, owner, due_date, status, position, suggested, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		step.ID, step.IssueID, step.Description, step.Owner, step.DueDate,
		step.Status, step.Position, boolToInt(step.Suggested), now, now)
	if err != nil {
		return nil, fmt.Errorf("insert step: %w", err)
	}
	return step, nil
}

// MoveStep moves a step to the given position, clamped into [1, N],
// shifting the steps between the old and new positions.
func (s *SQLiteStore) MoveStep(ctx context.Context, stepID string, position int) error {
	step, err := s.getStep(ctx, stepID)
	if err != nil {
		return err
	}

	maxPos, err := s.maxPosition(ctx, step.IssueID)
	if err != nil {
		return err
	}
	if position < 1 {
		position = 1
	}
	if position > maxPos {
		position = maxPos
	}
	if position == step.Position {
		return nil
	}

	now := nowISO()
	if position > step.Position {
		// Moving forward: close the gap behind, within (old, new].
		_, err = s.conn().ExecContext(ctx,
			`UPDATE issue_steps SET position = position - 1, updated_at = ?
			 WHERE issue_id = ? AND position > ? AND position <= ?`,
			now, step.IssueID, step.Position, position)
	} else {
		// Moving backward: make room ahead, within [new, old).
		_, err = s.conn().ExecContext(ctx,
			`UPDATE issue_steps SET position = position + 1, updated_at = ?
			 WHERE issue_id = ? AND position >= ? AND position < ?`,
			now, step.IssueID, position, step.Position)
	}
	if err != nil {
		return fmt.Errorf("shift steps: %w", err)
	}

	_, err = s.conn().ExecContext(ctx,
		`UPDATE issue_steps SET position = ?, updated_at = ? WHERE id = ?`,
		position, now, stepID)
	if err != nil {
		return fmt.Errorf("move step: %w", err)
	}
	return nil
}

// DeleteStep removes a step and compacts the positions above it so the
// remaining steps stay contiguous.
func (s *SQLiteStore) DeleteStep(ctx context.Context, stepID string) error {
	step, err := s.getStep(ctx, stepID)
	if err != nil {
		return err
	}

	if _, err := s.conn().ExecContext(ctx, `DELETE FROM issue_steps WHERE id = ?`, stepID); err != nil {
		return fmt.Errorf("delete step: %w", err)
	}

	_, err = s.conn().ExecContext(ctx,
		`UPDATE issue_steps SET position = position - 1, updated_at = ?
		 WHERE issue_id = ? AND position > ?`,
		nowISO(), step.IssueID, step.Position)
	if err != nil {
		return fmt.Errorf("compact steps: %w", err)
	}
	return nil
}

// AcceptStep clears the suggested flag, marking human endorsement.
func (s *SQLiteStore) AcceptStep(ctx context.Context, stepID string) error {
	res, err := s.conn().ExecContext(ctx,
		`UPDATE issue_steps SET suggested = 0, updated_at = ? WHERE id = ?`,
		nowISO(), stepID)
	if err != nil {
		return fmt.Errorf("accept step: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("step %s: %w", stepID, ErrNotFound)
	}
	return nil
}

// StepDraft is an unsaved step proposed by the extraction provider.
type StepDraft struct {
	Description string
	Owner       string
	DueDate     string
	Status      string
}

// InsertSuggestedSteps appends drafts in order after the issue's current
// last step, each flagged suggested. Drafts with a blank description are
// silently dropped. Returns the number of steps inserted.
func (s *SQLiteStore) InsertSuggestedSteps(ctx context.Context, issueID string, drafts []StepDraft) (int, error) {
	position, err := s.maxPosition(ctx, issueID)
	if err != nil {
		return 0, err
	}

	inserted := 0
	now := nowISO()
	for _, d := range drafts {
		description := strings.TrimSpace(d.Description)
		if description == "" {
			continue
		}
		status := strings.TrimSpace(d.Status)
		if status == "" {
			status = "Open"
		}
		position++
		_, err := s.conn().ExecContext(ctx,
			`INSERT INTO issue_steps (id, issue_id, description, owner, due_date, status, position, suggested, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			s.newID(), issueID, description, strings.TrimSpace(d.Owner),
			strings.TrimSpace(d.DueDate), status, position, now, now)
		if err != nil {
			return inserted, fmt.Errorf("insert suggested step: %w", err)
		}
		inserted++
	}
	return inserted, nil
}

// StepsForIssue returns the issue's steps ordered by position.
func (s *SQLiteStore) StepsForIssue(ctx context.Context, issueID string) ([]model.Step, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT id, issue_id, description, owner, due_date, status, position, suggested, created_at, updated_at
		 FROM issue_steps WHERE issue_id = ? ORDER BY position ASC, created_at ASC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSteps(rows)
}

// StepsByIssue returns all steps grouped by issue id.
func (s *SQLiteStore) StepsByIssue(ctx context.Context) (map[string][]model.Step, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT id, issue_id, description, owner, due_date, status, position, suggested, created_at, updated_at
		 FROM issue_steps ORDER BY issue_id, position ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	steps, err := scanSteps(rows)
	if err != nil {
		return nil, err
	}

	byIssue := make(map[string][]model.Step)
	for _, step := range steps {
		byIssue[step.IssueID] = append(byIssue[step.IssueID], step)
	}
	return byIssue, nil
}

func (s *SQLiteStore) getStep(ctx context.Context, stepID string) (*model.Step, error) {
	row := s.conn().QueryRowContext(ctx,
		`SELECT id, issue_id, description, owner, due_date, status, position, suggested, created_at, updated_at
		 FROM issue_steps WHERE id = ?`, stepID)
	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("step %s: %w", stepID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &step, nil
}

func (s *SQLiteStore) maxPosition(ctx context.Context, issueID string) (int, error) {
	var maxPos int
	err := s.conn().QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM issue_steps WHERE issue_id = ?`, issueID).Scan(&maxPos)
	if err != nil {
		return 0, fmt.Errorf("max position: %w", err)
	}
	return maxPos, nil
}

func scanStep(row scanner) (model.Step, error) {
	var step model.Step
	var suggested int
	var createdAt, updatedAt string
	err := row.Scan(
		&step.ID, &step.IssueID, &step.Description, &step.Owner, &step.DueDate,
		&step.Status, &step.Position, &suggested, &createdAt, &updatedAt,
	)
	if err != nil {
		return step, err
	}
	step.Suggested = suggested != 0
	step.CreatedAt = parseISO(createdAt)
	step.UpdatedAt = parseISO(updatedAt)
	return step, nil
}

func scanSteps(rows *sql.Rows) ([]model.Step, error) {
	var steps []model.Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
