// Package engine implements candidate selection and delta
// reconciliation over the issue register.
package engine

import (
	"context"

	"github.com/rcliao/issuereg/internal/model"
	"github.com/rcliao/issuereg/internal/store"
)

// Store is the register contract the engine runs against, satisfied by
// *store.SQLiteStore. All mutations go through the caller-supplied
// store; one transaction scope per meeting (see Runner).
type Store interface {
	CreateIssue(ctx context.Context, p store.CreateIssueParams) (*model.Issue, error)
	GetIssue(ctx context.Context, id string) (*model.Issue, error)
	UpdateIssue(ctx context.Context, p store.UpdateIssueParams) error
	ListIssues(ctx context.Context, p store.ListIssuesParams) ([]model.Issue, error)

	InsertSuggestedSteps(ctx context.Context, issueID string, drafts []store.StepDraft) (int, error)
	StepsByIssue(ctx context.Context) (map[string][]model.Step, error)

	AddRevision(ctx context.Context, p store.RevisionParams) error

	LinkIssueMeeting(ctx context.Context, issueID, meetingID string) error
	LinkIssueDocument(ctx context.Context, issueID, documentID string) error

	GetVectors(ctx context.Context, issueIDs []string) (map[string]model.EmbeddingRecord, error)
	PutVector(ctx context.Context, issueID, embedModel string, vector []float64) error

	MeetingsBetween(ctx context.Context, start, end string) ([]model.Meeting, error)
	DocumentsForMeeting(ctx context.Context, meetingID string) ([]model.Document, error)

	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error

	WithTx(ctx context.Context, fn func() error) error
}
