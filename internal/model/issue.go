// Package model defines the typed records of the issue register.
package model

import "time"

// Actor values recorded on revisions.
const (
	ActorUser  = "user"
	ActorLLM   = "llm"
	ActorMerge = "merge"
)

// Issue is one tracked problem in the register. The three narrative
// fields grow only by append; see engine.MergeDelta.
type Issue struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Domain       string    `json:"domain"`
	Status       string    `json:"status"`
	Confidence   float64   `json:"confidence"`
	Situation    string    `json:"situation"`
	Complication string    `json:"complication"`
	Resolution   string    `json:"resolution"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Step is an ordered action item belonging to one issue. Position is
// 1-based and contiguous within the issue.
type Step struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issue_id"`
	Description string    `json:"description"`
	Owner       string    `json:"owner,omitempty"`
	DueDate     string    `json:"due_date,omitempty"`
	Status      string    `json:"status"`
	Position    int       `json:"position"`
	Suggested   bool      `json:"suggested"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Revision is an immutable audit record of one field change.
type Revision struct {
	ID        string    `json:"id"`
	IssueID   string    `json:"issue_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// EmbeddingRecord is the cached similarity vector for one issue,
// tagged with the embedding model that produced it. At most one per
// issue.
type EmbeddingRecord struct {
	IssueID   string    `json:"issue_id"`
	Model     string    `json:"model"`
	Vector    []float64 `json:"vector"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meeting is one transcript-bearing session.
type Meeting struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Title     string    `json:"title"`
	SourceTag string    `json:"source_tag,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an evidence document with its cached text.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Path        string    `json:"path"`
	Tags        string    `json:"tags,omitempty"`
	TextExcerpt string    `json:"text_excerpt,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
