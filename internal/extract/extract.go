// Package extract calls the structured-text-extraction provider that
// proposes new issues and updates from meeting transcripts.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/issuereg/internal/model"
)

// Document is the transcript payload handed to the provider.
type Document struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Path  string `json:"path"`
	Text  string `json:"text"`
}

// IssueContext is one candidate issue with its current steps.
type IssueContext struct {
	Issue model.Issue
	Steps []model.Step
}

// SuggestedStep is a provider-proposed action item.
type SuggestedStep struct {
	Description string `json:"description"`
	Owner       string `json:"owner"`
	DueDate     string `json:"due_date"`
	Status      string `json:"status"`
}

// NewIssue is a provider proposal for an issue not yet in the register.
type NewIssue struct {
	Title          string          `json:"title"`
	Domain         string          `json:"domain"`
	Confidence     float64         `json:"confidence"`
	Situation      string          `json:"situation"`
	Complication   string          `json:"complication"`
	Resolution     string          `json:"resolution"`
	SuggestedSteps []SuggestedStep `json:"suggested_steps"`
	DocumentIDs    []string        `json:"document_ids"`
}

// Update is a provider proposal against an existing issue. The delta
// fields are appended to the narrative, never overwriting it. A nil
// Confidence means the provider supplied no value; zero is a real value.
type Update struct {
	IssueID           string          `json:"issue_id"`
	Title             string          `json:"title"`
	Domain            string          `json:"domain"`
	Status            string          `json:"status"`
	Confidence        *float64        `json:"confidence"`
	SituationDelta    string          `json:"situation_delta"`
	ComplicationDelta string          `json:"complication_delta"`
	ResolutionDelta   string          `json:"resolution_delta"`
	SuggestedSteps    []SuggestedStep `json:"suggested_steps"`
	DocumentIDs       []string        `json:"document_ids"`
}

// Result is the provider's verdict for one meeting.
type Result struct {
	NewIssues []NewIssue `json:"new_issues"`
	Updates   []Update   `json:"updates"`
}

// Extractor proposes register changes from one meeting's transcripts
// and a narrowed candidate set. The provider enforces required-field
// presence through its response schema; callers do not re-validate.
type Extractor interface {
	Extract(ctx context.Context, meetingDate string, documents []Document, existing []IssueContext) (*Result, error)
}

const systemPrompt = "You analyze meeting transcripts and update an issue register using the " +
	"SCR (situation, complication, resolution) framework. " +
	"You must return JSON that exactly matches the schema."

// buildUserPrompt renders the meeting, candidate issues, and transcripts
// into the provider prompt.
func buildUserPrompt(meetingDate string, documents []Document, existing []IssueContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Meeting date: %s\n\n", meetingDate)

	b.WriteString("Existing issues:\n")
	for _, ic := range existing {
		issue := ic.Issue
		fmt.Fprintf(&b, "Issue %s: %s\n", issue.ID, issue.Title)
		fmt.Fprintf(&b, "Domain: %s | Status: %s | Confidence: %.2f\n", issue.Domain, issue.Status, issue.Confidence)
		fmt.Fprintf(&b, "Situation: %s\n", issue.Situation)
		fmt.Fprintf(&b, "Complication: %s\n", issue.Complication)
		fmt.Fprintf(&b, "Resolution: %s\n", issue.Resolution)
		if len(ic.Steps) > 0 {
			b.WriteString("Next steps:\n")
			for _, step := range ic.Steps {
				fmt.Fprintf(&b, "  %d. %s (owner: %s, due: %s, status: %s)\n",
					step.Position, step.Description, step.Owner, step.DueDate, step.Status)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("Documents:\n")
	for _, doc := range documents {
		fmt.Fprintf(&b, "Document %s: %s\nPath: %s\nTranscript:\n%s\n\n", doc.ID, doc.Title, doc.Path, doc.Text)
	}

	b.WriteString("Tasks:\n" +
		"1) Identify new issues that are not covered by existing issues.\n" +
		"2) For existing issues, provide deltas to add to SCR and suggested next steps.\n" +
		"3) For updates, choose the best matching issue_id.\n" +
		"4) Use document ids from the documents list for evidence.\n" +
		"5) Be conservative: only create issues if clearly distinct.\n" +
		"6) Provide confidence from 0 to 1.\n")

	return b.String()
}
