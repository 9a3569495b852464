package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rcliao/issuereg/internal/extract"
	"github.com/rcliao/issuereg/internal/model"
	"github.com/rcliao/issuereg/internal/store"
)

// App-state keys written by the runner.
const (
	StateWatermark    = "meeting_watermark"
	StateLastRunStart = "last_run_start"
	StateLastRunEnd   = "last_run_end"
)

// DefaultMaxChars bounds the combined transcript text per meeting.
const DefaultMaxChars = 120000

// Options tunes a reconciliation run.
type Options struct {
	MaxChars       int // per-meeting transcript budget; 0 means DefaultMaxChars
	CandidateLimit int // 0 means DefaultCandidateLimit
	MaxIssues      int // register slice offered to selection; 0 means all
}

// Runner drives one batch reconciliation pass: meetings in ascending
// date order, one transaction per meeting, watermark advanced inside
// the same transaction so an aborted run resumes cleanly. Provider
// failures abort the run; completed meetings stay durable.
type Runner struct {
	store      Store
	selector   *Selector
	extractor  extract.Extractor
	reconciler *Reconciler
	opts       Options
}

// NewRunner wires the engine components against one open store.
func NewRunner(s Store, selector *Selector, extractor extract.Extractor, opts Options) *Runner {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.CandidateLimit <= 0 {
		opts.CandidateLimit = DefaultCandidateLimit
	}
	return &Runner{
		store:      s,
		selector:   selector,
		extractor:  extractor,
		reconciler: NewReconciler(s),
		opts:       opts,
	}
}

// RunReport summarizes a completed run.
type RunReport struct {
	Meetings       int `json:"meetings"`
	Processed      int `json:"processed"`
	Skipped        int `json:"skipped"`
	Created        int `json:"created"`
	Updated        int `json:"updated"`
	SkippedUpdates int `json:"skipped_updates"`
	StepsInserted  int `json:"steps_inserted"`
}

// Run processes all meetings dated within [start, end]. With resume,
// meetings at or before the stored watermark are skipped.
func (r *Runner) Run(ctx context.Context, start, end string, resume bool) (*RunReport, error) {
	watermark := ""
	if resume {
		var err error
		watermark, err = r.store.GetState(ctx, StateWatermark)
		if err != nil {
			return nil, err
		}
	}

	meetings, err := r.store.MeetingsBetween(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	report := &RunReport{Meetings: len(meetings)}
	for _, meeting := range meetings {
		if resume && watermark != "" && atOrBehindWatermark(meeting, watermark) {
			report.Skipped++
			continue
		}

		documents, err := r.meetingDocuments(ctx, meeting)
		if err != nil {
			return report, err
		}
		if len(documents) == 0 {
			slog.InfoContext(ctx, "meeting has no transcript text, skipping",
				"meeting_id", meeting.ID, "date", meeting.Date)
			report.Skipped++
			continue
		}

		err = r.store.WithTx(ctx, func() error {
			stats, err := r.processMeeting(ctx, meeting, documents)
			if err != nil {
				return err
			}
			report.Created += stats.Created
			report.Updated += stats.Updated
			report.SkippedUpdates += stats.SkippedUpdates
			report.StepsInserted += stats.StepsInserted
			return r.store.SetState(ctx, StateWatermark, watermarkFor(meeting))
		})
		if err != nil {
			return report, fmt.Errorf("meeting %s (%s): %w", meeting.ID, meeting.Date, err)
		}
		report.Processed++
	}

	if err := r.store.SetState(ctx, StateLastRunStart, start); err != nil {
		return report, err
	}
	if err := r.store.SetState(ctx, StateLastRunEnd, end); err != nil {
		return report, err
	}
	return report, nil
}

// watermarkFor identifies a committed meeting. The id component keeps
// the watermark meeting-granular: several meetings can share a date, and
// skipping by date alone would drop a failed same-date meeting on resume.
func watermarkFor(m model.Meeting) string {
	return m.Date + "|" + m.ID
}

// atOrBehindWatermark reports whether the meeting sorts at or before the
// watermark in the run's (date, id) iteration order. A bare-date
// watermark skips strictly earlier dates only.
func atOrBehindWatermark(m model.Meeting, watermark string) bool {
	date, id, _ := strings.Cut(watermark, "|")
	if m.Date != date {
		return m.Date < date
	}
	return id != "" && m.ID <= id
}

func (r *Runner) processMeeting(ctx context.Context, meeting model.Meeting, documents []extract.Document) (*ApplyStats, error) {
	issues, err := r.store.ListIssues(ctx, store.ListIssuesParams{Limit: r.opts.MaxIssues})
	if err != nil {
		return nil, err
	}
	stepsByIssue, err := r.store.StepsByIssue(ctx)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(documents))
	for i, doc := range documents {
		texts[i] = doc.Text
	}
	candidates, err := r.selector.Select(ctx, issues, stepsByIssue, strings.Join(texts, "\n\n"), r.opts.CandidateLimit)
	if err != nil {
		return nil, err
	}

	contexts := make([]extract.IssueContext, len(candidates))
	for i, issue := range candidates {
		contexts[i] = extract.IssueContext{Issue: issue, Steps: stepsByIssue[issue.ID]}
	}

	result, err := r.extractor.Extract(ctx, meeting.Date, documents, contexts)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	slog.InfoContext(ctx, "reconciling meeting",
		"meeting_id", meeting.ID, "date", meeting.Date,
		"candidates", len(candidates),
		"new_issues", len(result.NewIssues), "updates", len(result.Updates))

	return r.reconciler.Apply(ctx, meeting.ID, meeting.Date, result)
}

// meetingDocuments loads a meeting's documents and applies the
// per-meeting character budget, in document order. Documents without
// cached text are dropped.
func (r *Runner) meetingDocuments(ctx context.Context, meeting model.Meeting) ([]extract.Document, error) {
	docs, err := r.store.DocumentsForMeeting(ctx, meeting.ID)
	if err != nil {
		return nil, fmt.Errorf("documents for meeting %s: %w", meeting.ID, err)
	}

	var payloads []extract.Document
	budget := r.opts.MaxChars
	for _, doc := range docs {
		text := doc.TextExcerpt
		if text == "" {
			continue
		}
		if len(text) > budget {
			text = text[:budget]
		}
		budget -= len(text)
		payloads = append(payloads, extract.Document{
			ID:    doc.ID,
			Title: doc.Title,
			Path:  doc.Path,
			Text:  text,
		})
		if budget <= 0 {
			break
		}
	}
	return payloads, nil
}
