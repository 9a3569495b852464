package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/issuereg/internal/extract"
	"github.com/rcliao/issuereg/internal/store"
)

func addMeetingWithDoc(t *testing.T, s *store.SQLiteStore, date, text string) string {
	t.Helper()
	ctx := context.Background()
	meeting, err := s.CreateMeeting(ctx, store.CreateMeetingParams{Date: date})
	require.NoError(t, err)
	doc, err := s.CreateDocument(ctx, store.CreateDocumentParams{Title: "Transcript " + date, TextExcerpt: text})
	require.NoError(t, err)
	require.NoError(t, s.LinkMeetingDocument(ctx, meeting.ID, doc.ID))
	return meeting.ID
}

func newTestRunner(s *store.SQLiteStore, ext extract.Extractor, opts Options) *Runner {
	emb := &fakeEmbedder{model: "m1", vecFor: func(string) []float64 { return []float64{1, 0} }}
	return NewRunner(s, NewSelector(s, emb), ext, opts)
}

func TestRunProcessesMeetingsInDateOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Inserted out of order; the run must still go ascending.
	second := addMeetingWithDoc(t, s, "2024-02-20", "second")
	addMeetingWithDoc(t, s, "2024-01-10", "first")

	ext := &fakeExtractor{}
	report, err := newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Meetings)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, []string{"2024-01-10", "2024-02-20"}, ext.meetingDates)

	watermark, _ := s.GetState(ctx, StateWatermark)
	assert.Equal(t, "2024-02-20|"+second, watermark)
	runStart, _ := s.GetState(ctx, StateLastRunStart)
	runEnd, _ := s.GetState(ctx, StateLastRunEnd)
	assert.Equal(t, "2024-01-01", runStart)
	assert.Equal(t, "2024-12-31", runEnd)
}

func TestRunSkipsMeetingsWithoutText(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Meeting with a document that has no cached text, and one with none.
	meeting, _ := s.CreateMeeting(ctx, store.CreateMeetingParams{Date: "2024-01-10"})
	doc, _ := s.CreateDocument(ctx, store.CreateDocumentParams{Title: "Empty"})
	s.LinkMeetingDocument(ctx, meeting.ID, doc.ID)
	s.CreateMeeting(ctx, store.CreateMeetingParams{Date: "2024-01-11"})

	ext := &fakeExtractor{}
	report, err := newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Processed)
	assert.Zero(t, ext.calls)

	// Skipped meetings do not advance the watermark.
	watermark, _ := s.GetState(ctx, StateWatermark)
	assert.Empty(t, watermark)
}

func TestRunResumeSkipsAtOrBelowWatermark(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := addMeetingWithDoc(t, s, "2024-01-10", "old")
	addMeetingWithDoc(t, s, "2024-02-20", "new")
	require.NoError(t, s.SetState(ctx, StateWatermark, "2024-01-10|"+old))

	ext := &fakeExtractor{}
	report, err := newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, []string{"2024-02-20"}, ext.meetingDates)
}

func TestRunWithoutResumeIgnoresWatermark(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	addMeetingWithDoc(t, s, "2024-01-10", "old")
	require.NoError(t, s.SetState(ctx, StateWatermark, "2024-06-01"))

	ext := &fakeExtractor{}
	report, err := newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
}

func TestRunExtractionFailureKeepsEarlierMeetings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := addMeetingWithDoc(t, s, "2024-01-10", "first")
	addMeetingWithDoc(t, s, "2024-02-20", "second")

	ext := &fakeExtractor{
		results: []*extract.Result{
			{NewIssues: []extract.NewIssue{{Title: "From first meeting"}}},
		},
		errs: []error{nil, fmt.Errorf("provider unavailable")},
	}

	report, err := newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider unavailable")
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Created)

	// First meeting committed: its issue and the watermark survive.
	issues, _ := s.ListIssues(ctx, store.ListIssuesParams{})
	require.Len(t, issues, 1)
	assert.Equal(t, "From first meeting", issues[0].Title)
	watermark, _ := s.GetState(ctx, StateWatermark)
	assert.Equal(t, "2024-01-10|"+first, watermark)

	// A resumed run retries only the failed meeting.
	retry := &fakeExtractor{}
	report, err = newTestRunner(s, retry, Options{}).Run(ctx, "2024-01-01", "2024-12-31", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-02-20"}, retry.meetingDates)
	assert.Equal(t, 1, report.Processed)
}

func TestRunResumeRetriesFailedSameDateMeeting(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	// Two meetings share a date; the second one processed fails. The
	// watermark must stay meeting-granular so resume retries exactly it.
	addMeetingWithDoc(t, s, "2024-01-10", "alpha")
	addMeetingWithDoc(t, s, "2024-01-10", "beta")

	ext := &fakeExtractor{errs: []error{nil, fmt.Errorf("provider unavailable")}}
	report, err := newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.Error(t, err)
	assert.Equal(t, 1, report.Processed)
	committed := ext.documents[0][0].Text

	retry := &fakeExtractor{}
	report, err = newTestRunner(s, retry, Options{}).Run(ctx, "2024-01-01", "2024-12-31", true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Processed)
	require.Equal(t, 1, retry.calls)
	assert.NotEqual(t, committed, retry.documents[0][0].Text, "resume must retry the failed meeting, not the committed one")
}

func TestRunPassesCandidatesToExtractor(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, store.CreateIssueParams{Title: "Known issue"})
	_, err := s.AddStep(ctx, store.AddStepParams{IssueID: issue.ID, Description: "triage"})
	require.NoError(t, err)
	addMeetingWithDoc(t, s, "2024-01-10", "we discussed the known issue")

	ext := &fakeExtractor{}
	_, err = newTestRunner(s, ext, Options{}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.NoError(t, err)

	require.Equal(t, 1, ext.calls)
	require.Len(t, ext.candidates[0], 1)
	assert.Equal(t, issue.ID, ext.candidates[0][0].Issue.ID)
	require.Len(t, ext.candidates[0][0].Steps, 1)
	assert.Equal(t, "triage", ext.candidates[0][0].Steps[0].Description)
}

func TestMeetingDocumentsCharBudget(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	meeting, _ := s.CreateMeeting(ctx, store.CreateMeetingParams{Date: "2024-01-10"})
	long, _ := s.CreateDocument(ctx, store.CreateDocumentParams{Title: "Long", TextExcerpt: strings.Repeat("x", 100)})
	empty, _ := s.CreateDocument(ctx, store.CreateDocumentParams{Title: "Empty"})
	s.LinkMeetingDocument(ctx, meeting.ID, long.ID)
	s.LinkMeetingDocument(ctx, meeting.ID, empty.ID)

	ext := &fakeExtractor{}
	_, err := newTestRunner(s, ext, Options{MaxChars: 60}).Run(ctx, "2024-01-01", "2024-12-31", false)
	require.NoError(t, err)

	require.Equal(t, 1, ext.calls)
	docs := ext.documents[0]
	require.Len(t, docs, 1, "textless document dropped, long one truncated")
	assert.Equal(t, long.ID, docs[0].ID)
	assert.Len(t, docs[0].Text, 60)
}
