package store

import (
	"context"
	"testing"
)

func TestLinkIssueDocumentIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Linked"})
	doc, _ := s.CreateDocument(ctx, CreateDocumentParams{Title: "Notes", TextExcerpt: "text"})

	if err := s.LinkIssueDocument(ctx, issue.ID, doc.ID); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := s.LinkIssueDocument(ctx, issue.ID, doc.ID); err != nil {
		t.Fatalf("relink: %v", err)
	}

	docs, err := s.DocumentsForIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("documents for issue: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected 1 linked document after double link, got %d", len(docs))
	}
}

func TestUnlinkIssueDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Linked"})
	doc, _ := s.CreateDocument(ctx, CreateDocumentParams{Title: "Notes"})

	s.LinkIssueDocument(ctx, issue.ID, doc.ID)
	if err := s.UnlinkIssueDocument(ctx, issue.ID, doc.ID); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	docs, _ := s.DocumentsForIssue(ctx, issue.ID)
	if len(docs) != 0 {
		t.Errorf("expected no linked documents, got %d", len(docs))
	}
}

func TestLinkIssueMeetingIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Linked"})
	meeting, _ := s.CreateMeeting(ctx, CreateMeetingParams{Date: "2024-01-10"})

	s.LinkIssueMeeting(ctx, issue.ID, meeting.ID)
	s.LinkIssueMeeting(ctx, issue.ID, meeting.ID)

	meetings, err := s.MeetingsForIssue(ctx, issue.ID)
	if err != nil {
		t.Fatalf("meetings for issue: %v", err)
	}
	if len(meetings) != 1 {
		t.Errorf("expected 1 linked meeting, got %d", len(meetings))
	}
}

func TestLinkAcceptsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue, _ := s.CreateIssue(ctx, CreateIssueParams{Title: "Linked"})

	// Link tables have no foreign keys; a dangling document id inserts
	// cleanly and just yields no rows on the join.
	if err := s.LinkIssueDocument(ctx, issue.ID, "no-such-doc"); err != nil {
		t.Fatalf("link dangling: %v", err)
	}
	docs, _ := s.DocumentsForIssue(ctx, issue.ID)
	if len(docs) != 0 {
		t.Errorf("expected join to drop dangling link, got %d docs", len(docs))
	}
}
