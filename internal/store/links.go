package store

import (
	"context"
	"fmt"

	"github.com/rcliao/issuereg/internal/model"
)

// Link inserts are idempotent: inserting an existing pair is a no-op.
// Cited ids are written as-is; the caller is responsible for supplying
// ids from the candidate set it handed to the provider.

// LinkIssueDocument records that a document is evidence for an issue.
func (s *SQLiteStore) LinkIssueDocument(ctx context.Context, issueID, documentID string) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO issue_document_links (issue_id, document_id) VALUES (?, ?)`,
		issueID, documentID)
	if err != nil {
		return fmt.Errorf("link issue document: %w", err)
	}
	return nil
}

// UnlinkIssueDocument removes an issue-document link.
func (s *SQLiteStore) UnlinkIssueDocument(ctx context.Context, issueID, documentID string) error {
	_, err := s.conn().ExecContext(ctx,
		`DELETE FROM issue_document_links WHERE issue_id = ? AND document_id = ?`,
		issueID, documentID)
	if err != nil {
		return fmt.Errorf("unlink issue document: %w", err)
	}
	return nil
}

// LinkIssueMeeting records that an issue was discussed in a meeting.
func (s *SQLiteStore) LinkIssueMeeting(ctx context.Context, issueID, meetingID string) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO issue_meeting_links (issue_id, meeting_id) VALUES (?, ?)`,
		issueID, meetingID)
	if err != nil {
		return fmt.Errorf("link issue meeting: %w", err)
	}
	return nil
}

// LinkMeetingDocument attaches a document to a meeting.
func (s *SQLiteStore) LinkMeetingDocument(ctx context.Context, meetingID, documentID string) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT OR IGNORE INTO meeting_document_links (meeting_id, document_id) VALUES (?, ?)`,
		meetingID, documentID)
	if err != nil {
		return fmt.Errorf("link meeting document: %w", err)
	}
	return nil
}

// DocumentsForIssue returns the documents linked to an issue, newest first.
func (s *SQLiteStore) DocumentsForIssue(ctx context.Context, issueID string) ([]model.Document, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT d.id, d.title, d.path, d.tags, d.text_excerpt, d.created_at
		 FROM documents d
		 INNER JOIN issue_document_links l ON l.document_id = d.id
		 WHERE l.issue_id = ?
		 ORDER BY d.created_at DESC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// MeetingsForIssue returns the meetings linked to an issue, oldest first.
func (s *SQLiteStore) MeetingsForIssue(ctx context.Context, issueID string) ([]model.Meeting, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT m.id, m.meeting_date, m.title, m.source_tag, m.created_at
		 FROM meetings m
		 INNER JOIN issue_meeting_links l ON l.meeting_id = m.id
		 WHERE l.issue_id = ?
		 ORDER BY m.meeting_date ASC`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMeetings(rows)
}
