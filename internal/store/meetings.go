package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rcliao/issuereg/internal/model"
)

// CreateMeetingParams holds fields for a new meeting.
type CreateMeetingParams struct {
	Date      string // YYYY-MM-DD
	Title     string
	SourceTag string
}

// CreateMeeting inserts a meeting record.
func (s *SQLiteStore) CreateMeeting(ctx context.Context, p CreateMeetingParams) (*model.Meeting, error) {
	now := nowISO()
	meeting := &model.Meeting{
		ID:        s.newID(),
		Date:      strings.TrimSpace(p.Date),
		Title:     strings.TrimSpace(p.Title),
		SourceTag: strings.TrimSpace(p.SourceTag),
		CreatedAt: parseISO(now),
	}
	if meeting.Title == "" {
		meeting.Title = "Meeting"
	}
	if meeting.Date == "" {
		return nil, fmt.Errorf("meeting date is required")
	}

	_, err := s.conn().ExecContext(ctx,
		`INSERT INTO meetings (id, meeting_date, title, source_tag, created_at) VALUES (?, ?, ?, ?, ?)`,
		meeting.ID, meeting.Date, meeting.Title, meeting.SourceTag, now)
	if err != nil {
		return nil, fmt.Errorf("insert meeting: %w", err)
	}
	return meeting, nil
}

// MeetingsBetween returns meetings with dates in [start, end], ascending
// by date then id, so same-date meetings come back in a deterministic
// order. Dates compare lexically as YYYY-MM-DD.
func (s *SQLiteStore) MeetingsBetween(ctx context.Context, start, end string) ([]model.Meeting, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT id, meeting_date, title, source_tag, created_at FROM meetings
		 WHERE meeting_date BETWEEN ? AND ?
		 ORDER BY meeting_date ASC, id ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMeetings(rows)
}

// CreateDocumentParams holds fields for a new document.
type CreateDocumentParams struct {
	Title       string
	Path        string
	Tags        string
	TextExcerpt string
}

// CreateDocument inserts a document record with its cached text.
func (s *SQLiteStore) CreateDocument(ctx context.Context, p CreateDocumentParams) (*model.Document, error) {
	now := nowISO()
	doc := &model.Document{
		ID:          s.newID(),
		Title:       strings.TrimSpace(p.Title),
		Path:        strings.TrimSpace(p.Path),
		Tags:        strings.TrimSpace(p.Tags),
		TextExcerpt: p.TextExcerpt,
		CreatedAt:   parseISO(now),
	}
	if doc.Title == "" {
		return nil, fmt.Errorf("document title is required")
	}

	_, err := s.conn().ExecContext(ctx,
		`INSERT INTO documents (id, title, path, tags, text_excerpt, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Path, doc.Tags, doc.TextExcerpt, now)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return doc, nil
}

// GetDocument fetches one document by id. Returns ErrNotFound when absent.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.conn().QueryRowContext(ctx,
		`SELECT id, title, path, tags, text_excerpt, created_at FROM documents WHERE id = ?`, id)

	var doc model.Document
	var createdAt string
	err := row.Scan(&doc.ID, &doc.Title, &doc.Path, &doc.Tags, &doc.TextExcerpt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = parseISO(createdAt)
	return &doc, nil
}

// DocumentsForMeeting returns a meeting's documents, newest first.
func (s *SQLiteStore) DocumentsForMeeting(ctx context.Context, meetingID string) ([]model.Document, error) {
	rows, err := s.conn().QueryContext(ctx,
		`SELECT d.id, d.title, d.path, d.tags, d.text_excerpt, d.created_at
		 FROM documents d
		 INNER JOIN meeting_document_links l ON l.document_id = d.id
		 WHERE l.meeting_id = ?
		 ORDER BY d.created_at DESC`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// GetState reads an app_state value, or "" when the key is absent.
func (s *SQLiteStore) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.conn().QueryRowContext(ctx,
		`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get state %s: %w", key, err)
	}
	return value, nil
}

// SetState upserts an app_state value.
func (s *SQLiteStore) SetState(ctx context.Context, key, value string) error {
	_, err := s.conn().ExecContext(ctx,
		`INSERT INTO app_state (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set state %s: %w", key, err)
	}
	return nil
}

func scanMeetings(rows *sql.Rows) ([]model.Meeting, error) {
	var meetings []model.Meeting
	for rows.Next() {
		var m model.Meeting
		var createdAt string
		if err := rows.Scan(&m.ID, &m.Date, &m.Title, &m.SourceTag, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseISO(createdAt)
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func scanDocuments(rows *sql.Rows) ([]model.Document, error) {
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		var createdAt string
		if err := rows.Scan(&d.ID, &d.Title, &d.Path, &d.Tags, &d.TextExcerpt, &createdAt); err != nil {
			return nil, err
		}
		d.CreatedAt = parseISO(createdAt)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
