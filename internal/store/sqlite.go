package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/rcliao/issuereg/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore implements the register store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	tx      *sql.Tx
	entropy *rand.Rand
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		entropy: rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// conn returns the active transaction if one is open, else the database.
func (s *SQLiteStore) conn() dbtx {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// WithTx runs fn inside a single transaction. All store mutations made by
// fn become durable together on commit. The store is single-writer; nested
// transactions are not supported.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func() error) error {
	if s.tx != nil {
		return fmt.Errorf("transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	s.tx = tx
	defer func() { s.tx = nil }()

	if err := fn(); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS issues (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		domain       TEXT NOT NULL DEFAULT 'General',
		status       TEXT NOT NULL DEFAULT 'Open',
		confidence   REAL NOT NULL DEFAULT 0.5,
		situation    TEXT NOT NULL DEFAULT '',
		complication TEXT NOT NULL DEFAULT '',
		resolution   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_issues_updated ON issues(updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);

	CREATE TABLE IF NOT EXISTS issue_steps (
		id          TEXT PRIMARY KEY,
		issue_id    TEXT NOT NULL REFERENCES issues(id),
		description TEXT NOT NULL,
		owner       TEXT NOT NULL DEFAULT '',
		due_date    TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'Open',
		position    INTEGER NOT NULL,
		suggested   INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_steps_issue ON issue_steps(issue_id, position);

	CREATE TABLE IF NOT EXISTS issue_revisions (
		id         TEXT PRIMARY KEY,
		issue_id   TEXT NOT NULL REFERENCES issues(id),
		field      TEXT NOT NULL,
		old_value  TEXT NOT NULL,
		new_value  TEXT NOT NULL,
		actor      TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_revisions_issue ON issue_revisions(issue_id);

	CREATE TABLE IF NOT EXISTS issue_embeddings (
		issue_id   TEXT PRIMARY KEY REFERENCES issues(id),
		model      TEXT NOT NULL,
		vector     TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		path         TEXT NOT NULL,
		tags         TEXT NOT NULL DEFAULT '',
		text_excerpt TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meetings (
		id           TEXT PRIMARY KEY,
		meeting_date TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT 'Meeting',
		source_tag   TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_meetings_date ON meetings(meeting_date);

	CREATE TABLE IF NOT EXISTS issue_document_links (
		issue_id    TEXT NOT NULL,
		document_id TEXT NOT NULL,
		PRIMARY KEY (issue_id, document_id)
	);

	CREATE TABLE IF NOT EXISTS issue_meeting_links (
		issue_id   TEXT NOT NULL,
		meeting_id TEXT NOT NULL,
		PRIMARY KEY (issue_id, meeting_id)
	);

	CREATE TABLE IF NOT EXISTS meeting_document_links (
		meeting_id  TEXT NOT NULL,
		document_id TEXT NOT NULL,
		PRIMARY KEY (meeting_id, document_id)
	);

	CREATE TABLE IF NOT EXISTS app_state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// nowISO returns the current UTC time at second precision.
func nowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseISO(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// CreateIssueParams holds fields for a new issue.
type CreateIssueParams struct {
	Title        string
	Domain       string
	Status       string
	Confidence   float64
	Situation    string
	Complication string
	Resolution   string
}

// CreateIssue inserts a new issue. Domain defaults to "General" and
// status to "Open" when blank.
func (s *SQLiteStore) CreateIssue(ctx context.Context, p CreateIssueParams) (*model.Issue, error) {
	now := nowISO()
	issue := &model.Issue{
		ID:           s.newID(),
		Title:        strings.TrimSpace(p.Title),
		Domain:       strings.TrimSpace(p.Domain),
		Status:       strings.TrimSpace(p.Status),
		Confidence:   p.Confidence,
		Situation:    strings.TrimSpace(p.Situation),
		Complication: strings.TrimSpace(p.Complication),
		Resolution:   strings.TrimSpace(p.Resolution),
		CreatedAt:    parseISO(now),
		UpdatedAt:    parseISO(now),
	}
	if issue.Domain == "" {
		issue.Domain = "General"
	}
	if issue.Status == "" {
		issue.Status = "Open"
	}

	_, err := s.conn().ExecContext(ctx,
		`INSERT INTO issues (id, title, domain, status, confidence, situation, complication, resolution, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.ID, issue.Title, issue.Domain, issue.Status, issue.Confidence,
		issue.Situation, issue.Complication, issue.Resolution, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert issue: %w", err)
	}
	return issue, nil
}

// GetIssue fetches one issue by id. Returns ErrNotFound when absent.
func (s *SQLiteStore) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	row := s.conn().QueryRowContext(ctx,
		`SELECT id, title, domain, status, confidence, situation, complication, resolution, created_at, updated_at
		 FROM issues WHERE id = ?`, id)
	issue, err := scanIssue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssueParams holds the full replacement field set for an issue.
// Callers compute merged values first; the store writes them verbatim.
type UpdateIssueParams struct {
	ID           string
	Title        string
	Domain       string
	Status       string
	Confidence   float64
	Situation    string
	Complication string
	Resolution   string
}

// UpdateIssue overwrites all mutable issue fields and bumps updated_at.
func (s *SQLiteStore) UpdateIssue(ctx context.Context, p UpdateIssueParams) error {
	res, err := s.conn().ExecContext(ctx,
		`UPDATE issues
		 SET title = ?, domain = ?, status = ?, confidence = ?,
		     situation = ?, complication = ?, resolution = ?, updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Domain, p.Status, p.Confidence,
		p.Situation, p.Complication, p.Resolution, nowISO(), p.ID)
	if err != nil {
		return fmt.Errorf("update issue: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("issue %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// ListIssuesParams holds filters for listing issues.
type ListIssuesParams struct {
	Status string
	Domain string
	Limit  int // 0 means no limit
}

// ListIssues returns issues ordered by updated_at descending, the
// register order used for candidate selection.
func (s *SQLiteStore) ListIssues(ctx context.Context, p ListIssuesParams) ([]model.Issue, error) {
	where := []string{"1=1"}
	args := []interface{}{}

	if p.Status != "" {
		where = append(where, "status = ?")
		args = append(args, p.Status)
	}
	if p.Domain != "" {
		where = append(where, "domain LIKE ?")
		args = append(args, "%"+p.Domain+"%")
	}

	query := `SELECT id, title, domain, status, confidence, situation, complication, resolution, created_at, updated_at
	          FROM issues WHERE ` + strings.Join(where, " AND ") + ` ORDER BY updated_at DESC, id`
	if p.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, p.Limit)
	}

	rows, err := s.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []model.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row scanner) (model.Issue, error) {
	var issue model.Issue
	var createdAt, updatedAt string
	err := row.Scan(
		&issue.ID, &issue.Title, &issue.Domain, &issue.Status, &issue.Confidence,
		&issue.Situation, &issue.Complication, &issue.Resolution, &createdAt, &updatedAt,
	)
	if err != nil {
		return issue, err
	}
	issue.CreatedAt = parseISO(createdAt)
	issue.UpdatedAt = parseISO(updatedAt)
	return issue, nil
}
