package store

import (
	"context"
	"fmt"
	"os"
)

// Stats holds register statistics.
type Stats struct {
	DBPath         string        `json:"db_path"`
	DBSizeBytes    int64         `json:"db_size_bytes"`
	TotalIssues    int           `json:"total_issues"`
	OpenIssues     int           `json:"open_issues"`
	TotalSteps     int           `json:"total_steps"`
	SuggestedSteps int           `json:"suggested_steps"`
	TotalRevisions int           `json:"total_revisions"`
	TotalMeetings  int           `json:"total_meetings"`
	TotalDocuments int           `json:"total_documents"`
	Domains        []DomainStats `json:"domains"`
}

// DomainStats holds per-domain issue counts.
type DomainStats struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
	Open   int    `json:"open"`
}

// Stats returns register statistics.
func (s *SQLiteStore) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	st := &Stats{DBPath: dbPath}

	if info, err := os.Stat(dbPath); err == nil {
		st.DBSizeBytes = info.Size()
	}

	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM issues`, &st.TotalIssues},
		{`SELECT COUNT(*) FROM issues WHERE status = 'Open'`, &st.OpenIssues},
		{`SELECT COUNT(*) FROM issue_steps`, &st.TotalSteps},
		{`SELECT COUNT(*) FROM issue_steps WHERE suggested = 1`, &st.SuggestedSteps},
		{`SELECT COUNT(*) FROM issue_revisions`, &st.TotalRevisions},
		{`SELECT COUNT(*) FROM meetings`, &st.TotalMeetings},
		{`SELECT COUNT(*) FROM documents`, &st.TotalDocuments},
	}
	for _, c := range counts {
		if err := s.conn().QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	rows, err := s.conn().QueryContext(ctx, `
		SELECT domain, COUNT(*) AS cnt, SUM(CASE WHEN status = 'Open' THEN 1 ELSE 0 END) AS open
		FROM issues GROUP BY domain ORDER BY cnt DESC`)
	if err != nil {
		return nil, fmt.Errorf("stats domains: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d DomainStats
		if err := rows.Scan(&d.Domain, &d.Count, &d.Open); err != nil {
			return nil, err
		}
		st.Domains = append(st.Domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return st, nil
}
