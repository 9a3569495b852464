package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rcliao/issuereg/internal/model"
)

// Vectors are stored one row per issue as a JSON array, tagged with the
// embedding model that produced them. PutVector replaces any prior row
// regardless of its model tag.

// GetVectors returns the cached embedding records for the given issue
// ids. Issues without a cached vector are absent from the result.
func (s *SQLiteStore) GetVectors(ctx context.Context, issueIDs []string) (map[string]model.EmbeddingRecord, error) {
	records := make(map[string]model.EmbeddingRecord, len(issueIDs))
	if len(issueIDs) == 0 {
		return records, nil
	}

	placeholders := strings.Repeat("?,", len(issueIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}

	rows, err := s.conn().QueryContext(ctx,
		`SELECT issue_id, model, vector, updated_at FROM issue_embeddings
		 WHERE issue_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.EmbeddingRecord
		var payload, updatedAt string
		if err := rows.Scan(&rec.IssueID, &rec.Model, &payload, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &rec.Vector); err != nil {
			return nil, fmt.Errorf("decode vector for %s: %w", rec.IssueID, err)
		}
		rec.UpdatedAt = parseISO(updatedAt)
		records[rec.IssueID] = rec
	}
	return records, rows.Err()
}

// PutVector upserts the embedding record for an issue.
func (s *SQLiteStore) PutVector(ctx context.Context, issueID, embedModel string, vector []float64) error {
	payload, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}

	_, err = s.conn().ExecContext(ctx,
		`INSERT INTO issue_embeddings (issue_id, model, vector, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(issue_id) DO UPDATE SET
		   model = excluded.model, vector = excluded.vector, updated_at = excluded.updated_at`,
		issueID, embedModel, string(payload), nowISO())
	if err != nil {
		return fmt.Errorf("put vector: %w", err)
	}
	return nil
}
