package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yatrik/fleetml/internal/models"
)

// SaveReport stores the report as gzip-compressed JSON. A report without an
// ID is given a new UUID.
func (s *Store) SaveReport(ctx context.Context, r models.ModelReport) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	compressed, err := compress(payload)
	if err != nil {
		return err
	}
	hash := sha256.Sum256(payload)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, model_name, status, timestamp, payload_compressed, payload_hash)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.ID, r.ModelName, r.Status, r.Timestamp.UTC(), compressed, hex.EncodeToString(hash[:]))
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// LatestReport returns the most recent report for modelName, or nil.
func (s *Store) LatestReport(ctx context.Context, modelName string) (*models.ModelReport, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload_compressed FROM reports
		WHERE model_name = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`, modelName).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest report: %w", err)
	}
	return decodeReport(compressed)
}

// ReportHistory returns up to limit reports for modelName, newest first.
func (s *Store) ReportHistory(ctx context.Context, modelName string, limit int) ([]models.ModelReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload_compressed FROM reports
		WHERE model_name = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, modelName, limit)
	if err != nil {
		return nil, fmt.Errorf("query report history: %w", err)
	}
	defer rows.Close()

	var reports []models.ModelReport
	for rows.Next() {
		var compressed []byte
		if err := rows.Scan(&compressed); err != nil {
			return nil, err
		}
		r, err := decodeReport(compressed)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// ReportStats contains storage statistics for stored reports.
type ReportStats struct {
	TotalCount     int
	TotalSizeBytes int64
	Oldest         time.Time
	Newest         time.Time
	CountByModel   map[string]int
}

// ReportStats summarises stored reports.
func (s *Store) ReportStats(ctx context.Context) (*ReportStats, error) {
	stats := &ReportStats{CountByModel: make(map[string]int)}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0),
		       MIN(timestamp), MAX(timestamp)
		FROM reports
	`)
	var oldest, newest sql.NullTime
	if err := row.Scan(&stats.TotalCount, &stats.TotalSizeBytes, &oldest, &newest); err != nil {
		return nil, err
	}
	if oldest.Valid {
		stats.Oldest = oldest.Time
	}
	if newest.Valid {
		stats.Newest = newest.Time
	}

	rows, err := s.db.QueryContext(ctx, `SELECT model_name, COUNT(*) FROM reports GROUP BY model_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		stats.CountByModel[name] = count
	}
	return stats, rows.Err()
}

// PruneReports deletes all but the newest keep reports of every model and
// returns the number deleted.
func (s *Store) PruneReports(ctx context.Context, keep int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM reports WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY model_name ORDER BY timestamp DESC) AS rn
				FROM reports
			) WHERE rn > ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	return result.RowsAffected()
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return nil, fmt.Errorf("compress report: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeReport(compressed []byte) (*models.ModelReport, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("decompress report: %w", err)
	}
	var r models.ModelReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	return &r, nil
}
