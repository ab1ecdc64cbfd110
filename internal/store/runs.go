package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// PipelineRun is the audit record of one pipeline invocation.
type PipelineRun struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     sql.NullTime
	ModelKey       string
	Trigger        string // "api", "run_all", "cli", "scheduler"
	RecordsFetched sql.NullInt64
	RowsTrained    sql.NullInt64
	Estimator      sql.NullString
	ReportID       sql.NullString
	Success        bool
	ErrorMessage   sql.NullString
}

// StartRun creates a new run record and returns it.
func (s *Store) StartRun(ctx context.Context, modelKey, trigger string) (*PipelineRun, error) {
	run := &PipelineRun{
		StartedAt: time.Now().UTC(),
		ModelKey:  modelKey,
		Trigger:   trigger,
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (started_at, model_key, trigger, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.ModelKey, run.Trigger)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteRun updates the run with its results.
func (s *Store) CompleteRun(ctx context.Context, run *PipelineRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs SET
			finished_at = ?,
			records_fetched = ?,
			rows_trained = ?,
			estimator = ?,
			report_id = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.RecordsFetched, run.RowsTrained, run.Estimator,
		run.ReportID, run.Success, run.ErrorMessage, run.ID)
	return err
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]PipelineRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, model_key, trigger, records_fetched,
		       rows_trained, estimator, report_id, success, error_message
		FROM pipeline_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []PipelineRun
	for rows.Next() {
		var r PipelineRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.ModelKey, &r.Trigger,
			&r.RecordsFetched, &r.RowsTrained, &r.Estimator, &r.ReportID,
			&r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RunHealthSummary is a per-day, per-model count of runs. LastSuccess is the
// start time of the latest successful run that day, nil when every run failed.
type RunHealthSummary struct {
	Date        string     `json:"date"`
	ModelKey    string     `json:"model_key"`
	TotalRuns   int        `json:"total_runs"`
	SuccessRuns int        `json:"success_runs"`
	FailedRuns  int        `json:"failed_runs"`
	LastSuccess *time.Time `json:"last_success"`
}

// RunHealth returns run summaries for the last N days.
func (s *Store) RunHealth(ctx context.Context, days int) ([]RunHealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			model_key,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			MAX(CASE WHEN success THEN SUBSTR(started_at, 1, 19) END) as last_success
		FROM pipeline_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, model_key
		ORDER BY date DESC, model_key
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RunHealthSummary
	for rows.Next() {
		var h RunHealthSummary
		var lastSuccess sql.NullString
		if err := rows.Scan(&h.Date, &h.ModelKey, &h.TotalRuns, &h.SuccessRuns, &h.FailedRuns, &lastSuccess); err != nil {
			return nil, err
		}
		if lastSuccess.Valid {
			t, err := parseStoredTime(lastSuccess.String)
			if err != nil {
				return nil, fmt.Errorf("parse last success %q: %w", lastSuccess.String, err)
			}
			h.LastSuccess = &t
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// parseStoredTime reads the first 19 characters of a stored UTC timestamp,
// accepting either a space or a T between date and time.
func parseStoredTime(v string) (time.Time, error) {
	v = strings.Replace(v, "T", " ", 1)
	if len(v) > 19 {
		v = v[:19]
	}
	return time.ParseInLocation("2006-01-02 15:04:05", v, time.UTC)
}
