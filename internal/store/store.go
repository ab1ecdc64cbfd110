package store

import (
	"context"
	"database/sql"

	"github.com/yatrik/fleetml/internal/models"
)

// ReportStore persists model reports. Reports are append-only; LatestReport
// returns the newest report for a model, or nil if there is none.
type ReportStore interface {
	SaveReport(ctx context.Context, r models.ModelReport) error
	LatestReport(ctx context.Context, modelName string) (*models.ModelReport, error)
}

// Store is the SQLite backend. It holds reports and the pipeline run audit.
type Store struct {
	db *sql.DB
}

// New wraps an open database. Call Migrate before first use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}
