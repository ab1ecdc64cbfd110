package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yatrik/fleetml/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func report(model string, ts time.Time, accuracy float64) models.ModelReport {
	return models.ModelReport{
		ModelName: model,
		Timestamp: ts,
		Status:    models.ReportStatusCompleted,
		Metrics: models.ReportMetrics{
			ModelType:   "Decision Tree Classifier",
			TestMetrics: models.MetricSet{"Accuracy": accuracy},
		},
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	v, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("version = %d, want %d", v, len(migrations))
	}
}

func TestLatestReport_ReturnsNewest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// Insert the newer report first so insertion order cannot decide.
	if err := store.SaveReport(ctx, report("dt_delay_prediction", base.Add(time.Hour), 0.9)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if err := store.SaveReport(ctx, report("dt_delay_prediction", base, 0.5)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if err := store.SaveReport(ctx, report("nb_route_performance", base.Add(2*time.Hour), 0.1)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := store.LatestReport(ctx, "dt_delay_prediction")
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if got == nil {
		t.Fatal("LatestReport returned nil")
	}
	if !got.Timestamp.Equal(base.Add(time.Hour)) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, base.Add(time.Hour))
	}
	if got.Metrics.TestMetrics["Accuracy"] != 0.9 {
		t.Errorf("Accuracy = %v, want 0.9", got.Metrics.TestMetrics["Accuracy"])
	}
	if got.ID == "" {
		t.Error("report ID not assigned")
	}
}

func TestLatestReport_None(t *testing.T) {
	store := setupTestStore(t)
	got, err := store.LatestReport(context.Background(), "svm_route_optimization")
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if got != nil {
		t.Errorf("LatestReport = %+v, want nil", got)
	}
}

func TestReportHistoryAndPrune(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := store.SaveReport(ctx, report("knn_demand_prediction", base.Add(time.Duration(i)*time.Minute), float64(i))); err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
	}

	history, err := store.ReportHistory(ctx, "knn_demand_prediction", 3)
	if err != nil {
		t.Fatalf("ReportHistory: %v", err)
	}
	if len(history) != 3 || history[0].Metrics.TestMetrics["Accuracy"] != 3 {
		t.Fatalf("history = %d reports, first %v", len(history), history[0].Metrics.TestMetrics)
	}

	deleted, err := store.PruneReports(ctx, 1)
	if err != nil {
		t.Fatalf("PruneReports: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
	stats, err := store.ReportStats(ctx)
	if err != nil {
		t.Fatalf("ReportStats: %v", err)
	}
	if stats.TotalCount != 1 || stats.CountByModel["knn_demand_prediction"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestPipelineRuns(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "dt_delay_prediction", "api")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	run.Success = true
	run.RecordsFetched = sql.NullInt64{Int64: 120, Valid: true}
	run.Estimator = sql.NullString{String: "decision_tree", Valid: true}
	if err := store.CompleteRun(ctx, run); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	failed, err := store.StartRun(ctx, "nn_crew_load_balancing", "run_all")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	failed.ErrorMessage = sql.NullString{String: "data unavailable", Valid: true}
	if err := store.CompleteRun(ctx, failed); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ModelKey != "nn_crew_load_balancing" || runs[0].Success {
		t.Errorf("runs[0] = %+v, want failed crew run first", runs[0])
	}
	if !runs[1].Success || runs[1].RecordsFetched.Int64 != 120 || !runs[1].FinishedAt.Valid {
		t.Errorf("runs[1] = %+v", runs[1])
	}

	health, err := store.RunHealth(ctx, 7)
	if err != nil {
		t.Fatalf("RunHealth: %v", err)
	}
	total := 0
	byModel := map[string]RunHealthSummary{}
	for _, h := range health {
		total += h.TotalRuns
		byModel[h.ModelKey] = h
	}
	if total != 2 {
		t.Errorf("RunHealth total = %d, want 2", total)
	}

	dt := byModel["dt_delay_prediction"]
	if dt.SuccessRuns != 1 || dt.LastSuccess == nil {
		t.Fatalf("dt health = %+v, want one success with a last success time", dt)
	}
	if d := dt.LastSuccess.Sub(run.StartedAt.Truncate(time.Second)); d != 0 {
		t.Errorf("last success = %v, want %v", dt.LastSuccess, run.StartedAt.Truncate(time.Second))
	}
	if crew := byModel["nn_crew_load_balancing"]; crew.FailedRuns != 1 || crew.LastSuccess != nil {
		t.Errorf("crew health = %+v, want one failure and no last success", crew)
	}
}

func TestParseStoredTime(t *testing.T) {
	want := time.Date(2025, 3, 1, 12, 30, 45, 0, time.UTC)
	tests := []string{
		"2025-03-01 12:30:45",
		"2025-03-01 12:30:45.123456789 +0000 UTC",
		"2025-03-01T12:30:45Z",
	}
	for _, in := range tests {
		got, err := parseStoredTime(in)
		if err != nil {
			t.Errorf("parseStoredTime(%q): %v", in, err)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("parseStoredTime(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCompleteRun_Nil(t *testing.T) {
	store := setupTestStore(t)
	if err := store.CompleteRun(context.Background(), nil); err != nil {
		t.Errorf("CompleteRun(nil) = %v, want nil", err)
	}
}
