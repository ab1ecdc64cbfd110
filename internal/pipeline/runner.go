package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yatrik/fleetml/internal/config"
	"github.com/yatrik/fleetml/internal/metrics"
	"github.com/yatrik/fleetml/internal/models"
	"github.com/yatrik/fleetml/internal/source"
	"github.com/yatrik/fleetml/internal/store"
)

// NoResultsMessage is reported for runs that ended with ErrInsufficientData.
const NoResultsMessage = "Model returned no results"

// RunRecorder keeps the audit trail of pipeline runs.
type RunRecorder interface {
	StartRun(ctx context.Context, modelKey, trigger string) (*store.PipelineRun, error)
	CompleteRun(ctx context.Context, run *store.PipelineRun) error
}

// InsightGenerator writes a short narrative for a finished report.
type InsightGenerator interface {
	Generate(ctx context.Context, r models.ModelReport) (string, error)
}

// Archiver copies a persisted report somewhere else.
type Archiver interface {
	Export(ctx context.Context, r models.ModelReport) error
}

// Runner executes registered pipelines and persists their reports. Runs are
// synchronous; RunAll runs the pipelines one after another.
type Runner struct {
	src     source.Source
	reports store.ReportStore
	cfg     config.Config

	runs    RunRecorder
	insight InsightGenerator
	archive Archiver
	now     func() time.Time
}

// NewRunner returns a runner with no audit, insight or archive configured.
func NewRunner(src source.Source, reports store.ReportStore, cfg config.Config) *Runner {
	return &Runner{src: src, reports: reports, cfg: cfg, now: time.Now}
}

// SetRunRecorder enables the run audit trail.
func (r *Runner) SetRunRecorder(runs RunRecorder) {
	r.runs = runs
}

// SetInsightGenerator attaches a narrative to every report before it is saved.
// Generation failures are logged and the report is saved without one.
func (r *Runner) SetInsightGenerator(g InsightGenerator) {
	r.insight = g
}

// SetArchiver exports every saved report. Export failures are logged only.
func (r *Runner) SetArchiver(a Archiver) {
	r.archive = a
}

// RunOne runs the pipeline registered under key and returns the saved report.
func (r *Runner) RunOne(ctx context.Context, key, trigger string) (*models.ModelReport, error) {
	p, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, key)
	}

	log.Printf("pipeline: running %s (%s)", p.Name, trigger)
	start := time.Now()
	var run *store.PipelineRun
	if r.runs != nil {
		var err error
		if run, err = r.runs.StartRun(ctx, key, trigger); err != nil {
			log.Printf("pipeline: start run audit %s: %v", key, err)
		}
	}

	report, outcome, err := r.execute(ctx, p)
	metrics.PipelineRunDuration.WithLabelValues(key).Observe(time.Since(start).Seconds())
	metrics.PipelineRunsTotal.WithLabelValues(key, runStatus(err)).Inc()

	if run != nil {
		run.Success = err == nil
		if outcome != nil {
			run.RecordsFetched = sql.NullInt64{Int64: int64(outcome.RecordsFetched), Valid: true}
			run.RowsTrained = sql.NullInt64{Int64: int64(outcome.Metrics.Records), Valid: true}
			run.Estimator = sql.NullString{String: outcome.Metrics.Estimator, Valid: true}
		}
		if report != nil {
			run.ReportID = sql.NullString{String: report.ID, Valid: true}
		}
		if err != nil {
			run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		}
		if cerr := r.runs.CompleteRun(context.WithoutCancel(ctx), run); cerr != nil {
			log.Printf("pipeline: complete run audit %s: %v", key, cerr)
		}
	}

	if err != nil {
		if errors.Is(err, ErrInsufficientData) {
			log.Printf("pipeline: %s returned no results: %v", key, err)
		} else {
			log.Printf("pipeline: %s failed: %v", key, err)
		}
		return nil, err
	}
	log.Printf("pipeline: %s completed in %s, report %s", key, time.Since(start).Round(time.Millisecond), report.ID)
	return report, nil
}

func (r *Runner) execute(ctx context.Context, p Pipeline) (*models.ModelReport, *Outcome, error) {
	outcome, err := p.Run(ctx, r.src, r.cfg)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordsFetched.WithLabelValues(p.Key).Add(float64(outcome.RecordsFetched))
	if outcome.Fallback {
		metrics.FallbackEstimatorUsed.WithLabelValues(p.Key).Inc()
	}

	report := &models.ModelReport{
		ID:        uuid.NewString(),
		ModelName: p.Key,
		Metrics:   outcome.Metrics,
		Timestamp: r.now().UTC(),
		Status:    models.ReportStatusCompleted,
	}

	if r.insight != nil {
		text, err := r.insight.Generate(ctx, *report)
		if err != nil {
			log.Printf("pipeline: %s: insight: %v", p.Key, err)
		} else {
			report.Metrics.Insight = text
		}
	}

	if err := r.reports.SaveReport(ctx, *report); err != nil {
		return nil, outcome, fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	metrics.ReportsStored.WithLabelValues(p.Key).Inc()

	if r.archive != nil {
		if err := r.archive.Export(ctx, *report); err != nil {
			log.Printf("pipeline: %s: archive: %v", p.Key, err)
		}
	}
	return report, outcome, nil
}

func runStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInsufficientData):
		return "no_result"
	default:
		return "error"
	}
}

// RunResult describes one successful run in a Summary.
type RunResult struct {
	Status    string    `json:"status"`
	Name      string    `json:"name"`
	ReportID  string    `json:"report_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the outcome of RunAll: successes and error messages by model key.
type Summary struct {
	Results map[string]RunResult
	Errors  map[string]string
}

// RunAll runs every registered pipeline in order. A failing pipeline is
// recorded in Errors and does not stop the others, and completed runs are
// never rolled back.
func (r *Runner) RunAll(ctx context.Context, trigger string) Summary {
	s := Summary{Results: map[string]RunResult{}, Errors: map[string]string{}}
	for _, p := range Registry {
		if ctx.Err() != nil {
			s.Errors[p.Key] = ctx.Err().Error()
			continue
		}
		report, err := r.RunOne(ctx, p.Key, trigger)
		switch {
		case errors.Is(err, ErrInsufficientData):
			s.Errors[p.Key] = NoResultsMessage
		case err != nil:
			s.Errors[p.Key] = err.Error()
		default:
			s.Results[p.Key] = RunResult{
				Status:    "success",
				Name:      p.Name,
				ReportID:  report.ID,
				Timestamp: report.Timestamp,
			}
		}
	}
	log.Printf("pipeline: run all completed: %d/%d models", len(s.Results), len(Registry))
	return s
}
