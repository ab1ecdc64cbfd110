package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/yatrik/fleetml/internal/chart"
	"github.com/yatrik/fleetml/internal/models"
	"github.com/yatrik/fleetml/internal/pipeline"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"service":          serviceName,
		"timestamp":        time.Now().UTC(),
		"models_available": len(pipeline.Registry),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	list := make(map[string]any, len(pipeline.Registry))
	for _, p := range pipeline.Registry {
		list[p.Key] = map[string]string{"name": p.Name}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "models": list})
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	summary := s.runner.RunAll(r.Context(), "run_all")
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "completed",
		"results":      summary.Results,
		"errors":       summary.Errors,
		"total_models": len(pipeline.Registry),
		"successful":   len(summary.Results),
		"failed":       len(summary.Errors),
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("model_key")
	p, ok := pipeline.Lookup(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":           "error",
			"message":          fmt.Sprintf("Model %q not found", key),
			"available_models": pipeline.Keys(),
		})
		return
	}

	report, err := s.runner.RunOne(r.Context(), key, "api")
	switch {
	case errors.Is(err, pipeline.ErrInsufficientData):
		writeError(w, http.StatusInternalServerError, pipeline.NoResultsMessage)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"model":     key,
		"name":      p.Name,
		"report_id": report.ID,
		"timestamp": report.Timestamp,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("model_key")
	report, err := s.reports.LatestReport(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if report == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":  "not_found",
			"message": fmt.Sprintf("No reports found for model %q", key),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "model": key, "report": report})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("model_key")
	hs, ok := s.reports.(HistoryStore)
	if !ok {
		writeError(w, http.StatusNotFound, "Report history is not supported by this store")
		return
	}
	limit, ok := queryLimit(w, r, 20)
	if !ok {
		return
	}
	reports, err := hs.ReportHistory(r.Context(), key, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []models.ModelReport{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "model": key, "reports": reports, "count": len(reports)})
}

// latestReports returns the newest report of every registered model that has
// one. Lookup failures are logged and the model is left out.
func (s *Server) latestReports(r *http.Request) []models.ModelReport {
	var reports []models.ModelReport
	for _, p := range pipeline.Registry {
		report, err := s.reports.LatestReport(r.Context(), p.Key)
		if err != nil {
			log.Printf("api: latest report %s: %v", p.Key, err)
			continue
		}
		if report != nil {
			reports = append(reports, *report)
		}
	}
	return reports
}

func (s *Server) handleAllMetrics(w http.ResponseWriter, r *http.Request) {
	byKey := make(map[string]models.ModelReport)
	for _, report := range s.latestReports(r) {
		byKey[report.ModelName] = report
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "reports": byKey, "count": len(byKey)})
}

type comparisonEntry struct {
	Model     string           `json:"model"`
	Name      string           `json:"name"`
	Type      string           `json:"type"`
	Metrics   models.MetricSet `json:"metrics"`
	Timestamp time.Time        `json:"timestamp"`
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	comparison := []comparisonEntry{}
	for _, report := range s.latestReports(r) {
		p, _ := pipeline.Lookup(report.ModelName)
		comparison = append(comparison, comparisonEntry{
			Model:     report.ModelName,
			Name:      p.Name,
			Type:      report.Metrics.ModelType,
			Metrics:   report.Metrics.TestMetrics,
			Timestamp: report.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "comparison": comparison, "count": len(comparison)})
}

type runView struct {
	ID             int64      `json:"id"`
	ModelKey       string     `json:"model_key"`
	Trigger        string     `json:"trigger"`
	StartedAt      time.Time  `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	Success        bool       `json:"success"`
	RecordsFetched *int64     `json:"records_fetched,omitempty"`
	RowsTrained    *int64     `json:"rows_trained,omitempty"`
	Estimator      string     `json:"estimator,omitempty"`
	ReportID       string     `json:"report_id,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "Run history is not enabled")
		return
	}
	limit, ok := queryLimit(w, r, 50)
	if !ok {
		return
	}

	runs, err := s.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]runView, len(runs))
	for i, run := range runs {
		v := runView{
			ID:        run.ID,
			ModelKey:  run.ModelKey,
			Trigger:   run.Trigger,
			StartedAt: run.StartedAt,
			Success:   run.Success,
			Estimator: run.Estimator.String,
			ReportID:  run.ReportID.String,
			Error:     run.ErrorMessage.String,
		}
		if run.FinishedAt.Valid {
			v.FinishedAt = &run.FinishedAt.Time
		}
		if run.RecordsFetched.Valid {
			v.RecordsFetched = &run.RecordsFetched.Int64
		}
		if run.RowsTrained.Valid {
			v.RowsTrained = &run.RowsTrained.Int64
		}
		views[i] = v
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "runs": views, "count": len(views)})
}

func (s *Server) handleRunHealth(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "Run history is not enabled")
		return
	}
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	health, err := s.runs.RunHealth(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "days": days, "health": health})
}

// queryLimit parses the limit query parameter, capped at 500. It writes a 400
// and returns false when the value is invalid.
func queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, 500), true
}

// handleVisualization serves the chart of the newest report as a PNG.
func (s *Server) handleVisualization(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("model_key")
	report, err := s.reports.LatestReport(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if report == nil || report.Metrics.Visualization == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"status":  "not_found",
			"message": fmt.Sprintf("No visualization found for model %q", key),
		})
		return
	}

	png, ok := s.charts.Get(key, report.ID)
	if !ok {
		png, err = chart.DecodeDataURI(report.Metrics.Visualization)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.charts.Set(key, report.ID, png)
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(png)
}
