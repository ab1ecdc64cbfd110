package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yatrik/fleetml/internal/chart"
	"github.com/yatrik/fleetml/internal/models"
	"github.com/yatrik/fleetml/internal/pipeline"
	"github.com/yatrik/fleetml/internal/store"
)

const serviceName = "YATRIK ML Service"

// RunLister exposes the run audit trail.
type RunLister interface {
	RecentRuns(ctx context.Context, limit int) ([]store.PipelineRun, error)
	RunHealth(ctx context.Context, days int) ([]store.RunHealthSummary, error)
}

// HistoryStore is implemented by report stores that can list past reports.
type HistoryStore interface {
	ReportHistory(ctx context.Context, modelName string, limit int) ([]models.ModelReport, error)
}

// Server is the JSON façade over the pipeline runner and report store.
type Server struct {
	runner  *pipeline.Runner
	reports store.ReportStore
	runs    RunLister
	port    string
	origins []string
	charts  *chart.Cache
}

func NewServer(runner *pipeline.Runner, reports store.ReportStore, port string) *Server {
	return &Server{
		runner:  runner,
		reports: reports,
		port:    port,
		origins: []string{"*"},
		charts:  chart.NewCache(10 * time.Minute),
	}
}

// SetRunLister enables GET /runs.
func (s *Server) SetRunLister(runs RunLister) {
	s.runs = runs
}

// SetAllowedOrigins restricts CORS to the given origins.
func (s *Server) SetAllowedOrigins(origins []string) {
	if len(origins) > 0 {
		s.origins = origins
	}
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.HandleFunc("POST /run_all", s.handleRunAll)
	mux.HandleFunc("POST /run/{model_key}", s.handleRun)
	mux.HandleFunc("GET /metrics/all", s.handleAllMetrics)
	mux.HandleFunc("GET /metrics/{model_key}", s.handleMetrics)
	mux.HandleFunc("GET /metrics/{model_key}/history", s.handleHistory)
	mux.HandleFunc("GET /comparison", s.handleComparison)
	mux.HandleFunc("GET /runs", s.handleRuns)
	mux.HandleFunc("GET /runs/health", s.handleRunHealth)
	mux.HandleFunc("GET /visualization/{model_key}", s.handleVisualization)
	mux.Handle("GET /debug/metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleNotFound)

	return cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	})(mux)
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("api: listening on :%s", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"status": "error", "message": message})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Endpoint not found")
}
