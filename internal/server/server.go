// Package server exposes verification runs over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/verity/verity/internal/cache"
	"github.com/verity/verity/internal/model"
	"github.com/verity/verity/internal/pipeline"
)

const backendProbeTimeout = 2 * time.Second

// Checker runs one verification
type Checker interface {
	Check(ctx context.Context, applicationID string) (*model.ValidationReport, error)
}

// Backend is the extraction backend as seen by the health endpoint
type Backend interface {
	IsAvailable(ctx context.Context) bool
	Endpoint() string
}

// CheckRequest is the body of POST /check
type CheckRequest struct {
	ApplicationID string `json:"applicationId"`
}

// HealthResponse is the body of GET /
type HealthResponse struct {
	Message    string `json:"message"`
	Status     string `json:"status"`
	VLMService string `json:"vlm_service"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler wires verification endpoints to the pipeline
type Handler struct {
	checker Checker
	backend Backend
	reports *cache.ReportStore
	logger  *slog.Logger
}

// New constructs a handler. backend may be nil when the extractor is not
// backed by a probeable service.
func New(checker Checker, backend Backend, reports *cache.ReportStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		checker: checker,
		backend: backend,
		reports: reports,
		logger:  logger,
	}
}

// Register mounts the endpoints on the router
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleHealth)
	r.Post("/check", h.HandleCheck)
	r.Get("/reports/{applicationID}", h.HandleReport)
}

// NewRouter builds the full route tree including /metrics
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	h.Register(r)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// NewServer builds an HTTP server with the project defaults
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// HandleHealth handles GET / and probes the extraction backend
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "unknown"
	if h.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), backendProbeTimeout)
		defer cancel()
		if h.backend.IsAvailable(ctx) {
			status = "ready"
		} else {
			status = "unreachable"
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Message:    "verity is running",
		Status:     "ok",
		VLMService: status,
	})
}

// HandleCheck handles POST /check
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)
	start := time.Now()

	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.ApplicationID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "applicationId is required"})
		return
	}

	if h.reports != nil {
		h.reports.Put(&model.ValidationReport{
			ApplicationID: req.ApplicationID,
			OverallResult: model.VerdictPending,
			Checks:        []model.CheckResult{},
		})
	}

	report, err := h.checker.Check(ctx, req.ApplicationID)
	if err != nil {
		if h.reports != nil {
			h.reports.Delete(req.ApplicationID)
		}
		status := statusFor(err)
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestID,
			"application", req.ApplicationID,
			"status", status,
			"error", err,
		)
		writeJSON(w, status, errorResponse{Detail: err.Error()})
		return
	}

	if h.reports != nil {
		h.reports.Put(report)
	}

	h.logger.InfoContext(ctx, "verification completed",
		"request_id", requestID,
		"application", req.ApplicationID,
		"result", report.OverallResult,
		"checks", len(report.Checks),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, report)
}

// HandleReport handles GET /reports/{applicationID}. A check in flight
// reads as PENDING.
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "applicationID")
	if h.reports == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "no report for " + id})
		return
	}
	report, ok := h.reports.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "no report for " + id})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// statusFor maps whole-run failures to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrApplicationNotFound):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrNoDocuments), errors.Is(err, pipeline.ErrNoUsableDocuments):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
