package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rankpilot/rankd/internal/config"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
	"github.com/rankpilot/rankd/internal/observability/metrics"
	"github.com/rankpilot/rankd/internal/observability/rankmetrics"
)

const serviceName = "api"

type Router struct {
	cfg         config.Config
	recommender ports.Recommender
	feedback    ports.FeedbackRecorder
	rankMetrics *rankmetrics.Aggregator
	prom        *metrics.RankServerMetrics
}

func NewRouter(
	cfg config.Config,
	recommender ports.Recommender,
	feedback ports.FeedbackRecorder,
	rankMetrics *rankmetrics.Aggregator,
	prom *metrics.RankServerMetrics,
) *Router {
	return &Router{
		cfg:         cfg,
		recommender: recommender,
		feedback:    feedback,
		rankMetrics: rankMetrics,
		prom:        prom,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/recommend", rt.recommendRank)
	mux.HandleFunc("/v1/feedback", rt.submitFeedback)
	mux.HandleFunc("/v1/metrics/snapshot", rt.metricsSnapshot)
	mux.HandleFunc("/v1/metrics/export.csv", rt.exportCSV)
	mux.HandleFunc("/v1/metrics/export.xlsx", rt.exportXLSX)
	if rt.prom != nil {
		mux.Handle("/metrics", rt.prom.Handler())
	}

	var handler http.Handler = mux
	if validator, err := newRequestValidator(); err != nil {
		slog.Error("openapi_validator_unavailable", "error", err)
	} else {
		handler = validator.middleware(handler)
	}
	if rt.cfg.APIMaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIAcquireTimeout)
	}
	if rt.cfg.APIRateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	}
	if rt.prom != nil {
		handler = rt.prom.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) recommendRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req domain.RecommendRankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Options.RequestID == "" {
		req.Options.RequestID = requestIDFromContext(r.Context())
	}

	resp, err := rt.recommender.RecommendRank(r.Context(), req)
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status >= 500 {
			slog.ErrorContext(r.Context(), "recommend_failed", "scenario", req.Scenario, "error", err)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	if rt.prom != nil && resp.Explore != nil && resp.Explore.Explored {
		rt.prom.RecordExploration(serviceName, string(resp.Scenario), resp.Explore.Bucket)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var fb domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.feedback.SubmitFeedback(r.Context(), fb); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.prom != nil {
		rt.prom.RecordFeedback(serviceName, fb.Positive())
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) metricsSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alert":     rt.rankMetrics.ShouldAlert(),
		"scenarios": rt.rankMetrics.Snapshot(),
	})
}

func (rt *Router) exportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="rank_metrics.csv"`)
	if err := rt.rankMetrics.ExportCSV(w); err != nil {
		slog.ErrorContext(r.Context(), "metrics_csv_export_failed", "error", err)
	}
}

func (rt *Router) exportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="rank_metrics.xlsx"`)
	if err := rt.rankMetrics.ExportXLSX(w); err != nil {
		slog.ErrorContext(r.Context(), "metrics_xlsx_export_failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
