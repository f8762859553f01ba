// Package service exposes the analysis pipeline over HTTP: a
// submit-and-wait endpoint, a Server-Sent Events stream, chart
// aggregations, and a health probe.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/newslens/newslens/internal/engine"
	"github.com/newslens/newslens/internal/model"
	"github.com/newslens/newslens/internal/scraper"
	"github.com/newslens/newslens/internal/sse"
	"github.com/newslens/newslens/internal/storage"
	"github.com/newslens/newslens/internal/validate"
	"github.com/newslens/newslens/pkg/logger"
)

// Analyzer runs one analysis. Implemented by engine.Engine.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest, emit engine.EmitFunc) (*model.AnalysisResult, error)
}

// ChartStore serves aggregated evaluation counts for the charts view.
type ChartStore interface {
	EvaluationCounts(ctx context.Context, field storage.ChartField, byPublication bool) ([]storage.ChartRow, error)
}

// NewsService wires the HTTP handlers to the pipeline and storage.
type NewsService struct {
	analyzer Analyzer
	charts   ChartStore

	analyzeLimit *ipLimiter
	streamLimit  *ipLimiter
	chartsLimit  *ipLimiter
}

func NewNewsService(analyzer Analyzer, charts ChartStore) *NewsService {
	return &NewsService{
		analyzer:     analyzer,
		charts:       charts,
		analyzeLimit: newIPLimiter(3),
		streamLimit:  newIPLimiter(1),
		chartsLimit:  newIPLimiter(20),
	}
}

// HandleAnalyze serves POST /analyze: runs the pipeline to completion and
// responds with the full result as one JSON document.
func (s *NewsService) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.analyzeLimit.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req, nil)
	if err != nil {
		status, detail := mapAnalysisError(err)
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleStream serves POST /analyze/stream: the same pipeline, but each
// event is flushed to the client as an SSE frame the moment it is emitted.
// Headers are committed on the first frame, so pre-content failures still
// get a plain JSON error response.
func (s *NewsService) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.streamLimit.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	emit := func(event string, payload any) error {
		frame, err := sse.Event(event, payload)
		if err != nil {
			return err
		}
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write(frame); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if _, err := s.analyzer.Analyze(r.Context(), req, emit); err != nil {
		if started {
			logger.Log.Errorf("stream failed mid-flight: %v", err)
			return
		}
		status, detail := mapAnalysisError(err)
		writeError(w, status, detail)
	}
}

// HandleCharts serves GET /charts: per-field answer counts grouped by
// evaluator model and by publication, for the dashboard.
func (s *NewsService) HandleCharts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !s.chartsLimit.Allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	type fieldCharts struct {
		ByModel       []storage.ChartGroup `json:"by_model"`
		ByPublication []storage.ChartGroup `json:"by_publication"`
	}
	out := make(map[string]fieldCharts, 2)
	for _, field := range []storage.ChartField{storage.ChartFairness, storage.ChartHeadlineGap} {
		byModel, err := s.charts.EvaluationCounts(r.Context(), field, false)
		if err != nil {
			logger.Log.Errorf("chart query failed for %s: %v", field, err)
			writeError(w, http.StatusInternalServerError, "failed to load chart data")
			return
		}
		byPub, err := s.charts.EvaluationCounts(r.Context(), field, true)
		if err != nil {
			logger.Log.Errorf("chart query failed for %s: %v", field, err)
			writeError(w, http.StatusInternalServerError, "failed to load chart data")
			return
		}
		out[string(field)] = fieldCharts{
			ByModel:       storage.TransformChart(byModel),
			ByPublication: storage.TransformChart(byPub),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleHealth serves GET /health.
func (s *NewsService) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (model.AnalysisRequest, bool) {
	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

// mapAnalysisError translates pipeline failures into HTTP responses. Every
// error Analyze can return is a pre-content client-side problem (URL shape,
// unreachable page, unextractable or thin content), so they all map to 400.
func mapAnalysisError(err error) (int, string) {
	if ve, ok := validate.AsError(err); ok {
		return http.StatusBadRequest, ve.Detail
	}
	var fe *scraper.FetchError
	if errors.As(err, &fe) {
		return http.StatusBadRequest, "Failed to fetch article: " + fe.Error()
	}
	return http.StatusBadRequest, err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
