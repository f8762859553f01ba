package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newslens/newslens/internal/engine"
	"github.com/newslens/newslens/internal/model"
	"github.com/newslens/newslens/internal/storage"
	"github.com/newslens/newslens/internal/validate"
)

type fakeAnalyzer struct {
	result *model.AnalysisResult
	err    error
	emits  []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req model.AnalysisRequest, emit engine.EmitFunc) (*model.AnalysisResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if emit != nil {
		for _, event := range f.emits {
			if err := emit(event, model.StatusPayload{Message: event}); err != nil {
				break
			}
		}
	}
	return f.result, nil
}

type fakeCharts struct {
	rows []storage.ChartRow
	err  error
}

func (f *fakeCharts) EvaluationCounts(ctx context.Context, field storage.ChartField, byPublication bool) ([]storage.ChartRow, error) {
	return f.rows, f.err
}

func newTestService(a *fakeAnalyzer, c *fakeCharts) *NewsService {
	if c == nil {
		c = &fakeCharts{}
	}
	return NewNewsService(a, c)
}

func postAnalyze(t *testing.T, s *NewsService, path, body, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.RemoteAddr = ip + ":51234"
	w := httptest.NewRecorder()
	switch path {
	case "/analyze":
		s.HandleAnalyze(w, req)
	case "/analyze/stream":
		s.HandleStream(w, req)
	default:
		t.Fatalf("unknown path %s", path)
	}
	return w
}

func TestHandleAnalyzeReturnsResult(t *testing.T) {
	s := newTestService(&fakeAnalyzer{result: &model.AnalysisResult{
		URL:   "https://example.com/news/story",
		Title: "A headline",
	}}, nil)

	w := postAnalyze(t, s, "/analyze", `{"url": "https://example.com/news/story"}`, "10.0.0.1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var got model.AnalysisResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Title != "A headline" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestHandleAnalyzeValidationError(t *testing.T) {
	s := newTestService(&fakeAnalyzer{err: &validate.Error{Detail: "URL does not look like a news article."}}, nil)

	w := postAnalyze(t, s, "/analyze", `{"url": "https://example.com/"}`, "10.0.0.2")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["detail"] != "URL does not look like a news article." {
		t.Errorf("detail = %q", body["detail"])
	}
}

func TestHandleAnalyzeBadBody(t *testing.T) {
	s := newTestService(&fakeAnalyzer{result: &model.AnalysisResult{}}, nil)
	w := postAnalyze(t, s, "/analyze", `{not json`, "10.0.0.3")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleAnalyzeMethodNotAllowed(t *testing.T) {
	s := newTestService(&fakeAnalyzer{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/analyze", nil)
	w := httptest.NewRecorder()
	s.HandleAnalyze(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", w.Code)
	}
}

func TestStreamRateLimitPerIP(t *testing.T) {
	s := newTestService(&fakeAnalyzer{result: &model.AnalysisResult{}, emits: []string{"status"}}, nil)

	if w := postAnalyze(t, s, "/analyze/stream", `{"url": "u"}`, "10.1.0.1"); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w := postAnalyze(t, s, "/analyze/stream", `{"url": "u"}`, "10.1.0.1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
	// A different client still has a full bucket.
	if w := postAnalyze(t, s, "/analyze/stream", `{"url": "u"}`, "10.1.0.2"); w.Code != http.StatusOK {
		t.Errorf("other client status = %d", w.Code)
	}
}

func TestStreamEmitsSSEFrames(t *testing.T) {
	s := newTestService(&fakeAnalyzer{
		result: &model.AnalysisResult{},
		emits:  []string{"status", "evaluation", "evaluation", "status", "status", "done"},
	}, nil)

	w := postAnalyze(t, s, "/analyze/stream", `{"url": "u"}`, "10.2.0.1")
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	body := w.Body.String()
	var order []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "event: ") {
			order = append(order, strings.TrimPrefix(line, "event: "))
		}
	}
	want := []string{"status", "evaluation", "evaluation", "status", "status", "done"}
	if len(order) != len(want) {
		t.Fatalf("events = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("events = %v, want %v", order, want)
		}
	}
	if !strings.Contains(body, "data: {") {
		t.Error("frames missing data lines")
	}
}

func TestStreamValidationErrorIsPlainJSON(t *testing.T) {
	s := newTestService(&fakeAnalyzer{err: &validate.Error{Detail: "nope"}}, nil)

	w := postAnalyze(t, s, "/analyze/stream", `{"url": "u"}`, "10.3.0.1")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want a JSON error before the stream starts", ct)
	}
}

func TestHandleCharts(t *testing.T) {
	s := newTestService(&fakeAnalyzer{}, &fakeCharts{rows: []storage.ChartRow{
		{Metric: "Low", Key: "gpt-4o", Count: 3},
		{Metric: "High", Key: "gpt-4o", Count: 1},
	}})

	req := httptest.NewRequest(http.MethodGet, "/charts", nil)
	req.RemoteAddr = "10.4.0.1:9"
	w := httptest.NewRecorder()
	s.HandleCharts(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var body map[string]struct {
		ByModel       []storage.ChartGroup `json:"by_model"`
		ByPublication []storage.ChartGroup `json:"by_publication"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"fairness", "headline_article"} {
		charts, ok := body[field]
		if !ok {
			t.Fatalf("missing field %s", field)
		}
		if len(charts.ByModel) != 2 || charts.ByModel[0].X != "Low" {
			t.Errorf("%s by_model = %+v", field, charts.ByModel)
		}
	}
}

func TestHandleChartsStoreError(t *testing.T) {
	s := newTestService(&fakeAnalyzer{}, &fakeCharts{err: context.DeadlineExceeded})

	req := httptest.NewRequest(http.MethodGet, "/charts", nil)
	req.RemoteAddr = "10.5.0.1:9"
	w := httptest.NewRecorder()
	s.HandleCharts(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestService(&fakeAnalyzer{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.HandleHealth(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestClientIPForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:1234"
	if ip := clientIP(req); ip != "192.0.2.7" {
		t.Errorf("ip = %q", ip)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.7")
	if ip := clientIP(req); ip != "203.0.113.9" {
		t.Errorf("forwarded ip = %q", ip)
	}
}
