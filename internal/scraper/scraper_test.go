package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testFetcher(renderer Renderer) *Fetcher {
	f := NewFetcher(5*time.Second, renderer)
	f.baseDelay = time.Millisecond
	return f
}

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a browser-like User-Agent")
		}
		w.Write([]byte("<html>article</html>"))
	}))
	defer srv.Close()

	html, err := testFetcher(nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "article") {
		t.Errorf("unexpected body: %q", html)
	}
}

func TestFetchRetriesThreeTimes(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testFetcher(nil).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected failure")
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", fe.Status)
	}
}

func TestFetchRecoversOnSecondAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	html, err := testFetcher(nil).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if html != "ok" {
		t.Errorf("body = %q", html)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

type fakeRenderer struct {
	calls int
	html  string
	err   error
}

func (f *fakeRenderer) Render(ctx context.Context, url string) (string, error) {
	f.calls++
	return f.html, f.err
}

func TestFetchFallsBackToRendererOn403(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	r := &fakeRenderer{html: "<html>rendered</html>"}
	html, err := testFetcher(r).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if html != "<html>rendered</html>" {
		t.Errorf("body = %q", html)
	}
	if r.calls != 1 {
		t.Errorf("renderer calls = %d, want 1", r.calls)
	}
}

func TestFetchNoFallbackOnOtherStatuses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := &fakeRenderer{html: "should not be used"}
	_, err := testFetcher(r).Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected failure")
	}
	if r.calls != 0 {
		t.Errorf("renderer calls = %d, want 0", r.calls)
	}
}

func TestRenderClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/render" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("url") != "https://example.com/news/a" {
			t.Errorf("url param = %q", r.URL.Query().Get("url"))
		}
		w.Write([]byte("<html>dom</html>"))
	}))
	defer srv.Close()

	c := NewRenderClient(srv.URL, time.Second)
	html, err := c.Render(context.Background(), "https://example.com/news/a")
	if err != nil {
		t.Fatal(err)
	}
	if html != "<html>dom</html>" {
		t.Errorf("html = %q", html)
	}
}

func TestExtract(t *testing.T) {
	html := `<!DOCTYPE html><html><head>
		<title>Council approves new budget | The Daily Record</title>
		<meta property="og:site_name" content="The Daily Record">
		<meta property="article:published_time" content="2024-05-17T10:30:00Z">
		</head><body><article><h1>Council approves new budget</h1>` +
		strings.Repeat("<p>The council voted on Thursday to approve the spending plan after a lengthy debate over school funding and road maintenance priorities.</p>", 20) +
		`</article></body></html>`

	a, err := Extract("https://example.com/news/council-budget", html)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(a.Title, "Council approves new budget") {
		t.Errorf("title = %q", a.Title)
	}
	if a.Publication == "" {
		t.Error("publication should fall back to site name or host")
	}
	if len(a.Text) < 500 {
		t.Errorf("text too short: %d", len(a.Text))
	}
	if a.PublishedAt == nil || a.PublishedAt.Year() != 2024 {
		t.Errorf("published at = %v", a.PublishedAt)
	}
}

func TestSplitByline(t *testing.T) {
	got := splitByline("By Jane Roe, John Doe and Ana Li")
	want := []string{"Jane Roe", "John Doe", "Ana Li"}
	if len(got) != len(want) {
		t.Fatalf("authors = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("author[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if splitByline("") != nil {
		t.Error("empty byline should yield nil")
	}
}
