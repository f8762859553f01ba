// Package scraper acquires article markup and extracts readable content.
package scraper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/newslens/newslens/pkg/logger"
)

// Browser-like user agents, rotated per attempt.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) Gecko/20100101 Firefox/118.0",
}

const maxAttempts = 3

// FetchError is a terminal acquisition failure, carrying the last HTTP
// status when the server answered at all.
type FetchError struct {
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch failed after retries: HTTP %d", e.Status)
	}
	return fmt.Sprintf("fetch failed after retries: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Renderer is the alternate full-render acquisition path, tried once when
// the primary fetch terminates with a 403.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// Fetcher retrieves article markup with retries and an optional render
// fallback. It keeps no state across requests.
type Fetcher struct {
	client   *http.Client
	renderer Renderer
	rng      *rand.Rand

	// baseDelay is scaled exponentially between attempts, capped at maxDelay.
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewFetcher builds a Fetcher with the given request timeout. renderer may
// be nil, which disables the 403 fallback.
func NewFetcher(timeout time.Duration, renderer Renderer) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		renderer:  renderer,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		baseDelay: time.Second,
		maxDelay:  8 * time.Second,
	}
}

// Fetch retrieves the markup at url. It makes up to three attempts with
// exponential backoff; if the final failure is specifically a 403 and a
// renderer is configured, it falls back once to full rendering.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	var lastStatus int

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := f.baseDelay << (attempt - 1)
			if delay > f.maxDelay {
				delay = f.maxDelay
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &FetchError{Err: ctx.Err()}
			}
		}

		html, status, err := f.attempt(ctx, url)
		if err == nil {
			return html, nil
		}
		lastErr = err
		lastStatus = status
		logger.Log.Debugf("fetch attempt %d/%d failed for %s: %v", attempt+1, maxAttempts, url, err)
	}

	if lastStatus == http.StatusForbidden && f.renderer != nil {
		logger.Log.Infof("falling back to render service for %s", url)
		html, err := f.renderer.Render(ctx, url)
		if err != nil {
			return "", &FetchError{Status: lastStatus, Err: fmt.Errorf("render fallback failed: %w", err)}
		}
		return html, nil
	}

	return "", &FetchError{Status: lastStatus, Err: lastErr}
}

func (f *Fetcher) attempt(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", userAgents[f.rng.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.google.com/")

	res, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		io.Copy(io.Discard, res.Body)
		return "", res.StatusCode, fmt.Errorf("HTTP %d", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", 0, err
	}
	return string(body), 0, nil
}
