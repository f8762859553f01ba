package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RenderClient fetches fully rendered markup from a headless-browser
// rendering service over HTTP.
type RenderClient struct {
	baseURL string
	client  *http.Client
}

var _ Renderer = (*RenderClient)(nil)

// NewRenderClient builds a client for the render service at baseURL.
func NewRenderClient(baseURL string, timeout time.Duration) *RenderClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RenderClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Render asks the service to load the page in a headless browser and
// return the final DOM.
func (c *RenderClient) Render(ctx context.Context, pageURL string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid render base URL: %w", err)
	}
	u.Path = "/render"
	q := u.Query()
	q.Set("url", pageURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create render request: %w", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("render request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("render service error (status %d): %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read render response: %w", err)
	}
	return string(body), nil
}
