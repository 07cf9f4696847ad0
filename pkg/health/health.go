// Package health probes the game server's /health endpoint.
package health

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ormasoftchile/clickcheck/pkg/assertions"
)

// Marker must appear in a healthy response body.
const Marker = `"status":"ok"`

// DefaultTimeout bounds one probe.
const DefaultTimeout = 10 * time.Second

// Fetcher returns the body served at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTP fetches over net/http. Non-2xx responses are errors.
type HTTP struct {
	Client  *http.Client
	Timeout time.Duration
}

// Fetch implements Fetcher.
func (h HTTP) Fetch(ctx context.Context, url string) (string, error) {
	timeout := h.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return string(body), fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return string(body), nil
}

// Static serves a fixed body, used for replayed runs.
type Static string

// Fetch implements Fetcher.
func (s Static) Fetch(context.Context, string) (string, error) {
	return string(s), nil
}

// Check fetches <baseURL>/health and requires Marker in the body. The body
// (or the transport error text) is returned for diagnostics either way.
func Check(ctx context.Context, f Fetcher, baseURL string) (string, error) {
	url := strings.TrimRight(baseURL, "/") + "/health"
	body, err := f.Fetch(ctx, url)
	if err != nil {
		return body, fmt.Errorf("fetch %s: %w", url, err)
	}
	if ok, msg := assertions.Contains(body, Marker); !ok {
		return body, fmt.Errorf("unhealthy: %s", msg)
	}
	return body, nil
}
