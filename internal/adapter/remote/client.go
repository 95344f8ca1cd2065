// Package remote holds the HTTP clients for the upstream order and credit
// services. Both speak the legacy JSON endpoints with bearer-token auth; the
// token comes from config by injection, never from ambient storage.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/orderappu/recon-api/internal/logging"
)

const (
	defaultMaxRetries  = 3
	defaultBaseBackoff = 100 * time.Millisecond
)

// apiError carries the upstream status code so callers can branch on the 404
// sentinel without string matching.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

// client is the shared transport: JSON in/out, bearer auth, bounded retry
// with exponential backoff and jitter on connection errors and 5xx.
type client struct {
	base       string
	token      string
	http       *http.Client
	maxRetries int
}

func newClient(baseURL, token string, timeout time.Duration, maxRetries int) client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return client{
		base:       baseURL,
		token:      token,
		http:       &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// doJSON sends one request, retrying retryable failures. A non-2xx final
// answer is returned as *apiError; out may be nil when the body is ignored.
func (c client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = b
	}

	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			logging.FromCtx(ctx).Warn("upstream call failed", "url", u, "attempt", attempt, "error", err)
			continue
		}

		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = &apiError{Status: resp.StatusCode, Body: string(raw)}
			logging.FromCtx(ctx).Warn("upstream 5xx", "url", u, "status", resp.StatusCode, "attempt", attempt)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &apiError{Status: resp.StatusCode, Body: string(raw)}
		}

		if out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response from %s: %w", path, err)
			}
		}
		return nil
	}
	return fmt.Errorf("%s %s after %d attempts: %w", method, path, c.maxRetries, lastErr)
}

func backoff(attempt int) time.Duration {
	exp := defaultBaseBackoff * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Int63n(int64(exp / 2)))
	return exp + jitter
}

func statusOf(err error) (int, bool) {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae.Status, true
	}
	return 0, false
}
