package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/saturnines/issuebench/pkg/config"
)

// HTTPError wraps an HTTP response whose status was not retried and was
// not a 2xx success.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

// RetryTransport wraps an http.RoundTripper with full-jitter exponential
// backoff. Every GraphQL request is a POST, so unlike a general-purpose
// REST retry layer this one does not gate retries on an idempotent-method
// whitelist: a batched round-trip is itself idempotent from the caller's
// perspective (the BatchPaginator only advances cursors once a response
// is actually handled), so retrying a POST that never reached the server
// is safe.
type RetryTransport struct {
	Base   http.RoundTripper
	Cfg    *config.RetryConfig
	jitter *rand.Rand
}

// NewRetryTransport builds a RetryTransport. A nil base falls back to
// http.DefaultTransport. A nil cfg (or MaxAttempts <= 1) disables
// retrying entirely.
func NewRetryTransport(base http.RoundTripper, cfg *config.RetryConfig) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		Base:   base,
		Cfg:    cfg,
		jitter: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Cfg == nil || t.Cfg.MaxAttempts <= 1 {
		return t.Base.RoundTrip(req)
	}

	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt < t.Cfg.MaxAttempts; attempt++ {
		req2 := t.cloneRequest(req)

		resp, err := t.Base.RoundTrip(req2)

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && (netErr.Temporary() || netErr.Timeout()) {
				lastErr = err
			} else {
				return nil, err
			}
		} else {
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				return resp, nil
			}

			if !t.contains(t.Cfg.RetryableStatuses, resp.StatusCode) {
				if lastResp != nil {
					lastResp.Body.Close()
				}
				if resp.StatusCode >= 400 {
					return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status}
				}
				return resp, nil
			}

			if lastResp != nil {
				lastResp.Body.Close()
			}
			lastResp = resp
		}

		if ctxErr := req.Context().Err(); ctxErr != nil {
			if lastResp != nil {
				lastResp.Body.Close()
			}
			return nil, ctxErr
		}

		if attempt < t.Cfg.MaxAttempts-1 {
			delay := t.backoff(attempt)
			select {
			case <-req.Context().Done():
				if lastResp != nil {
					lastResp.Body.Close()
				}
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	if lastErr != nil {
		return nil, fmt.Errorf("retry transport failed after %d attempts: %w", t.Cfg.MaxAttempts, lastErr)
	}
	return nil, fmt.Errorf("retry transport failed after %d attempts: no response received", t.Cfg.MaxAttempts)
}

// cloneRequest makes a deep copy for safe body reuse across attempts.
func (t *RetryTransport) cloneRequest(r *http.Request) *http.Request {
	r2 := r.Clone(r.Context())
	if r.Body != nil {
		buf, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(buf))
		r2.Body = io.NopCloser(bytes.NewReader(buf))
	}
	return r2
}

// backoff computes a full-jitter exponential delay, capped at 30s.
func (t *RetryTransport) backoff(attempt int) time.Duration {
	base := time.Duration(t.Cfg.InitialBackoff * float64(time.Second))
	maxDelay := time.Duration(float64(base) * math.Pow(t.Cfg.BackoffMultiplier, float64(attempt)))
	if maxDelay > 30*time.Second {
		maxDelay = 30 * time.Second
	}
	return time.Duration(t.jitter.Float64() * float64(maxDelay))
}

func (t *RetryTransport) contains(slice []int, value int) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}
