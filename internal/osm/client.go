// Viking Event Mgmt - Offline-First Event Sign-In for Scout Sections
// Copyright 2026 Viking Scouts
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vikingscouts/eventmgmt

// Package osm is the client for the upstream Scout-management service,
// reached through a proxy that enforces rate limits and reports budget in
// a _rateLimitInfo side channel on every response.
//
// Every call is serialized through the rate-limit queue and protected by
// a circuit breaker around the transport. Credential rejections trip the
// session auth gate; "blocked" responses set a sticky store flag.
package osm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/vikingscouts/eventmgmt/internal/logging"
	"github.com/vikingscouts/eventmgmt/internal/metrics"
	"github.com/vikingscouts/eventmgmt/internal/models"
	"github.com/vikingscouts/eventmgmt/internal/queue"
	"github.com/vikingscouts/eventmgmt/internal/store"
)

// maxBodySize bounds response reads; upstream payloads are small.
const maxBodySize = 4 << 20 // 4MB

const breakerName = "osm-proxy"

// Client talks to the upstream proxy.
type Client struct {
	baseURL string
	http    *http.Client
	q       *queue.Queue
	gate    *Gate
	st      *store.Store
	cb      *gobreaker.CircuitBreaker[*http.Response]

	// OnTransportError, when set, is notified of transport failures so
	// the network sensor can flip to offline without waiting for a probe.
	OnTransportError func()
}

// NewClient creates an upstream client. Calls are serialized through q
// and refused while gate is open. st holds the sticky blocked flag; it
// may be nil in tests.
func NewClient(baseURL string, q *queue.Queue, gate *Gate, st *store.Store) *Client {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		// Open after a 60% transport failure rate over at least 10 calls.
		// Only transport errors count; HTTP error statuses mean the
		// upstream is reachable and are handled above the breaker.
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("upstream circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		q:       q,
		gate:    gate,
		st:      st,
		cb:      cb,
	}
}

// stateToFloat converts circuit breaker state to a metric value.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a log label.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// BreakerState exposes the transport breaker state for the status surface.
func (c *Client) BreakerState() string {
	return stateToString(c.cb.State())
}

// call runs one request through the queue, decoding a 2xx body into out
// (which may be nil).
func (c *Client) call(ctx context.Context, label, method, path string, tok string, query url.Values, body, out any) error {
	return c.q.Do(ctx, label, func(ctx context.Context) (*models.RateLimitInfo, error) {
		return c.roundTrip(ctx, label, method, path, tok, query, body, out)
	})
}

// roundTrip performs the HTTP exchange and classifies the outcome. It runs
// inside the queue worker: exactly one instance is in flight at a time.
func (c *Client) roundTrip(ctx context.Context, label, method, path, tok string, query url.Values, body, out any) (*models.RateLimitInfo, error) {
	if !c.gate.ShouldMakeAPICall() {
		return nil, ErrAuthBlocked
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", label, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", label, err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.cb.Execute(func() (*http.Response, error) {
		return c.http.Do(req)
	})
	if err != nil {
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, failureLabel(err)).Inc()
		if c.OnTransportError != nil {
			c.OnTransportError()
		}
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read %s response: %w", label, err)}
	}

	info := extractRateLimitInfo(raw)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return info, fmt.Errorf("decode %s response: %w", label, err)
			}
		}
		return info, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.gate.Trip(fmt.Sprintf("%s returned %d", label, resp.StatusCode))
		return info, &AuthError{Status: resp.StatusCode}

	case resp.StatusCode == http.StatusTooManyRequests:
		return info, &queue.RateLimitError{
			RetryAfter: retryAfterFrom(raw, resp.Header),
			Info:       info,
		}

	default:
		if detail, blocked := blockedDetail(raw); blocked {
			c.persistBlockedFlag(detail)
			return info, &BlockedError{Detail: detail}
		}
		return info, fmt.Errorf("%s failed with status %d: %s", label, resp.StatusCode, bodyExcerpt(raw))
	}
}

func failureLabel(err error) string {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return "rejected"
	}
	return "failure"
}

// extractRateLimitInfo pulls the _rateLimitInfo side channel out of any
// response body, success or error.
func extractRateLimitInfo(raw []byte) *models.RateLimitInfo {
	var wrapper struct {
		Info *models.RateLimitInfo `json:"_rateLimitInfo"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil
	}
	return wrapper.Info
}

// retryAfterFrom finds the server's retry hint on a 429. The upstream
// reports rateLimitInfo.retryAfter, the proxy rateLimit.retryAfter; the
// Retry-After header is the fallback. Zero means "no hint".
func retryAfterFrom(raw []byte, header http.Header) time.Duration {
	var body struct {
		RateLimitInfo struct {
			RetryAfter float64 `json:"retryAfter"`
		} `json:"rateLimitInfo"`
		RateLimit struct {
			RetryAfter float64 `json:"retryAfter"`
		} `json:"rateLimit"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.RateLimitInfo.RetryAfter > 0 {
			return time.Duration(body.RateLimitInfo.RetryAfter * float64(time.Second))
		}
		if body.RateLimit.RetryAfter > 0 {
			return time.Duration(body.RateLimit.RetryAfter * float64(time.Second))
		}
	}
	if ra := header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

// blockedDetail detects upstream block notices in error bodies.
func blockedDetail(raw []byte) (string, bool) {
	lower := bytes.ToLower(raw)
	if bytes.Contains(lower, []byte("permanently blocked")) {
		return "permanently blocked", true
	}
	if bytes.Contains(lower, []byte("blocked")) {
		return "blocked", true
	}
	return "", false
}

// persistBlockedFlag records the sticky blocked state; read paths keep
// working from cache.
func (c *Client) persistBlockedFlag(detail string) {
	if c.st == nil {
		return
	}
	flag := map[string]any{"blocked": true, "detail": detail, "at": time.Now().UnixMilli()}
	if err := c.st.Put(store.BlockedKey(), flag); err != nil {
		logging.Err(err).Msg("failed to persist blocked flag")
	}
	logging.Error().Str("detail", detail).Msg("upstream reports this client is blocked")
}

// bodyExcerpt trims an error body for logging.
func bodyExcerpt(raw []byte) string {
	const max = 256
	if len(raw) > max {
		return string(raw[:max]) + "... (truncated)"
	}
	return string(raw)
}
