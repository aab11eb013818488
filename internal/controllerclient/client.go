// Package controllerclient implements the agent-side HTTP client for the
// controller's two endpoints, wrapped in a bounded retry/backoff policy.
package controllerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
)

// RetryPolicy is the configurable N-attempts / fixed-sequence backoff:
// between attempt i and i+1, wait Backoff[min(i, len-1)].
type RetryPolicy struct {
	Attempts int
	Backoff  []time.Duration
}

// sequenceBackOff adapts RetryPolicy's fixed delay sequence to
// cenkalti/backoff's BackOff interface, so the retry loop below can reuse
// backoff.Retry instead of hand-rolling a sleep loop.
type sequenceBackOff struct {
	delays  []time.Duration
	attempt int
}

func (s *sequenceBackOff) NextBackOff() time.Duration {
	idx := s.attempt
	if idx >= len(s.delays) {
		idx = len(s.delays) - 1
	}
	s.attempt++
	return s.delays[idx]
}

func (s *sequenceBackOff) Reset() { s.attempt = 0 }

// Client is the agent-side Controller Client.
type Client struct {
	log     *slog.Logger
	baseURL string
	timeout time.Duration
	policy  RetryPolicy
	http    *http.Client
}

// New constructs a Client bound to baseURL (e.g. "http://10.254.0.1:8080").
func New(log *slog.Logger, baseURL string, timeout time.Duration, policy RetryPolicy) *Client {
	return &Client{
		log:     log,
		baseURL: baseURL,
		timeout: timeout,
		policy:  policy,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) newBackOff() backoff.BackOff {
	seq := &sequenceBackOff{delays: c.policy.Backoff}
	maxRetries := uint64(0)
	if c.policy.Attempts > 1 {
		maxRetries = uint64(c.policy.Attempts - 1)
	}
	return backoff.WithMaxRetries(seq, maxRetries)
}

// SendTelemetry POSTs report to /api/v1/telemetry. Success iff HTTP 200;
// any transport error or non-200 status is a failure.
func (c *Client) SendTelemetry(ctx context.Context, report telemetry.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("controllerclient: marshal report: %v: %w", err, sdwanerr.ErrInvalidArgument)
	}

	endpoint := c.baseURL + "/api/v1/telemetry"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("controllerclient: build request: %v: %w", err, sdwanerr.ErrTransportFailure)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controllerclient: POST %s: %v: %w", endpoint, err, sdwanerr.ErrTransportFailure)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("controllerclient: POST %s returned %d: %w", endpoint, resp.StatusCode, sdwanerr.ErrTransportFailure)
	}
	return nil
}

// SendTelemetryWithRetry wraps SendTelemetry in the retry policy. Returns
// true on any successful attempt, false after the retry budget is
// exhausted — exhaustion never propagates past this layer as an error. An
// ErrInvalidArgument failure is not retried.
func (c *Client) SendTelemetryWithRetry(ctx context.Context, report telemetry.Report) bool {
	op := func() error {
		err := c.SendTelemetry(ctx, report)
		if errors.Is(err, sdwanerr.ErrInvalidArgument) {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
	if err != nil {
		c.log.Warn("controllerclient: send_telemetry exhausted retries", "error", err)
		return false
	}
	return true
}

// routeListResponse mirrors the controller's GET /api/v1/routes body.
type routeListResponse struct {
	Routes []telemetry.Route `json:"routes"`
}

// FetchRoutes GETs /api/v1/routes?agent_id=<id>. HTTP 404 is "no routes
// known for this agent" and returns (nil, nil) without retry semantics at
// this layer; other failures return a non-nil error.
func (c *Client) FetchRoutes(ctx context.Context, agentID string) ([]telemetry.Route, error) {
	endpoint := c.baseURL + "/api/v1/routes?" + url.Values{"agent_id": {agentID}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("controllerclient: build request: %v: %w", err, sdwanerr.ErrTransportFailure)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("controllerclient: GET %s: %v: %w", endpoint, err, sdwanerr.ErrTransportFailure)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed routeListResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("controllerclient: decode routes: %v: %w", err, sdwanerr.ErrTransportFailure)
		}
		return parsed.Routes, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("controllerclient: GET %s returned %d: %w", endpoint, resp.StatusCode, sdwanerr.ErrTransportFailure)
	}
}

// FetchRoutesWithRetry wraps FetchRoutes in the retry policy. A 404 (nil,
// nil result) is NOT a failure and is returned immediately without
// consuming retries; a transport error or bad status is retried and
// returns (nil, false) after the retry budget is exhausted.
func (c *Client) FetchRoutesWithRetry(ctx context.Context, agentID string) ([]telemetry.Route, bool) {
	var routes []telemetry.Route
	var got404 bool

	op := func() error {
		r, err := c.FetchRoutes(ctx, agentID)
		if err != nil {
			return err
		}
		if r == nil {
			got404 = true
			return nil // terminal, not a retryable failure
		}
		routes = r
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
	if err != nil {
		c.log.Warn("controllerclient: fetch_routes exhausted retries", "error", err)
		return nil, false
	}
	if got404 {
		return nil, true
	}
	return routes, true
}
