package controllerclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendTelemetrySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	c := New(testLogger(), srv.URL, time.Second, RetryPolicy{Attempts: 3, Backoff: []time.Duration{0}})
	ok := c.SendTelemetryWithRetry(context.Background(), telemetry.Report{AgentID: "a1", Timestamp: 1, Metrics: []telemetry.Metric{{TargetIP: "x", LossRate: 0}}})
	require.True(t, ok)
}

// TestSendTelemetryRetriesThenSucceeds: the first two send_telemetry
// attempts fail, the third succeeds.
func TestSendTelemetryRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(testLogger(), srv.URL, time.Second, RetryPolicy{Attempts: 3, Backoff: []time.Duration{0, 0, 0}})
	ok := c.SendTelemetryWithRetry(context.Background(), telemetry.Report{AgentID: "a1", Timestamp: 1, Metrics: []telemetry.Metric{{TargetIP: "x"}}})
	require.True(t, ok)
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSendTelemetryExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testLogger(), srv.URL, time.Second, RetryPolicy{Attempts: 2, Backoff: []time.Duration{0}})
	ok := c.SendTelemetryWithRetry(context.Background(), telemetry.Report{AgentID: "a1", Timestamp: 1, Metrics: []telemetry.Metric{{TargetIP: "x"}}})
	require.False(t, ok)
}

// TestFetchRoutes404DoesNotRetry: a 404 response is "no data", not a
// retryable failure, and must not be treated as fallback at this layer.
func TestFetchRoutes404DoesNotRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(testLogger(), srv.URL, time.Second, RetryPolicy{Attempts: 3, Backoff: []time.Duration{0}})
	routes, ok := c.FetchRoutesWithRetry(context.Background(), "unknown")
	require.True(t, ok)
	require.Nil(t, routes)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetchRoutesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "a1", r.URL.Query().Get("agent_id"))
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"routes": []map[string]string{
				{"dst_cidr": "10.254.0.3/32", "next_hop": "10.254.0.2", "reason": "optimized_path"},
			},
		})
	}))
	defer srv.Close()

	c := New(testLogger(), srv.URL, time.Second, RetryPolicy{Attempts: 3, Backoff: []time.Duration{0}})
	routes, ok := c.FetchRoutesWithRetry(context.Background(), "a1")
	require.True(t, ok)
	require.Len(t, routes, 1)
	require.Equal(t, "10.254.0.2", routes[0].NextHop)
}
