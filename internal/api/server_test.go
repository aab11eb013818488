package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sanverite/sdwan-control-plane/internal/solver"
	"github.com/sanverite/sdwan-control-plane/internal/topology"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer() *Server {
	store := topology.New()
	slv := solver.New(discardLogger(), solver.Config{PenaltyFactor: 100, HysteresisFrac: 0.15})
	return NewServer(ServerOptions{Logger: discardLogger(), Store: store, Solver: slv})
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReportsAgentCount(t *testing.T) {
	s := newTestServer()
	rec := doRequest(s, http.MethodGet, "/v1/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.AgentCount)
}

func TestTelemetryAcceptsValidPayload(t *testing.T) {
	s := newTestServer()
	body := []byte(`{"agent_id":"a1","timestamp":100,"metrics":[{"target_ip":"10.0.0.2","rtt_ms":50,"loss_rate":0}]}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/telemetry", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, s.store.Count())
}

func TestTelemetryRejectsMalformedJSON(t *testing.T) {
	s := newTestServer()
	rec := doRequest(s, http.MethodPost, "/api/v1/telemetry", []byte(`not json`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTelemetryRejectsOutOfRangeLoss(t *testing.T) {
	s := newTestServer()
	body := []byte(`{"agent_id":"a1","timestamp":100,"metrics":[{"target_ip":"10.0.0.2","rtt_ms":50,"loss_rate":2.0}]}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/telemetry", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestTelemetryRejectsEmptyMetrics(t *testing.T) {
	s := newTestServer()
	body := []byte(`{"agent_id":"a1","timestamp":100,"metrics":[]}`)
	rec := doRequest(s, http.MethodPost, "/api/v1/telemetry", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRoutesUnknownAgentIs404(t *testing.T) {
	s := newTestServer()
	rec := doRequest(s, http.MethodGet, "/api/v1/routes?agent_id=unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesKnownAgentMayBeEmpty(t *testing.T) {
	s := newTestServer()
	body := []byte(`{"agent_id":"a1","timestamp":100,"metrics":[{"target_ip":"10.0.0.2","rtt_ms":50,"loss_rate":0}]}`)
	doRequest(s, http.MethodPost, "/api/v1/telemetry", body)

	// The first fetch emits the direct route; the second finds no cost
	// improvement past the hysteresis threshold and emits nothing.
	doRequest(s, http.MethodGet, "/api/v1/routes?agent_id=a1", nil)
	rec := doRequest(s, http.MethodGet, "/api/v1/routes?agent_id=a1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RoutesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Routes)
}

func TestRoutesMissingAgentIDIs400(t *testing.T) {
	s := newTestServer()
	rec := doRequest(s, http.MethodGet, "/api/v1/routes", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
