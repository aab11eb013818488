package api

import "time"

// Public JSON types for the controller's HTTP surface. These are
// intentionally decoupled from the internal telemetry/topology types so
// wire-format changes don't ripple through solver/store internals.

// TelemetryRequest is the body of POST /api/v1/telemetry.
type TelemetryRequest struct {
	AgentID   string                  `json:"agent_id"`
	Timestamp int64                   `json:"timestamp"`
	Metrics   []TelemetryMetricFields `json:"metrics"`
}

// TelemetryMetricFields is one metric entry within TelemetryRequest.
type TelemetryMetricFields struct {
	TargetIP string   `json:"target_ip"`
	RTTMs    *float64 `json:"rtt_ms"`
	LossRate float64  `json:"loss_rate"`
}

// TelemetryAck is the 200 response body for a successfully ingested report.
type TelemetryAck struct {
	Status string `json:"status"`
}

// RoutesResponse is the 200 response body for GET /api/v1/routes.
type RoutesResponse struct {
	Routes []RouteView `json:"routes"`
}

// RouteView mirrors telemetry.Route's wire shape.
type RouteView struct {
	DstCIDR string `json:"dst_cidr"`
	NextHop string `json:"next_hop"`
	Reason  string `json:"reason"`
}

// HealthzResponse is the /v1/healthz payload: liveness plus the count of
// agents currently known to the topology store, giving operators a
// liveness signal with actual content.
type HealthzResponse struct {
	Status     string `json:"status"`
	AgentCount int    `json:"agent_count"`
}

// APIError is the standard error payload for non-2xx responses.
type APIError struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// TimeNow abstracts time for tests; overridden there.
var TimeNow = func() time.Time { return time.Now() }
