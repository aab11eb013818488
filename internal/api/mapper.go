package api

import (
	"fmt"

	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
	"github.com/sanverite/sdwan-control-plane/internal/topology"
)

// ValidateTelemetry enforces range checks before the payload reaches the
// topology store: timestamp > 0, at least one metric, loss_rate in [0,1],
// rtt_ms >= 0 when present.
func ValidateTelemetry(req TelemetryRequest) error {
	if req.AgentID == "" {
		return fmt.Errorf("agent_id is required: %w", sdwanerr.ErrInvalidArgument)
	}
	if req.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be > 0: %w", sdwanerr.ErrInvalidArgument)
	}
	if len(req.Metrics) == 0 {
		return fmt.Errorf("metrics must be non-empty: %w", sdwanerr.ErrInvalidArgument)
	}
	for _, m := range req.Metrics {
		if m.TargetIP == "" {
			return fmt.Errorf("metric target_ip is required: %w", sdwanerr.ErrInvalidArgument)
		}
		if m.LossRate < 0 || m.LossRate > 1 {
			return fmt.Errorf("loss_rate %v out of [0,1]: %w", m.LossRate, sdwanerr.ErrInvalidArgument)
		}
		if m.RTTMs != nil && *m.RTTMs < 0 {
			return fmt.Errorf("rtt_ms %v must be >= 0 or null: %w", *m.RTTMs, sdwanerr.ErrInvalidArgument)
		}
	}
	return nil
}

// ToPeerMetrics converts a validated TelemetryRequest's metric list into the
// topology store's peer-address-keyed map.
func ToPeerMetrics(req TelemetryRequest) map[string]topology.PeerMetric {
	out := make(map[string]topology.PeerMetric, len(req.Metrics))
	for _, m := range req.Metrics {
		out[m.TargetIP] = topology.PeerMetric{RTTMs: m.RTTMs, LossRate: m.LossRate}
	}
	return out
}

// RoutesToView converts the solver's Route list to the wire shape.
func RoutesToView(routes []telemetry.Route) []RouteView {
	out := make([]RouteView, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteView{DstCIDR: r.DstCIDR, NextHop: r.NextHop, Reason: r.Reason})
	}
	return out
}
