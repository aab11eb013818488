// Package telemetry defines the wire types exchanged between agents and the
// controller, and the route descriptors the controller hands back. These
// are intentionally plain structs with JSON tags; validation lives at the
// API boundary (internal/api) and at the config boundary (internal/config),
// not here.
package telemetry

// Metric is one smoothed per-peer measurement produced by the probe engine.
// RTT is nil when every sample in the window timed out or none have been
// collected yet; loss is always a concrete value in [0,1].
type Metric struct {
	TargetIP string   `json:"target_ip"`
	RTTMs    *float64 `json:"rtt_ms"`
	LossRate float64  `json:"loss_rate"`
}

// Report is the payload an agent sends to the controller each sync tick.
type Report struct {
	AgentID   string   `json:"agent_id"`
	Timestamp int64    `json:"timestamp"`
	Metrics   []Metric `json:"metrics"`
}

// Route is a single desired host route returned by the controller. NextHop
// is either a peer overlay address or the literal "direct".
type Route struct {
	DstCIDR string `json:"dst_cidr"`
	NextHop string `json:"next_hop"`
	Reason  string `json:"reason"`
}

// Route reason tags, fixed by the solver.
const (
	ReasonDefault       = "default"
	ReasonOptimizedPath = "optimized_path"
)

// DirectNextHop is the sentinel next-hop value meaning "let the underlay's
// default forwarding apply" — no overlay host route installed for it.
const DirectNextHop = "direct"
