// Package metrics defines the prometheus registries for both process
// kinds.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Agent bundles the probe/fallback/route-count instruments the agent
// process exposes on /metrics.
type Agent struct {
	ProbeRTT        *prometheus.HistogramVec
	ProbeLoss       *prometheus.GaugeVec
	Fallback        prometheus.Gauge
	InstalledRoutes prometheus.Gauge
	SyncFailures    prometheus.Counter
}

// NewAgent registers and returns the agent-side metric set against reg.
func NewAgent(reg prometheus.Registerer) *Agent {
	factory := promauto.With(reg)
	return &Agent{
		ProbeRTT: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sdwan_agent",
			Name:      "probe_rtt_ms",
			Help:      "Smoothed round-trip time to each peer, in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"peer"}),
		ProbeLoss: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "sdwan_agent",
			Name:      "probe_loss_rate",
			Help:      "Smoothed loss rate to each peer, in [0,1].",
		}, []string{"peer"}),
		Fallback: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sdwan_agent",
			Name:      "fallback_active",
			Help:      "1 if the agent is currently in fallback mode, else 0.",
		}),
		InstalledRoutes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sdwan_agent",
			Name:      "installed_routes",
			Help:      "Number of overlay host routes currently installed.",
		}),
		SyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sdwan_agent",
			Name:      "sync_failures_total",
			Help:      "Count of sync cycles that entered fallback.",
		}),
	}
}

// Controller bundles the topology/solver/API instruments the controller
// process exposes on /metrics.
type Controller struct {
	TopologySize      prometheus.Gauge
	SolveDuration     *prometheus.HistogramVec
	TelemetryRequests prometheus.Counter
	RouteRequests     prometheus.Counter
}

// NewController registers and returns the controller-side metric set
// against reg.
func NewController(reg prometheus.Registerer) *Controller {
	factory := promauto.With(reg)
	return &Controller{
		TopologySize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sdwan_controller",
			Name:      "topology_agents",
			Help:      "Number of agents currently known to the topology store.",
		}),
		SolveDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sdwan_controller",
			Name:      "solve_duration_seconds",
			Help:      "Time spent computing a route set for one agent.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"agent_id"}),
		TelemetryRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sdwan_controller",
			Name:      "telemetry_requests_total",
			Help:      "Count of accepted telemetry ingest requests.",
		}),
		RouteRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sdwan_controller",
			Name:      "route_requests_total",
			Help:      "Count of route fetch requests.",
		}),
	}
}

// Handler returns the HTTP handler to mount at /metrics for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
