// Package solver implements the Path Solver: it builds a weighted directed
// graph from a topology snapshot, runs shortest-path from one source at a
// time, and emits routes subject to hysteresis, built on
// gonum.org/v1/gonum/graph.
package solver

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
	"github.com/sanverite/sdwan-control-plane/internal/topology"
)

// Config holds the cost model and hysteresis parameters.
type Config struct {
	PenaltyFactor  float64
	HysteresisFrac float64
}

// Solver computes per-agent next-hop routes. CostHistory is mutable shared
// state protected by a single mutex — the solver is otherwise a pure
// function of the snapshot it is given.
type Solver struct {
	log *slog.Logger
	cfg Config

	mu      sync.Mutex
	history map[costKey]float64
}

type costKey struct {
	source, dest string
}

// New constructs a Solver with an empty CostHistory.
func New(log *slog.Logger, cfg Config) *Solver {
	return &Solver{log: log, cfg: cfg, history: map[costKey]float64{}}
}

// ResetHistory clears CostHistory; used in tests and after a known
// topology upheaval.
func (s *Solver) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = map[costKey]float64{}
}

// linkCost implements the cost model: cost = r + l*K when RTT is present,
// +Inf when absent.
func linkCost(m topology.PeerMetric, penalty float64) float64 {
	if m.RTTMs == nil {
		return math.Inf(1)
	}
	return *m.RTTMs + m.LossRate*penalty
}

// idGraph is a string-keyed wrapper over gonum's int64-indexed graph.Node
// model, assigning a stable int64 id to each agent/peer address seen.
type idGraph struct {
	g      *simple.WeightedDirectedGraph
	idOf   map[string]int64
	nameOf map[int64]string
	nextID int64
}

func newIDGraph() *idGraph {
	return &idGraph{
		g:      simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		idOf:   map[string]int64{},
		nameOf: map[int64]string{},
	}
}

func (ig *idGraph) nodeFor(name string) int64 {
	if id, ok := ig.idOf[name]; ok {
		return id
	}
	id := ig.nextID
	ig.nextID++
	ig.idOf[name] = id
	ig.nameOf[id] = name
	ig.g.AddNode(simple.Node(id))
	return id
}

// buildGraph constructs the weighted directed graph from a topology
// snapshot: a node per reporting agent, and a node for every edge
// endpoint, including targets that never report themselves, so silent
// relays still work.
func buildGraph(snapshot map[string]topology.Entry, penalty float64) *idGraph {
	ig := newIDGraph()
	for source, entry := range snapshot {
		ig.nodeFor(source)
		for target, metric := range entry.Metrics {
			ig.nodeFor(target)
			cost := linkCost(metric, penalty)
			if math.IsInf(cost, 1) {
				continue // absent edge: effectively not present in the graph
			}
			sid := ig.idOf[source]
			tid := ig.idOf[target]
			ig.g.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(sid), T: simple.Node(tid), W: cost})
		}
	}
	return ig
}

// Solve computes the route set for source agent S against the given
// topology snapshot, applying hysteresis and writing through CostHistory.
func (s *Solver) Solve(source string, snapshot map[string]topology.Entry) []telemetry.Route {
	ig := buildGraph(snapshot, s.cfg.PenaltyFactor)

	sourceID, ok := ig.idOf[source]
	if !ok {
		return nil
	}

	shortest := path.DijkstraFrom(simple.Node(sourceID), ig.g)

	s.mu.Lock()
	defer s.mu.Unlock()

	var routes []telemetry.Route
	h := 1 - s.cfg.HysteresisFrac

	for name, targetID := range ig.idOf {
		if name == source {
			continue
		}
		nodes, cost := shortest.To(targetID)
		if math.IsInf(cost, 1) || len(nodes) < 2 {
			continue // no finite-cost path: skipped silently
		}

		key := costKey{source: source, dest: name}
		prev, seen := s.history[key]
		if !seen {
			prev = math.Inf(1)
		}
		if !(cost < h*prev) {
			continue
		}
		s.history[key] = cost

		nextHop := telemetry.DirectNextHop
		reason := telemetry.ReasonDefault
		if len(nodes) >= 3 {
			second := nodes[1].ID()
			nextHop = ig.nameOf[second]
			reason = telemetry.ReasonOptimizedPath
		}

		routes = append(routes, telemetry.Route{
			DstCIDR: name + "/32",
			NextHop: nextHop,
			Reason:  reason,
		})
	}

	return routes
}
