package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sanverite/sdwan-control-plane/internal/controllerclient"
	"github.com/sanverite/sdwan-control-plane/internal/metrics"
	"github.com/sanverite/sdwan-control-plane/internal/probe"
	"github.com/sanverite/sdwan-control-plane/internal/routing"
	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
)

// Config bundles the coordinator's own parameters; the probe/sync/reconcile
// components it drives carry their own configuration.
type Config struct {
	AgentID       string
	ProbeEngine   *probe.Engine
	Client        *controllerclient.Client
	Reconciler    *routing.Reconciler
	ProbeInterval time.Duration
	SyncInterval  time.Duration
	Metrics       *metrics.Agent
}

// Coordinator runs the probe loop and sync loop: two goroutines sharing
// one SharedState, plus the fallback state machine.
type Coordinator struct {
	log   *slog.Logger
	cfg   Config
	state *SharedState

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New constructs a Coordinator. Call Start to begin both loops.
func New(log *slog.Logger, cfg Config) *Coordinator {
	return &Coordinator{
		log:   log,
		cfg:   cfg,
		state: NewSharedState(),
	}
}

// Start launches the probe loop and sync loop as separate goroutines.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	c.wg.Add(2)
	go c.probeLoop(ctx)
	go c.syncLoop(ctx)
}

// Stop signals both loops to exit and joins them with a bounded timeout.
// Returns false if the join did not complete in time.
func (c *Coordinator) Stop(timeout time.Duration) bool {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return true
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *Coordinator) isRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// probeLoop: probe_all -> set latest Metrics -> sleep for the probe
// interval.
func (c *Coordinator) probeLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		if !c.isRunning() {
			return
		}

		metrics := c.cfg.ProbeEngine.RunOnce(ctx)
		c.state.SetMetrics(metrics)

		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.ProbeInterval):
		}
	}
}

// syncLoop: read metrics, build report, send with retry, handle fallback
// transitions, fetch routes with retry, reconcile, sleep.
func (c *Coordinator) syncLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		if !c.isRunning() {
			return
		}
		c.syncOnce(ctx)

		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(c.cfg.SyncInterval):
		}
	}
}

func (c *Coordinator) syncOnce(ctx context.Context) {
	metrics, ok := c.state.LatestMetrics()
	if !ok {
		return
	}

	report := telemetry.Report{
		AgentID:   c.cfg.AgentID,
		Timestamp: time.Now().Unix(),
		Metrics:   metrics,
	}

	if sent := c.cfg.Client.SendTelemetryWithRetry(ctx, report); !sent {
		c.enterFallback(ctx)
		return
	}

	if c.state.ExitFallback() {
		c.log.Info("agent: exiting fallback", "agent_id", c.cfg.AgentID)
		c.setFallbackGauge(0)
	}

	routes, ok := c.cfg.Client.FetchRoutesWithRetry(ctx, c.cfg.AgentID)
	if !ok {
		c.enterFallback(ctx)
		return
	}

	desired := routesToDesired(routes)
	result := c.cfg.Reconciler.Sync(ctx, desired)
	if len(result.Failed) > 0 {
		c.log.Warn("agent: sync had partial failures", "count", len(result.Failed))
	}
	if c.cfg.Metrics != nil {
		installed := 0
		for dst, nh := range desired {
			if _, failed := result.Failed[dst]; !failed && nh != telemetry.DirectNextHop {
				installed++
			}
		}
		c.cfg.Metrics.InstalledRoutes.Set(float64(installed))
	}
}

func (c *Coordinator) enterFallback(ctx context.Context) {
	if c.state.EnterFallback() {
		c.log.Warn("agent: entering fallback, flushing all routes", "agent_id", c.cfg.AgentID)
		c.cfg.Reconciler.FlushAll(ctx)
		c.setFallbackGauge(1)
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.SyncFailures.Inc()
			c.cfg.Metrics.InstalledRoutes.Set(0)
		}
	}
}

func (c *Coordinator) setFallbackGauge(v float64) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.Fallback.Set(v)
	}
}

// routesToDesired converts a controller route list into the
// destination(bare IP) -> next-hop map the Reconciler operates on, stripping
// the "/32" suffix the API carries in dst_cidr.
func routesToDesired(routes []telemetry.Route) map[string]string {
	desired := make(map[string]string, len(routes))
	for _, r := range routes {
		dst, _, found := strings.Cut(r.DstCIDR, "/")
		if !found {
			dst = r.DstCIDR
		}
		desired[dst] = r.NextHop
	}
	return desired
}
