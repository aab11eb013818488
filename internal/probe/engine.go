package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/sanverite/sdwan-control-plane/internal/metrics"
	"github.com/sanverite/sdwan-control-plane/internal/telemetry"
	"github.com/sanverite/sdwan-control-plane/internal/window"
)

// peerBuffers holds the two sliding windows for one peer. Owned exclusively
// by the probe engine's goroutine; never touched from elsewhere, so no lock
// is needed.
type peerBuffers struct {
	addr string
	rtt  *window.Buffer
	loss *window.Buffer
}

// Config controls probe cadence and buffer sizing.
type Config struct {
	Peers      []string
	Interval   time.Duration
	Timeout    time.Duration
	WindowSize int
}

// Engine is the per-node probe engine.
type Engine struct {
	log     *slog.Logger
	pinger  Pinger
	cfg     Config
	peers   []*peerBuffers
	metrics *metrics.Agent
}

// WithMetrics attaches a prometheus metric set; samples are reported on
// every smoothedMetrics call. Optional — a nil metrics set is a no-op.
func (e *Engine) WithMetrics(m *metrics.Agent) *Engine {
	e.metrics = m
	return e
}

// NewEngine allocates one rtt/loss buffer pair per configured peer.
func NewEngine(log *slog.Logger, pinger Pinger, cfg Config) (*Engine, error) {
	e := &Engine{log: log, pinger: pinger, cfg: cfg}
	for _, addr := range cfg.Peers {
		rtt, err := window.New(cfg.WindowSize)
		if err != nil {
			return nil, err
		}
		loss, err := window.New(cfg.WindowSize)
		if err != nil {
			return nil, err
		}
		e.peers = append(e.peers, &peerBuffers{addr: addr, rtt: rtt, loss: loss})
	}
	return e, nil
}

// probeOnce issues a single echo to addr and classifies the outcome.
func (e *Engine) probeOnce(ctx context.Context, addr string) Result {
	return e.pinger.Ping(ctx, addr, e.cfg.Timeout)
}

// probeAll probes every configured peer in order, appending to the loss
// buffer unconditionally and to the RTT buffer only on success — the split
// that lets a flaky link still report a meaningful latency while loss is
// tracked independently.
func (e *Engine) probeAll(ctx context.Context) {
	for _, pb := range e.peers {
		res := e.probeOnce(ctx, pb.addr)
		if res.Loss {
			pb.loss.Append(1.0)
			continue
		}
		pb.loss.Append(0.0)
		pb.rtt.Append(float64(res.RTT.Milliseconds()))
	}
}

// smoothedMetrics converts the current buffer contents into Metric values.
// A peer whose RTT buffer is empty reports an absent RTT; a peer whose loss
// buffer is also empty (no probes yet) reports loss 0.0 rather than absent.
func (e *Engine) smoothedMetrics() []telemetry.Metric {
	out := make([]telemetry.Metric, 0, len(e.peers))
	for _, pb := range e.peers {
		m := telemetry.Metric{TargetIP: pb.addr}
		if mean, ok := pb.rtt.Mean(); ok {
			rtt := mean
			m.RTTMs = &rtt
		}
		if mean, ok := pb.loss.Mean(); ok {
			m.LossRate = mean
		} else {
			m.LossRate = 0.0
		}
		if e.metrics != nil {
			if m.RTTMs != nil {
				e.metrics.ProbeRTT.WithLabelValues(pb.addr).Observe(*m.RTTMs)
			}
			e.metrics.ProbeLoss.WithLabelValues(pb.addr).Set(m.LossRate)
		}
		out = append(out, m)
	}
	return out
}

// RunOnce runs a single probe cycle and returns the smoothed metrics.
func (e *Engine) RunOnce(ctx context.Context) []telemetry.Metric {
	e.probeAll(ctx)
	return e.smoothedMetrics()
}

// RunLoop repeats RunOnce every cfg.Interval until ctx is canceled, invoking
// onMetrics after each cycle. A panic-free cycle error would have no way to
// surface here since probeOnce never returns one; a slow peer simply
// contributes a Loss sample and the loop continues undisturbed.
func (e *Engine) RunLoop(ctx context.Context, onMetrics func([]telemetry.Metric)) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		metrics := e.RunOnce(ctx)
		e.log.Debug("probe: cycle complete", "peers", len(metrics))
		onMetrics(metrics)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
