package probe

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// Result is the outcome of a single echo attempt.
type Result struct {
	// RTT is valid only when Loss is false.
	RTT  time.Duration
	Loss bool
}

// Pinger abstracts the concrete echo mechanism as a contract (timeout in,
// RTT-or-loss out). ICMPPinger below is the one concrete implementation
// this repo ships.
type Pinger interface {
	Ping(ctx context.Context, addr string, timeout time.Duration) Result
}

// ICMPPinger sends a single unprivileged ICMP (or UDP-based, depending on
// OS permissions) echo request per call using pro-bing.
type ICMPPinger struct {
	// Privileged selects a raw ICMP socket (requires CAP_NET_RAW / root)
	// over pro-bing's unprivileged UDP datagram mode. Defaults to false.
	Privileged bool
}

// Ping issues one echo request to addr and blocks until a reply, timeout,
// or ctx cancellation. Any error, including timeout, is reported as Loss
// and never returned to the caller — every failure mode is classified
// identically (loss = 1.0, rtt absent).
func (p ICMPPinger) Ping(ctx context.Context, addr string, timeout time.Duration) Result {
	pinger, err := probing.NewPinger(addr)
	if err != nil {
		return Result{Loss: true}
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(p.Privileged)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pinger.RunWithContext(runCtx); err != nil {
		return Result{Loss: true}
	}

	stats := pinger.Statistics()
	if stats == nil || stats.PacketsRecv == 0 {
		return Result{Loss: true}
	}
	return Result{RTT: stats.AvgRtt, Loss: false}
}
