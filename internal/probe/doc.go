// Package probe implements the per-node Probe Engine: it measures
// round-trip time and reachability to every configured peer on a fixed
// interval and exposes smoothed Metric values over a sliding window.
//
// # Overview
//
// Engine allocates two sliding-window buffers per peer (rtt, loss) at
// construction. Each probe cycle issues one echo per peer through the
// Pinger interface, appends to the loss buffer unconditionally and to the
// RTT buffer only on success, then derives a Metric from the current
// buffer contents. Buffers are owned exclusively by the engine's own
// goroutine and never shared, so no locking is needed internally.
//
// # Pinger
//
// Pinger abstracts the echo mechanism by contract (timeout in, RTT-or-loss
// out). ICMPPinger is the one concrete implementation this repo ships,
// built on github.com/prometheus-community/pro-bing.
//
// # Loop
//
// RunLoop repeats RunOnce every configured interval until its context is
// canceled. A failed or slow peer never aborts the cycle — it simply
// contributes a loss sample — so the loop runs indefinitely without
// external supervision.
package probe
