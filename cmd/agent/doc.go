// Command agent runs the per-node SD-WAN control-plane process.
//
// Usage:
//
//	agent --config /etc/sdwan/agent.yaml --shutdown-secs 5
//
// Flags:
//
//	--config          path to the agent YAML config (default /etc/sdwan/agent.yaml)
//	--shutdown-secs   graceful shutdown timeout in seconds (default 5)
//
// Behavior:
//
// Loads configuration, wires the probe engine, route reconciler, and
// controller client into an Agent Coordinator, starts the probe and sync
// loops, and serves Prometheus metrics. Blocks on SIGINT/SIGTERM for
// graceful shutdown: the coordinator is stopped first (bounded by
// --shutdown-secs), then the metrics server.
package main
