// Command controller runs the central SD-WAN control-plane process.
//
// Usage:
//
//	controller --config /etc/sdwan/controller.yaml --shutdown-secs 5
//
// Flags:
//
//	--config          path to the controller YAML config (default /etc/sdwan/controller.yaml)
//	--shutdown-secs   graceful shutdown timeout in seconds (default 5)
//
// Behavior:
//
// Loads configuration, wires the topology store and path solver into the
// HTTP API server, starts a background sweep that evicts agents that have
// gone stale, and serves Prometheus metrics. Blocks on SIGINT/SIGTERM for
// graceful shutdown.
package main
