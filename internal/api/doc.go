// Package api exposes the controller's HTTP control-plane.
//
// Separation of Concerns
//
// The api package defines public JSON types (decoupled from the internal
// telemetry/topology/solver types), validates and maps inbound payloads,
// and hosts an HTTP server with minimal middleware. The topology and solver
// packages remain unaware of HTTP or JSON.
//
// Versioning
//
// Health is versioned under /v1; domain routes are versioned under /api/v1.
//
// Server
//
// NewServer wires handlers onto a ServeMux and configures timeouts. Start()
// runs ListenAndServe() in a goroutine; Stop() performs graceful shutdown.
//
// Current Endpoints
//
//   - GET  /v1/healthz:       liveness plus known agent count
//   - POST /api/v1/telemetry: ingest a TelemetryReport
//   - GET  /api/v1/routes:    fetch the current route set for an agent
package api
