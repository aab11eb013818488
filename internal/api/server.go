// Package api hosts the controller's HTTP surface: telemetry ingest, route
// fetch, and a liveness endpoint, served off a small ServeMux with
// explicit per-phase timeouts and graceful shutdown.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sanverite/sdwan-control-plane/internal/metrics"
	"github.com/sanverite/sdwan-control-plane/internal/sdwanerr"
	"github.com/sanverite/sdwan-control-plane/internal/solver"
	"github.com/sanverite/sdwan-control-plane/internal/topology"
)

const (
	APIVersion     = "v1"
	DefaultAddress = "0.0.0.0:8080"
)

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *slog.Logger
	Store             *topology.Store
	Solver            *solver.Solver
	Metrics           *metrics.Controller
}

// Server hosts the controller's HTTP API.
type Server struct {
	http    *http.Server
	store   *topology.Store
	solver  *solver.Solver
	logger  *slog.Logger
	opts    ServerOptions
	metrics *metrics.Controller
}

// NewServer constructs a controller API server bound to store and solver.
// The server does not start listening until Start is called.
func NewServer(opts ServerOptions) *Server {
	if opts.Store == nil {
		panic("api.NewServer: Store is nil")
	}
	if opts.Solver == nil {
		panic("api.NewServer: Solver is nil")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	mux := http.NewServeMux()
	s := &Server{
		store:   opts.Store,
		solver:  opts.Solver,
		logger:  opts.Logger,
		opts:    opts,
		metrics: opts.Metrics,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           withBasicMiddleware(mux, opts.Logger),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			BaseContext: func(l net.Listener) context.Context {
				return context.Background()
			},
		},
	}

	mux.HandleFunc("/"+APIVersion+"/healthz", s.handleHealthz)
	mux.HandleFunc("/api/"+APIVersion+"/telemetry", s.handleTelemetry)
	mux.HandleFunc("/api/"+APIVersion+"/routes", s.handleRoutes)

	return s
}

// Start begins serving HTTP in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api: listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api: ListenAndServe error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the server, waiting up to ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	timeout := s.opts.ShutdownTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

func errTimestamp() string {
	return TimeNow().UTC().Format(time.RFC3339)
}

// handleHealthz reports liveness plus the agent count known to the
// topology store.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, APIError{Error: "method not allowed", Timestamp: errTimestamp()})
		return
	}
	writeJSON(w, http.StatusOK, HealthzResponse{Status: "ok", AgentCount: s.store.Count()})
}

// handleTelemetry implements POST /api/v1/telemetry: malformed JSON is a
// 400, a well-formed-but-invalid payload is a 422, and a valid report
// overwrites the agent's TopologyEntry.
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, APIError{Error: "method not allowed", Timestamp: errTimestamp()})
		return
	}

	var req TelemetryRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, APIError{Error: "invalid JSON: " + err.Error(), Timestamp: errTimestamp()})
		return
	}

	if err := ValidateTelemetry(req); err != nil {
		if errors.Is(err, sdwanerr.ErrInvalidArgument) {
			writeJSON(w, http.StatusUnprocessableEntity, APIError{Error: err.Error(), Timestamp: errTimestamp()})
			return
		}
		writeJSON(w, http.StatusBadRequest, APIError{Error: err.Error(), Timestamp: errTimestamp()})
		return
	}

	s.store.Put(req.AgentID, req.Timestamp, ToPeerMetrics(req))
	if s.metrics != nil {
		s.metrics.TelemetryRequests.Inc()
		s.metrics.TopologySize.Set(float64(s.store.Count()))
	}
	writeJSON(w, http.StatusOK, TelemetryAck{Status: "ok"})
}

// handleRoutes implements GET /api/v1/routes?agent_id=<id>: 404 if the
// agent has never posted telemetry, else the solver's current route set
// for that agent (which may be empty).
func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, APIError{Error: "method not allowed", Timestamp: errTimestamp()})
		return
	}

	agentID := r.URL.Query().Get("agent_id")
	if agentID == "" {
		writeJSON(w, http.StatusBadRequest, APIError{Error: "agent_id is required", Timestamp: errTimestamp()})
		return
	}
	if !s.store.Exists(agentID) {
		writeJSON(w, http.StatusNotFound, APIError{Error: "unknown agent_id", Timestamp: errTimestamp()})
		return
	}

	start := TimeNow()
	routes := s.solver.Solve(agentID, s.store.GetAll())
	if s.metrics != nil {
		s.metrics.RouteRequests.Inc()
		s.metrics.SolveDuration.WithLabelValues(agentID).Observe(time.Since(start).Seconds())
	}
	writeJSON(w, http.StatusOK, RoutesResponse{Routes: RoutesToView(routes)})
}

// withBasicMiddleware sets JSON content type and logs method/path/duration.
// No CORS or auth: agent-to-controller traffic is unauthenticated by
// design.
func withBasicMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := TimeNow()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
		logger.Debug("api: request", "method", r.Method, "path", r.URL.Path, "duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
