package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sanverite/sdwan-control-plane/internal/api"
	"github.com/sanverite/sdwan-control-plane/internal/config"
	"github.com/sanverite/sdwan-control-plane/internal/metrics"
	"github.com/sanverite/sdwan-control-plane/internal/solver"
	"github.com/sanverite/sdwan-control-plane/internal/topology"
)

// staleSweepInterval is how often the stale-agent sweep runs, independent
// of the configured stale threshold itself.
const staleSweepInterval = 15 * time.Second

func main() {
	var (
		configPath   string
		shutdownSecs int
	)

	root := &cobra.Command{
		Use:   "controller",
		Short: "Runs the central SD-WAN controller: topology store, path solver, and HTTP API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, time.Duration(shutdownSecs)*time.Second)
		},
	}
	root.Flags().StringVar(&configPath, "config", "/etc/sdwan/controller.yaml", "path to the controller YAML config")
	root.Flags().IntVar(&shutdownSecs, "shutdown-secs", 5, "graceful shutdown timeout in seconds")

	if err := root.Execute(); err != nil {
		slog.Default().Error("controller: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, shutdownTimeout time.Duration) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.LoadController(configPath)
	if err != nil {
		return fmt.Errorf("controller: load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	ctrlMetrics := metrics.NewController(reg)

	store := topology.New()
	slv := solver.New(logger, solver.Config{
		PenaltyFactor:  float64(cfg.PenaltyFactor),
		HysteresisFrac: cfg.HysteresisFrac,
	})

	srv := api.NewServer(api.ServerOptions{
		Addr:            cfg.ListenAddr,
		ShutdownTimeout: shutdownTimeout,
		Logger:          logger,
		Store:           store,
		Solver:          slv,
		Metrics:         ctrlMetrics,
	})
	srv.Start()
	logger.Info("controller: started", "listen_addr", cfg.ListenAddr)

	sweepCtx, sweepCancel := context.WithCancel(ctx)
	defer sweepCancel()
	go runStaleSweep(sweepCtx, logger, store, ctrlMetrics, int64(cfg.StaleThresholdSec))

	metricsAddr := cfg.MetricsListenAddr
	if metricsAddr == "" {
		metricsAddr = "0.0.0.0:9091"
	}
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg)}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("controller: metrics server error", "error", err)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.Info("controller: received signal, shutting down", "signal", sig.String())

	sweepCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("controller: API shutdown error", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("controller: metrics server shutdown error", "error", err)
	}

	logger.Info("controller: stopped")
	return nil
}

// runStaleSweep periodically evicts topology entries older than maxAgeSec.
func runStaleSweep(ctx context.Context, logger *slog.Logger, store *topology.Store, m *metrics.Controller, maxAgeSec int64) {
	ticker := time.NewTicker(staleSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := store.RemoveStale(time.Now(), maxAgeSec)
			if len(removed) > 0 {
				logger.Info("controller: evicted stale agents", "agents", removed)
			}
			m.TopologySize.Set(float64(store.Count()))
		}
	}
}
