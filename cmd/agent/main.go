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

	"github.com/sanverite/sdwan-control-plane/internal/agent"
	"github.com/sanverite/sdwan-control-plane/internal/config"
	"github.com/sanverite/sdwan-control-plane/internal/controllerclient"
	"github.com/sanverite/sdwan-control-plane/internal/metrics"
	"github.com/sanverite/sdwan-control-plane/internal/probe"
	"github.com/sanverite/sdwan-control-plane/internal/routing"
)

func main() {
	var (
		configPath   string
		shutdownSecs int
	)

	root := &cobra.Command{
		Use:   "agent",
		Short: "Runs the per-node SD-WAN agent: probe engine, route reconciler, and controller sync loop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, time.Duration(shutdownSecs)*time.Second)
		},
	}
	root.Flags().StringVar(&configPath, "config", "/etc/sdwan/agent.yaml", "path to the agent YAML config")
	root.Flags().IntVar(&shutdownSecs, "shutdown-secs", 5, "graceful shutdown timeout in seconds")

	if err := root.Execute(); err != nil {
		slog.Default().Error("agent: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, shutdownTimeout time.Duration) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.LoadAgent(configPath)
	if err != nil {
		return fmt.Errorf("agent: load config: %w", err)
	}

	reg := prometheus.NewRegistry()
	agentMetrics := metrics.NewAgent(reg)

	pinger := probe.ICMPPinger{}
	engine, err := probe.NewEngine(logger, pinger, probe.Config{
		Peers:      cfg.Network.PeerIPs,
		Interval:   time.Duration(cfg.Probe.Interval) * time.Second,
		Timeout:    time.Duration(cfg.Probe.Timeout) * time.Second,
		WindowSize: cfg.Probe.WindowSize,
	})
	if err != nil {
		return fmt.Errorf("agent: build probe engine: %w", err)
	}
	engine.WithMetrics(agentMetrics)

	table := routing.NewIPRouteTable(cfg.Network.Interface)
	reconciler, err := routing.New(logger, table, cfg.Network.Interface, cfg.Network.Subnet)
	if err != nil {
		return fmt.Errorf("agent: build reconciler: %w", err)
	}

	backoffSecs := make([]time.Duration, len(cfg.Sync.RetryBackoff))
	for i, s := range cfg.Sync.RetryBackoff {
		backoffSecs[i] = time.Duration(s) * time.Second
	}
	client := controllerclient.New(logger, cfg.Controller.URL, time.Duration(cfg.Controller.Timeout)*time.Second, controllerclient.RetryPolicy{
		Attempts: cfg.Sync.RetryAttempts,
		Backoff:  backoffSecs,
	})

	coordinator := agent.New(logger, agent.Config{
		AgentID:       cfg.AgentID,
		ProbeEngine:   engine,
		Client:        client,
		Reconciler:    reconciler,
		ProbeInterval: time.Duration(cfg.Probe.Interval) * time.Second,
		SyncInterval:  time.Duration(cfg.Sync.Interval) * time.Second,
		Metrics:       agentMetrics,
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	coordinator.Start(runCtx)
	logger.Info("agent: started", "agent_id", cfg.AgentID, "peers", len(cfg.Network.PeerIPs))

	metricsAddr := cfg.MetricsListenAddr
	if metricsAddr == "" {
		metricsAddr = "0.0.0.0:9090"
	}
	metricsSrv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(reg)}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("agent: metrics server error", "error", err)
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	logger.Info("agent: received signal, shutting down", "signal", sig.String())

	cancel()
	if !coordinator.Stop(shutdownTimeout) {
		logger.Warn("agent: coordinator did not stop within shutdown timeout")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("agent: metrics server shutdown error", "error", err)
	}

	logger.Info("agent: stopped")
	return nil
}
