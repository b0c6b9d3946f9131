package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gmwallet/rpc-proxy/internal/config"
	"github.com/gmwallet/rpc-proxy/internal/log"
	"github.com/gmwallet/rpc-proxy/internal/metrics"
	"github.com/gmwallet/rpc-proxy/internal/override"
	"github.com/gmwallet/rpc-proxy/internal/proxy"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting RPC proxy",
		"env", cfg.Env,
		"port", cfg.Port,
		"upstream", cfg.Upstream,
	)

	// Setup metrics when a scrape address is configured
	var recorder proxy.Recorder
	var metricsHandler http.Handler
	if cfg.MetricsAddr != "" {
		m, handler, err := metrics.Setup("gm-rpc-proxy")
		if err != nil {
			logger.Fatalw("Failed to setup metrics", "error", err)
		}
		recorder = m
		metricsHandler = handler
	}

	// Build the override from config: sensitive methods are rejected with
	// the user-rejected error (no interactive approver in the daemon),
	// static results answer locally, everything else is forwarded.
	mux := override.NewMux()
	for _, method := range cfg.Override.RejectMethods {
		mux.Handle(method, override.Reject())
	}
	for method, result := range cfg.StaticResults() {
		mux.Handle(method, override.StaticRaw(result))
	}

	server := proxy.NewServer(cfg.Port, cfg.Secret, cfg.Upstream, mux.Func(), proxy.Options{
		BindHost:    cfg.BindHost,
		Logger:      logger,
		Metrics:     recorder,
		CORSOrigins: cfg.Security.CORSAllowedOrigins,
	})

	if cfg.SecretGenerated {
		logger.Infow("Generated endpoint secret", "secret", cfg.Secret)
	}
	logger.Infow("RPC endpoint ready",
		"url", fmt.Sprintf("http://%s:%d/%s", cfg.BindHost, cfg.Port, cfg.Secret),
		"rejected_methods", cfg.Override.RejectMethods,
	)

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve()
	}()

	// Metrics on a separate listener so the proxy keeps its single route
	var metricsServer *http.Server
	if metricsHandler != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metricsHandler)
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Infow("Metrics server starting", "addr", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorw("Metrics server failed", "error", err)
			}
		}()
	}

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
		}
		if metricsServer != nil {
			_ = metricsServer.Shutdown(ctx)
		}

		logger.Infow("Server stopped")
	}
}
