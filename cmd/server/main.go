package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"modbusgw/pkg/api"
	"modbusgw/pkg/bridge"
	"modbusgw/pkg/config"
	"modbusgw/pkg/database"
	"modbusgw/pkg/health"
	"modbusgw/pkg/metrics"
	"modbusgw/pkg/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	// ══════════════════════════════════════════════════════════════
	// CONFIGURATION
	// ══════════════════════════════════════════════════════════════
	conf, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load conf", "error", err)
		os.Exit(1)
	}

	// ══════════════════════════════════════════════════════════════
	// STRUCTURED LOGGING
	// ══════════════════════════════════════════════════════════════
	var level slog.Level
	if err := level.UnmarshalText([]byte(conf.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	slog.Info("Config loaded",
		"script", conf.GatewayScript,
		"interpreter", conf.GatewayInterpreter,
		"workers", conf.WorkerConcurrency,
		"history", conf.HistoryEnabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ══════════════════════════════════════════════════════════════
	// GATEWAY BRIDGE
	// ══════════════════════════════════════════════════════════════
	gateway := bridge.New(bridge.Options{
		Interpreter:  conf.GatewayInterpreter,
		Script:       conf.GatewayScript,
		BaseDir:      conf.GatewayBaseDir,
		ResultPrefix: conf.ResultPrefix,
		Timeout:      conf.InvokeTimeout(),
	})

	promMetrics := metrics.New("modbus_gateway", nil)
	healthMonitor := health.NewHealthMonitor(conf.HealthFailureWindowMinutes, conf.HealthFailureThreshold)

	pool := worker.NewPool(conf.WorkerConcurrency, "GatewayPool", conf.InternalQueueSize, gateway).
		WithRecorder(promMetrics).
		WithRecorder(healthMonitor)

	// ══════════════════════════════════════════════════════════════
	// HISTORY (optional)
	// ══════════════════════════════════════════════════════════════
	var history api.HistoryReader
	var pipeline *historyPipeline
	if conf.HistoryEnabled {
		db, err := database.Connect(conf)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(db); err != nil {
			slog.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}

		invocationRepo, err := database.NewInvocationRepository(db, conf.EncryptionKey)
		if err != nil {
			slog.Error("Failed to create invocation repository", "error", err)
			os.Exit(1)
		}
		history = invocationRepo

		pipeline = startHistory(invocationRepo, conf.InternalQueueSize, conf.HistoryBatchSize, conf.HistoryFlushInterval())
		pool.WithHistory(pipeline.entries)
	}

	// ══════════════════════════════════════════════════════════════
	// START SERVICES
	// ══════════════════════════════════════════════════════════════
	pool.Start(ctx)

	// ══════════════════════════════════════════════════════════════
	// ROUTER SETUP
	// ══════════════════════════════════════════════════════════════
	gin.SetMode(gin.ReleaseMode)

	var auth *api.JwtAuth
	if conf.AuthEnabled() {
		auth = api.Auth(conf)
	} else {
		slog.Warn("JWT_SECRET not set, API is unauthenticated")
	}

	router := api.NewRouter(api.RouterConfig{
		Invoker:         pool,
		History:         history,
		Health:          healthMonitor,
		Auth:            auth,
		Metrics:         promMetrics.Handler(),
		ValidatePayload: conf.ValidatePayload,
	})

	// ══════════════════════════════════════════════════════════════
	// START SERVER
	// ══════════════════════════════════════════════════════════════
	srv := newHTTPServer(conf.ServerAddress, router)

	go func() {
		var err error
		if conf.TLSCertFile != "" && conf.TLSKeyFile != "" {
			slog.Info("Starting HTTPS server", "address", conf.ServerAddress)
			err = srv.ListenAndServeTLS(conf.TLSCertFile, conf.TLSKeyFile)
		} else {
			slog.Info("Starting HTTP server", "address", conf.ServerAddress)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}

	if pipeline != nil {
		if err := pipeline.stop(shutdownCtx, pool.Done()); err != nil {
			slog.Error("History not flushed before shutdown deadline", "error", err)
			return
		}
		slog.Info("History flushed")
	}
}
