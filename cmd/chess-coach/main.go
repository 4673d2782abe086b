package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-coach/internal/coachbuilder"
	appcfg "github.com/park285/chess-coach/internal/config"
	"github.com/park285/chess-coach/internal/obslog"
	"github.com/park285/chess-coach/internal/server"
)

const (
	maxRequestBodySize = 64 << 10
	shutdownTimeout    = 10 * time.Second
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, err := coachbuilder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("coach init error", zap.Error(err))
	}

	srv := server.New(deps.Service, server.Config{
		CORSAllowOrigin: cfg.CORSAllowOrigin,
		Catalog:         deps.Catalog,
		EngineStats:     deps.Engine.Stats,
	}, logger)

	httpServer := &fasthttp.Server{
		Handler:            srv.Handler(),
		Name:               "chess-coach",
		MaxRequestBodySize: maxRequestBodySize,
		ReadTimeout:        15 * time.Second,
		// A move waits for three engine searches and the commentary model.
		WriteTimeout: deps.EngineTimeout + cfg.OllamaTimeout + 15*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- httpServer.ListenAndServe(cfg.HTTPAddr)
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := deps.Close(); err != nil {
		logger.Warn("close deps", zap.Error(err))
	}
}
