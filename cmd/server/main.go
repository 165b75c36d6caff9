package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"scholarship-agent/internal/app"
	"scholarship-agent/internal/config"
	"scholarship-agent/internal/httpserver"
	"scholarship-agent/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log, app.Deps{})
	if err != nil {
		log.WithError(err).Error("failed to build chat service", nil)
		os.Exit(1)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := httpserver.NewRouter(httpserver.RouterConfig{
		Chat:    a.Chat,
		Metrics: a.Metrics.Handler(),
		Logger:  log,
	})
	if err != nil {
		log.WithError(err).Error("failed to create router", nil)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("http server listening", map[string]interface{}{
			"addr":            cfg.HTTPAddr,
			"mode":            string(a.Chat.Mode()),
			"catalog_version": a.Chat.CatalogVersion(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("http server stopped", nil)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.RemoteTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed", nil)
	}
	log.Info("http server stopped", nil)
}
