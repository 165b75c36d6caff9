package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"scholarship-agent/handler"
	"scholarship-agent/internal/app"
	"scholarship-agent/internal/config"
	"scholarship-agent/internal/logger"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	// ---- Service ----
	a, err := app.New(ctx, cfg, log, app.Deps{})
	if err != nil {
		log.WithError(err).Error("failed to build chat service", nil)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(a.Chat, log)
	if err != nil {
		log.WithError(err).Error("failed to create handler", nil)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
