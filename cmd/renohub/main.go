package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"renohub/internal/app"
	"renohub/internal/cli"
	apphttp "renohub/internal/http"
	"renohub/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", log.FieldError, err, log.FieldOperation, log.OpStartup)
		os.Exit(1)
	}

	checks := make([]apphttp.ReadinessCheck, 0, len(a.Checks))
	for _, c := range a.Checks {
		checks = append(checks, apphttp.ReadinessCheck{Name: c.Name, Check: c.Fn})
	}

	srv := apphttp.NewServer(":"+cfg.Port, a.Service, apphttp.Options{
		RequestTimeout:   cfg.RequestTimeout,
		AllowOrigin:      cfg.CORSAllowOrigin,
		SummaryRateLimit: cfg.SummaryRateLimit,
		Readiness:        checks,
		Logger:           logger,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := a.Close(); err != nil {
			logger.Error("Failed to release resources", log.FieldError, err)
		}
	})

	logger.Info("Starting renohub server", "port", cfg.Port, "backend", cfg.RecordBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		_ = a.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
