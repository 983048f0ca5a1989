package main

import (
	"context"
	"os"
	"time"

	"ledger/internal/app"
	"ledger/internal/cli"
	applog "ledger/internal/log"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create application", applog.FieldError, err)
		os.Exit(1)
	}
	for _, p := range []app.Plugin{app.Components(), app.Router()} {
		if err := a.Use(p); err != nil {
			logger.Error("Failed to install plugin", "plugin", p.Name(), applog.FieldError, err)
			os.Exit(1)
		}
	}
	if err := a.Mount(cfg.Addr()); err != nil {
		logger.Error("Failed to mount application", applog.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := a.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	select {
	case err, ok := <-a.Errors():
		if ok && err != nil {
			logger.Error("Server error", applog.FieldError, err, "addr", cfg.Addr())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			_ = a.Shutdown(shutdownCtx)
			cancel()
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
