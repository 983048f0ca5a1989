package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/stub"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	result := cli.OpenStore(context.Background(), logger, cfg)
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Failed to close data backend", applog.FieldError, err)
			}
		}
	}()

	opts := []stub.ServiceOption{stub.WithLogger(logger)}
	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		p, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, change events disabled", applog.FieldError, err)
		} else {
			publisher = p
			opts = append(opts, stub.WithPublisher(p))
		}
	}

	svc := stub.NewService(result.Store, opts...)
	handler, err := stub.NewHandler(svc, stub.HandlerConfig{
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	}).Router()
	if err != nil {
		logger.Error("Failed to build router", applog.FieldError, err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:           cfg.StubAddr(),
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16, // 64KB
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if publisher != nil {
			_ = publisher.Close()
		}
	})

	logger.Info("Starting ledger stub backend",
		"addr", cfg.StubAddr(),
		applog.FieldDataBackend, cfg.DataBackend,
		"amqp", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "addr", cfg.StubAddr())
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
