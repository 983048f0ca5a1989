package cli

import (
	"context"
	"log/slog"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/config"
)

func TestSetupLogger(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger = SetupLogger(&config.Config{LogLevel: "warn", LogFormat: "text"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
}

func TestGracefulShutdownRunsCleanup(t *testing.T) {
	logger := SetupLogger(&config.Config{LogLevel: "error", LogFormat: "text"})

	cleaned := make(chan bool, 1)
	ctx, done := GracefulShutdown(logger, time.Second, func(ctx context.Context) {
		_, hasDeadline := ctx.Deadline()
		cleaned <- hasDeadline
	})

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case hasDeadline := <-cleaned:
		assert.True(t, hasDeadline, "cleanup context should carry the shutdown timeout")
	case <-time.After(5 * time.Second):
		t.Fatal("cleanup not called")
	}

	finished := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("WaitForShutdown did not return")
	}
}
