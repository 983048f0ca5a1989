package backend

import (
	"context"
	"fmt"

	applog "ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/storage/memory"
)

var (
	_ Store = (*storage.SQLRepository)(nil)
	_ Store = (*memory.Store)(nil)
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createSQLBackend(ctx, storage.Postgres, config.DatabaseURL)
	case MySQLBackend:
		return f.createSQLBackend(ctx, storage.MySQL, config.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", applog.FieldDataBackend, MemoryBackend, "data_directory", dataDir)

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", applog.FieldDataBackend, SQLiteBackend, "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSQLBackend(ctx context.Context, dialect storage.Dialect, dsn string) (*BackendResult, error) {
	repo, err := storage.Open(ctx, dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s repository: %w", dialect, err)
	}

	f.logger.Info("Initialized SQL backend", applog.FieldDataBackend, dialect)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}
