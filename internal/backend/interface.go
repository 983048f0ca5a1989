package backend

import (
	"context"

	"ledger/internal/core"
)

// TransactionStore persists ledger entries. ListTransactions returns the
// newest date first, most recently added first within a date.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	AddTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
}

// CategoryStore persists categories. Names are unique ignoring case; a
// clash is reported as core.ErrConflict and a missing id as
// core.ErrNotFound.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	AddCategory(ctx context.Context, c core.Category) error
	// UpdateCategory renames c.ID and stamps c.UpdateTime, keeping the
	// stored CreateTime. It returns the stored record.
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// Store is everything the stub backend needs from a data backend.
type Store interface {
	TransactionStore
	CategoryStore
	Ping(ctx context.Context) error
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and optional cleanup function
type BackendResult struct {
	Store   Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	// CreateBackend creates a store based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres and MySQL
	DatabaseURL string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MySQLBackend    BackendType = "mysql"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend, MySQLBackend:
		return true
	default:
		return false
	}
}
