package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func tx(id, amount, date string, tt core.TransactionType) core.Transaction {
	return core.Transaction{
		ID:       id,
		Amount:   core.MustMoney(amount),
		Category: "Food",
		Type:     tt,
		Remarks:  "note " + id,
		Date:     date,
	}
}

func TestSQLiteTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Ping(ctx))
	assert.Equal(t, SQLite, repo.Dialect())

	txs, err := repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)

	require.NoError(t, repo.AddTransaction(ctx, tx("a", "10.10", "2025-01-05", core.Expense)))
	require.NoError(t, repo.AddTransaction(ctx, tx("b", "2500", "2025-02-01", core.Income)))
	require.NoError(t, repo.AddTransaction(ctx, tx("c", "0.30", "2025-01-05", core.Expense)))

	txs, err = repo.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{txs[0].ID, txs[1].ID, txs[2].ID})
	assert.Equal(t, "10.10", txs[2].Amount.Format())
	assert.Equal(t, core.Income, txs[0].Type)
	assert.Equal(t, "note a", txs[2].Remarks)

	err = repo.AddTransaction(ctx, tx("a", "1", "2025-01-01", core.Expense))
	assert.ErrorIs(t, err, core.ErrConflict)

	err = repo.AddTransaction(ctx, core.Transaction{ID: "bad", Type: "gift"})
	assert.ErrorIs(t, err, core.ErrInvalidTransactionType)

	require.NoError(t, repo.DeleteTransaction(ctx, "c"))
	assert.ErrorIs(t, repo.DeleteTransaction(ctx, "c"), core.ErrNotFound)

	txs, err = repo.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestSQLiteCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rent := core.Category{ID: "1", CategoryName: "Rent", CreateTime: "2025-01-01T00:00:00Z", UpdateTime: "2025-01-01T00:00:00Z"}
	food := core.Category{ID: "2", CategoryName: "Food", CreateTime: "2025-01-02T00:00:00Z", UpdateTime: "2025-01-02T00:00:00Z"}
	require.NoError(t, repo.AddCategory(ctx, rent))
	require.NoError(t, repo.AddCategory(ctx, food))

	err := repo.AddCategory(ctx, core.Category{ID: "3", CategoryName: "rent"})
	assert.ErrorIs(t, err, core.ErrConflict)

	cats, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Food", cats[0].CategoryName)
	assert.Equal(t, rent, cats[1])

	updated, err := repo.UpdateCategory(ctx, core.Category{ID: "1", CategoryName: "Housing", UpdateTime: "2025-03-01T00:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "Housing", updated.CategoryName)
	assert.Equal(t, rent.CreateTime, updated.CreateTime)
	assert.Equal(t, "2025-03-01T00:00:00Z", updated.UpdateTime)

	// Renaming to its own name with different case is allowed.
	_, err = repo.UpdateCategory(ctx, core.Category{ID: "1", CategoryName: "HOUSING", UpdateTime: "x"})
	require.NoError(t, err)

	_, err = repo.UpdateCategory(ctx, core.Category{ID: "1", CategoryName: "food"})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = repo.UpdateCategory(ctx, core.Category{ID: "missing", CategoryName: "Other"})
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, repo.DeleteCategory(ctx, "2"))
	assert.ErrorIs(t, repo.DeleteCategory(ctx, "2"), core.ErrNotFound)
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	first, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, first.AddTransaction(context.Background(), tx("keep", "1", "2025-01-01", core.Expense)))
	require.NoError(t, first.Close())

	second, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer second.Close()

	txs, err := second.ListTransactions(context.Background())
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "keep", txs[0].ID)
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{dialect: Postgres}
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", pg.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))

	my := &SQLRepository{dialect: MySQL}
	assert.Equal(t, "DELETE FROM t WHERE id = ?", my.rebind("DELETE FROM t WHERE id = ?"))
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("oracle"), "dsn")
	assert.Error(t, err)
}
