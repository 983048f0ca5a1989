package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"ledger/internal/core"
)

// Dialect names a SQL database the repository can run on.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	return string(d)
}

// SQLRepository stores transactions and categories in one of the
// supported SQL databases. Amounts are kept as decimal text so every
// dialect round-trips them exactly.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the sqlite file at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return Open(context.Background(), SQLite, dbPath)
}

// Open connects to dsn with the driver for dialect, pings it and runs the
// migrations.
func Open(ctx context.Context, dialect Dialect, dsn string) (*SQLRepository, error) {
	switch dialect {
	case SQLite, Postgres, MySQL:
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dialect)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	if dialect == SQLite {
		// A single writer avoids SQLITE_BUSY under concurrent requests.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "SQL repository ready", "dialect", dialect)

	return &SQLRepository{db: db, dialect: dialect}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Dialect reports the database the repository is bound to.
func (r *SQLRepository) Dialect() Dialect {
	return r.dialect
}

// ListTransactions returns every transaction, newest date first.
func (r *SQLRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT id, amount, category, tx_type, remarks, tx_date
		 FROM transactions
		 ORDER BY tx_date DESC, created_at DESC`))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var (
			t              core.Transaction
			amount, txType string
		)
		if err := rows.Scan(&t.ID, &amount, &t.Category, &txType, &t.Remarks, &t.Date); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if t.Amount, err = core.ParseMoney(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		if t.Type, err = core.ParseTransactionType(txType); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

func (r *SQLRepository) AddTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, r.rebind(
		`INSERT INTO transactions (id, amount, category, tx_type, remarks, tx_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.Amount.String(), t.Category, string(t.Type), t.Remarks, t.Date, timestamp())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", t.ID, core.ErrConflict)
		}
		return fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"type", t.Type,
		"amount", t.Amount.String(),
		"category", t.Category,
		"date", t.Date)
	return nil
}

func (r *SQLRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM transactions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := requireAffected(res, "transaction", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// ListCategories returns every category ordered by name.
func (r *SQLRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(
		`SELECT id, category_name, create_time, update_time
		 FROM categories
		 ORDER BY category_name`))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.CategoryName, &c.CreateTime, &c.UpdateTime); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

func (r *SQLRepository) AddCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		if err := r.checkNameFree(ctx, tx, c.CategoryName, ""); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, r.rebind(
			`INSERT INTO categories (id, category_name, create_time, update_time)
			 VALUES (?, ?, ?, ?)`),
			c.ID, c.CategoryName, c.CreateTime, c.UpdateTime)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("category %q: %w", c.CategoryName, core.ErrConflict)
			}
			return fmt.Errorf("create category: %w", err)
		}
		slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.CategoryName)
		return nil
	})
}

func (r *SQLRepository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	var stored core.Category
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var createTime string
		err := tx.QueryRowContext(ctx, r.rebind(`SELECT create_time FROM categories WHERE id = ?`), c.ID).Scan(&createTime)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}

		if err := r.checkNameFree(ctx, tx, c.CategoryName, c.ID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, r.rebind(
			`UPDATE categories SET category_name = ?, update_time = ? WHERE id = ?`),
			c.CategoryName, c.UpdateTime, c.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("category %q: %w", c.CategoryName, core.ErrConflict)
			}
			return fmt.Errorf("update category: %w", err)
		}

		stored = core.Category{
			ID:           c.ID,
			CategoryName: c.CategoryName,
			CreateTime:   createTime,
			UpdateTime:   c.UpdateTime,
		}
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category renamed", "id", stored.ID, "name", stored.CategoryName)
	return stored, nil
}

func (r *SQLRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM categories WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := requireAffected(res, "category", id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category deleted", "id", id)
	return nil
}

// checkNameFree fails with core.ErrConflict when another category (other
// than exceptID) already uses name, ignoring case.
func (r *SQLRepository) checkNameFree(ctx context.Context, tx *sql.Tx, name, exceptID string) error {
	var n int
	err := tx.QueryRowContext(ctx, r.rebind(
		`SELECT COUNT(*) FROM categories WHERE LOWER(category_name) = LOWER(?) AND id <> ?`),
		name, exceptID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("category %q: %w", name, core.ErrConflict)
	}
	return nil
}

func (r *SQLRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// createdLayout is fixed width so created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z"

func timestamp() string {
	return time.Now().UTC().Format(createdLayout)
}
