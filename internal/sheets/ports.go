// Package sheets exports the ledger to a spreadsheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ledger/internal/client"
	"ledger/internal/core"
)

// Header is the first row of an exported sheet.
var Header = []any{"date", "type", "category", "amount", "remarks", "id"}

// Ports for the export pipeline.
type (
	// TransactionSource lists every ledger transaction.
	TransactionSource interface {
		ListAccounts(ctx context.Context) ([]core.Transaction, error)
	}

	// RowWriter appends rows after the last non-empty row of a sheet.
	RowWriter interface {
		// HasHeader reports whether the sheet already starts with a header row.
		HasHeader(ctx context.Context) (bool, error)
		// AppendRows returns a reference to the written range.
		AppendRows(ctx context.Context, rows [][]any) (ref string, err error)
	}
)

var _ TransactionSource = (*client.Client)(nil)

// Rows converts transactions to sheet rows in the Header column order.
// Amounts are written as plain decimal strings so the sheet parses them
// as numbers without float rounding. Free-text cells go through TextCell.
func Rows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, []any{
			t.Date,
			t.Type.String(),
			TextCell(t.Category),
			t.Amount.StringFixed(2),
			TextCell(t.Remarks),
			TextCell(t.ID),
		})
	}
	return rows
}

// TextCell keeps s literal when the sheet parses input as user-entered:
// values starting with a formula trigger get a leading apostrophe.
func TextCell(s string) string {
	trimmed := strings.TrimLeft(s, " \t\r\n")
	if trimmed == "" {
		return s
	}
	switch trimmed[0] {
	case '=', '+', '-', '@', '\'':
		return "'" + s
	}
	return s
}

// Result describes a finished export.
type Result struct {
	Rows int
	Ref  string
}

// Export copies every transaction from src to dst. A header row is written
// first when the sheet has none.
func Export(ctx context.Context, src TransactionSource, dst RowWriter) (Result, error) {
	if src == nil || dst == nil {
		return Result{}, errors.New("sheets: source and writer are required")
	}
	txs, err := src.ListAccounts(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list transactions: %w", err)
	}

	rows := Rows(txs)
	hasHeader, err := dst.HasHeader(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("check header: %w", err)
	}
	if !hasHeader {
		rows = append([][]any{Header}, rows...)
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	ref, err := dst.AppendRows(ctx, rows)
	if err != nil {
		return Result{}, fmt.Errorf("append rows: %w", err)
	}
	return Result{Rows: len(txs), Ref: ref}, nil
}
