package sheets_test

import (
	"context"
	"errors"
	"testing"

	"ledger/internal/core"
	"ledger/internal/sheets"
	"ledger/internal/sheets/memory"
)

type fakeSource struct {
	txs []core.Transaction
	err error
}

func (f fakeSource) ListAccounts(context.Context) ([]core.Transaction, error) {
	return f.txs, f.err
}

func sampleTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: "t1", Amount: core.MustMoney("12.3"), Category: "Food", Type: core.Expense, Remarks: "lunch", Date: "2025-02-10"},
		{ID: "t2", Amount: core.MustMoney("2500"), Category: "Salary", Type: core.Income, Date: "2025-03-01"},
	}
}

func TestRows(t *testing.T) {
	rows := sheets.Rows(sampleTransactions())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	want := []any{"2025-02-10", "expense", "Food", "12.30", "lunch", "t1"}
	for i, v := range want {
		if rows[0][i] != v {
			t.Errorf("column %d = %v, want %v", i, rows[0][i], v)
		}
	}
	if rows[1][3] != "2500.00" {
		t.Errorf("amount = %v, want 2500.00", rows[1][3])
	}
}

func TestRowsKeepFormulasLiteral(t *testing.T) {
	rows := sheets.Rows([]core.Transaction{{
		ID:       "t9",
		Amount:   core.MustMoney("-4.5"),
		Category: "@Food",
		Type:     core.Expense,
		Remarks:  `=HYPERLINK("http://example.com","x")`,
		Date:     "2025-02-10",
	}})
	if got := rows[0][4]; got != `'=HYPERLINK("http://example.com","x")` {
		t.Errorf("remarks = %v", got)
	}
	if got := rows[0][2]; got != "'@Food" {
		t.Errorf("category = %v", got)
	}
	if got := rows[0][3]; got != "-4.50" {
		t.Errorf("amount = %v, want numeric -4.50", got)
	}

	cases := map[string]string{
		"lunch":  "lunch",
		"":       "",
		"+1":     "'+1",
		"-x":     "'-x",
		" =SUM1": "' =SUM1",
	}
	for in, want := range cases {
		if got := sheets.TextCell(in); got != want {
			t.Errorf("TextCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportWritesHeaderOnce(t *testing.T) {
	ctx := context.Background()
	dst := memory.New("Ledger")
	src := fakeSource{txs: sampleTransactions()}

	res, err := sheets.Export(ctx, src, dst)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Rows != 2 || res.Ref != "Ledger!A1:F3" {
		t.Errorf("result = %+v", res)
	}

	res, err = sheets.Export(ctx, src, dst)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if res.Ref != "Ledger!A4:F5" {
		t.Errorf("second ref = %q, want Ledger!A4:F5", res.Ref)
	}
	if got := len(dst.Rows()); got != 5 {
		t.Errorf("sheet rows = %d, want 5", got)
	}
}

func TestExportSourceError(t *testing.T) {
	boom := errors.New("backend down")
	_, err := sheets.Export(context.Background(), fakeSource{err: boom}, memory.New("Ledger"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestExportRequiresPorts(t *testing.T) {
	if _, err := sheets.Export(context.Background(), nil, memory.New("x")); err == nil {
		t.Fatal("expected error for nil source")
	}
}
