package memory

import (
	"context"
	"testing"

	"ledger/internal/sheets"
)

func TestSheetAppendAndHeader(t *testing.T) {
	ctx := context.Background()
	s := New("Ledger")

	ok, err := s.HasHeader(ctx)
	if err != nil || ok {
		t.Fatalf("empty sheet: has header = %v, err = %v", ok, err)
	}

	ref, err := s.AppendRows(ctx, [][]any{sheets.Header, {"2025-01-02", "expense", "Food", "1.00", "", "a"}})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "Ledger!A1:F2" {
		t.Errorf("ref = %q, want Ledger!A1:F2", ref)
	}

	ok, err = s.HasHeader(ctx)
	if err != nil || !ok {
		t.Fatalf("has header = %v, err = %v", ok, err)
	}

	ref, _ = s.AppendRows(ctx, [][]any{{"2025-01-03", "income", "Salary", "10.00", "", "b"}})
	if ref != "Ledger!A3:F3" {
		t.Errorf("ref = %q, want Ledger!A3:F3", ref)
	}
	if got := len(s.Rows()); got != 3 {
		t.Errorf("rows = %d, want 3", got)
	}
}

func TestSheetRowsIsSnapshot(t *testing.T) {
	s := New("Ledger")
	_, _ = s.AppendRows(context.Background(), [][]any{{"x"}})

	rows := s.Rows()
	rows[0][0] = "changed"
	if s.Rows()[0][0] != "x" {
		t.Error("Rows returned shared storage")
	}
}
