// Package memory is an in-process sheets.RowWriter used by dry runs and
// tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	name string
	rows [][]any
}

var _ sheets.RowWriter = (*Sheet)(nil)

func New(name string) *Sheet {
	return &Sheet{name: name}
}

// HasHeader reports whether the first row matches sheets.Header.
func (s *Sheet) HasHeader(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rows) == 0 {
		return false, nil
	}
	first := s.rows[0]
	if len(first) != len(sheets.Header) {
		return false, nil
	}
	for i, v := range sheets.Header {
		if fmt.Sprint(first[i]) != fmt.Sprint(v) {
			return false, nil
		}
	}
	return true, nil
}

// AppendRows stores copies of rows and returns an A1 reference to them.
func (s *Sheet) AppendRows(_ context.Context, rows [][]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.rows) + 1
	for _, r := range rows {
		s.rows = append(s.rows, append([]any(nil), r...))
	}
	return fmt.Sprintf("%s!A%d:F%d", s.name, start, len(s.rows)), nil
}

// Rows returns a snapshot of everything written so far.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
