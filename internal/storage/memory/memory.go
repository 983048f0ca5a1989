package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
)

// Store keeps the ledger in process memory. It is the default data
// backend for the stub and the fixture for handler tests.
type Store struct {
	mu   sync.Mutex
	txs  []core.Transaction
	cats []core.Category
}

// New returns a store whose categories are seeded from names. Blank and
// duplicate names are skipped.
func New(names []string) *Store {
	now := time.Now().UTC().Format(time.RFC3339)
	s := &Store{}
	for _, name := range dedupe(names) {
		s.cats = append(s.cats, core.Category{
			ID:           uuid.NewString(),
			CategoryName: name,
			CreateTime:   now,
			UpdateTime:   now,
		})
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt, falling
// back to a small default set when the file is missing or empty.
func NewFromFiles(base string) *Store {
	names := readLines(filepath.Join(base, "seed_categories.txt"))
	if len(names) == 0 {
		names = []string{"Food", "Housing", "Salary", "Transport"}
	}
	return New(names)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ListTransactions returns a copy, newest date first and most recently
// added first within a date.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	for i, t := range s.txs {
		out[len(s.txs)-1-i] = t
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.txs {
		if existing.ID == t.ID {
			return fmt.Errorf("transaction %s: %w", t.ID, core.ErrConflict)
		}
	}
	s.txs = append(s.txs, t)
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.txs {
		if t.ID == id {
			s.txs = append(s.txs[:i], s.txs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
}

// ListCategories returns a copy ordered by name.
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Category{}, s.cats...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

func (s *Store) AddCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cats {
		if existing.ID == c.ID || strings.EqualFold(existing.CategoryName, c.CategoryName) {
			return fmt.Errorf("category %q: %w", c.CategoryName, core.ErrConflict)
		}
	}
	s.cats = append(s.cats, c)
	return nil
}

func (s *Store) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, existing := range s.cats {
		if existing.ID == c.ID {
			idx = i
			continue
		}
		if strings.EqualFold(existing.CategoryName, c.CategoryName) {
			return core.Category{}, fmt.Errorf("category %q: %w", c.CategoryName, core.ErrConflict)
		}
	}
	if idx < 0 {
		return core.Category{}, fmt.Errorf("category %s: %w", c.ID, core.ErrNotFound)
	}
	s.cats[idx].CategoryName = c.CategoryName
	s.cats[idx].UpdateTime = c.UpdateTime
	return s.cats[idx], nil
}

func (s *Store) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.cats {
		if c.ID == id {
			s.cats = append(s.cats[:i], s.cats[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("category %s: %w", id, core.ErrNotFound)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

// dedupe trims names and drops blanks and case-insensitive repeats,
// preserving first-seen order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
