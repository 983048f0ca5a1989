package core

import (
	"sort"
	"strings"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Money  `json:"amount"`
}

// MonthAmount is an amount aggregated by calendar month (YYYY-MM).
type MonthAmount struct {
	Month  string `json:"month"`
	Amount Money  `json:"amount"`
}

// CustomQuery filters the ledger. Zero-valued fields match everything;
// From and To are inclusive YYYY-MM-DD bounds.
type CustomQuery struct {
	Type     TransactionType
	Category string
	From     string
	To       string
	Keyword  string
}

// IsEmpty reports whether q matches every transaction.
func (q CustomQuery) IsEmpty() bool {
	return q == CustomQuery{}
}

// Validate checks the type and date bounds of q.
func (q CustomQuery) Validate() error {
	if q.Type != "" && !q.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	for _, d := range []string{q.From, q.To} {
		if d == "" {
			continue
		}
		if _, err := ParseDate(d); err != nil {
			return err
		}
	}
	return nil
}

// Match reports whether t satisfies every set field of q.
func (q CustomQuery) Match(t Transaction) bool {
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.Category != "" && !strings.EqualFold(t.Category, q.Category) {
		return false
	}
	// Dates share one fixed-width layout, so string order is date order.
	if q.From != "" && t.Date < q.From {
		return false
	}
	if q.To != "" && t.Date > q.To {
		return false
	}
	if q.Keyword != "" {
		kw := strings.ToLower(q.Keyword)
		if !strings.Contains(strings.ToLower(t.Remarks), kw) &&
			!strings.Contains(strings.ToLower(t.Category), kw) {
			return false
		}
	}
	return true
}

// Filter returns the transactions matching q, in input order.
func Filter(txs []Transaction, q CustomQuery) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if q.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// TotalByType sums the amounts of every transaction of type tt.
func TotalByType(txs []Transaction, tt TransactionType) Money {
	var total Money
	for _, t := range txs {
		if t.Type == tt {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// ByMonth groups transactions of type tt by month, oldest month first.
func ByMonth(txs []Transaction, tt TransactionType) []MonthAmount {
	sums := make(map[string]Money)
	for _, t := range txs {
		if t.Type != tt {
			continue
		}
		sums[t.Month()] = sums[t.Month()].Add(t.Amount)
	}
	out := make([]MonthAmount, 0, len(sums))
	for m, a := range sums {
		out = append(out, MonthAmount{Month: m, Amount: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// ByCategory groups transactions of type tt by category, largest amount
// first and then by name. Category names compare case-insensitively, as in
// CustomQuery.Match; each group keeps the first spelling seen.
func ByCategory(txs []Transaction, tt TransactionType) []CategoryAmount {
	index := make(map[string]int)
	var out []CategoryAmount
	for _, t := range txs {
		if t.Type != tt {
			continue
		}
		key := strings.ToLower(t.Category)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, CategoryAmount{Category: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	if out == nil {
		out = []CategoryAmount{}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount.Decimal); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}
