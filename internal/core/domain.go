package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the wire format of Transaction.Date.
const DateLayout = "2006-01-02"

type (
	// TransactionType is closed: only Income and Expense are valid.
	TransactionType string

	Transaction struct {
		ID       string          `json:"id"`
		Amount   Money           `json:"amount"`
		Category string          `json:"category"`
		Type     TransactionType `json:"type"`
		Remarks  string          `json:"remarks"`
		Date     string          `json:"date"`
	}

	Category struct {
		ID           string `json:"id"`
		CategoryName string `json:"categoryName"`
		CreateTime   string `json:"createTime"`
		UpdateTime   string `json:"updateTime"`
	}

	// AddAccountRequest is the write-side projection of Transaction.
	AddAccountRequest struct {
		Amount   Money           `json:"amount"`
		Category string          `json:"category"`
		Type     TransactionType `json:"type"`
		Remarks  string          `json:"remarks"`
		Date     string          `json:"date"`
	}

	// AddCategoryRequest is the payload of the category add operation.
	AddCategoryRequest struct {
		CategoryName string `json:"categoryName"`
	}
)

var (
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidDate            = errors.New("invalid date")
	ErrEmptyCategory          = errors.New("empty category")
	ErrEmptyCategoryName      = errors.New("empty category name")
	ErrEmptyID                = errors.New("empty id")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
)

const maxRemarksLength = 500

// TransactionTypes lists the valid transaction types.
func TransactionTypes() []TransactionType {
	return []TransactionType{Income, Expense}
}

// ParseTransactionType maps a label to a TransactionType. Matching ignores
// case and surrounding whitespace.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
}

func (t TransactionType) String() string {
	return string(t)
}

// IsValid reports whether t is one of the two known types.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// UnmarshalJSON rejects any value other than "income" or "expense".
func (t *TransactionType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransactionType, err)
	}
	v := TransactionType(s)
	if !v.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
	}
	*t = v
	return nil
}

// ParseDate parses a wire date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

// Month returns the YYYY-MM prefix of the transaction date.
func (t Transaction) Month() string {
	if len(t.Date) < 7 {
		return t.Date
	}
	return t.Date[:7]
}

// Request projects t onto its write-side shape.
func (t Transaction) Request() AddAccountRequest {
	return AddAccountRequest{
		Amount:   t.Amount,
		Category: t.Category,
		Type:     t.Type,
		Remarks:  t.Remarks,
		Date:     t.Date,
	}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	return t.Request().Validate()
}

// Transaction builds the stored entity from the request and a backend id.
func (r AddAccountRequest) Transaction(id string) Transaction {
	return Transaction{
		ID:       id,
		Amount:   r.Amount,
		Category: r.Category,
		Type:     r.Type,
		Remarks:  r.Remarks,
		Date:     r.Date,
	}
}

// Validate checks the shape only. The sign of Amount is not tied to Type.
func (r AddAccountRequest) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, string(r.Type))
	}
	if r.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if _, err := ParseDate(r.Date); err != nil {
		return err
	}
	if len(r.Remarks) > maxRemarksLength {
		return fmt.Errorf("remarks too long (max %d characters)", maxRemarksLength)
	}
	return nil
}

func (r AddCategoryRequest) Validate() error {
	if strings.TrimSpace(r.CategoryName) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.CategoryName) == "" {
		return ErrEmptyCategoryName
	}
	return nil
}
