// Package http provides the UI server and its page handlers.
//
// This file implements utilities for parsing and validating form data
// posted by the views.

package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ledger/internal/client"
	"ledger/internal/core"
)

const (
	maxRemarksLength = 500
	maxFormBytes     = 64 << 10
)

var errRemarksTooLong = fmt.Errorf("remarks are too long (max %d characters)", maxRemarksLength)

// AccountForm holds the raw values of the new-entry form so a rejected
// submission can be shown again as typed.
type AccountForm struct {
	Type     string
	Amount   string
	Category string
	Remarks  string
	Date     string
}

// NewAccountForm returns the blank form: an expense dated today.
func NewAccountForm(now time.Time) AccountForm {
	return AccountForm{
		Type: core.Expense.String(),
		Date: now.Format(core.DateLayout),
	}
}

// ReadAccountForm extracts the new-entry fields from a parsed form.
func ReadAccountForm(form url.Values) AccountForm {
	return AccountForm{
		Type:     sanitizeInput(form.Get("type")),
		Amount:   sanitizeInput(form.Get("amount")),
		Category: sanitizeInput(form.Get("category")),
		Remarks:  sanitizeInput(form.Get("remarks")),
		Date:     sanitizeInput(form.Get("date")),
	}
}

// Request validates f and converts it to the backend payload.
func (f AccountForm) Request() (core.AddAccountRequest, error) {
	tt, err := core.ParseTransactionType(f.Type)
	if err != nil {
		return core.AddAccountRequest{}, err
	}
	amount, err := core.ParseMoney(f.Amount)
	if err != nil {
		return core.AddAccountRequest{}, err
	}
	if len(f.Remarks) > maxRemarksLength {
		return core.AddAccountRequest{}, errRemarksTooLong
	}
	req := core.AddAccountRequest{
		Amount:   amount,
		Category: f.Category,
		Type:     tt,
		Remarks:  f.Remarks,
		Date:     f.Date,
	}
	if err := req.Validate(); err != nil {
		return core.AddAccountRequest{}, err
	}
	return req, nil
}

// ParseQueryFilters reads the custom-query filters of the report page.
// An empty type or the "all" choice matches both types.
func ParseQueryFilters(q url.Values) (core.CustomQuery, error) {
	v := url.Values{}
	for _, key := range []string{"type", "category", "from", "to", "keyword"} {
		if s := sanitizeInput(q.Get(key)); s != "" {
			v.Set(key, s)
		}
	}
	if strings.EqualFold(v.Get("type"), "all") {
		v.Del("type")
	}
	return client.ParseQueryValues(v)
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *ResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(w http.ResponseWriter, r *http.Request) *ResponseBuilder {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrorResponse(http.StatusRequestEntityTooLarge, "Request too large")
		}
		return BadRequestError("Invalid request format")
	}
	return nil
}
