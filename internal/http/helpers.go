package http

import (
	"errors"
	"net/http"
	"strings"

	"ledger/internal/client"
	"ledger/internal/core"
)

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// formatMoney renders an amount with a currency sign in front, e.g. "-€12.30".
func formatMoney(m core.Money) string {
	if m.IsNegative() {
		return "-€" + m.Neg().StringFixed(2)
	}
	return "€" + m.StringFixed(2)
}

// userMessage turns a backend or validation error into text fit for a
// notice. Unexpected failures are not described to the user.
func userMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusInternalServerError || apiErr.Message == "" {
			return "The ledger backend is unavailable. Please try again later."
		}
		return apiErr.Message
	case errors.Is(err, core.ErrInvalidAmount):
		return "Enter a non-zero amount, e.g. 12.34"
	case errors.Is(err, core.ErrInvalidDate):
		return "Enter a date as YYYY-MM-DD"
	case errors.Is(err, core.ErrInvalidTransactionType):
		return "Choose income or expense"
	case errors.Is(err, core.ErrEmptyCategory):
		return "Choose a category"
	case errors.Is(err, core.ErrEmptyCategoryName):
		return "Category name cannot be empty"
	case errors.Is(err, core.ErrEmptyID):
		return "Missing item id"
	case errors.Is(err, errRemarksTooLong):
		return err.Error()
	default:
		return "The ledger backend is unavailable. Please try again later."
	}
}

// statusFor maps an error to the status the page is rendered with.
func statusFor(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= http.StatusInternalServerError {
			return http.StatusBadGateway
		}
		return apiErr.StatusCode
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidTransactionType),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyCategoryName),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, errRemarksTooLong):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}
