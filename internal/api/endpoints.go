// Package api is the single source of truth for backend URL paths.
//
// Paths are composed as BaseURL + Resource.Base + Operation.Suffix by plain
// concatenation. Everything here is constant; there is no mutation API.
package api

import "net/http"

// BaseURL is the default root of the ledger backend.
const BaseURL = "http://localhost:8080/api"

// Resource groups backend operations that share a base path.
type Resource struct {
	Name string
	Base string
}

// Operation is one backend call under a resource.
type Operation struct {
	Name   string
	Suffix string
	Method string
}

// Endpoint pairs an operation with the resource it belongs to.
type Endpoint struct {
	Resource  Resource
	Operation Operation
}

var (
	Accounts = Resource{Name: "accounts", Base: "/accounts"}
	Category = Resource{Name: "category", Base: "/category"}
)

// Accounts operations.
var (
	AccountsList              = Operation{Name: "list", Suffix: "/list", Method: http.MethodGet}
	AccountsAdd               = Operation{Name: "add", Suffix: "/add", Method: http.MethodPost}
	AccountsDelete            = Operation{Name: "delete", Suffix: "/delete", Method: http.MethodDelete}
	AccountsTotalIncome       = Operation{Name: "total-income", Suffix: "/total-income", Method: http.MethodGet}
	AccountsTotalExpense      = Operation{Name: "total-expense", Suffix: "/total-expense", Method: http.MethodGet}
	AccountsIncomeByMonth     = Operation{Name: "income-by-month", Suffix: "/income-by-month", Method: http.MethodGet}
	AccountsExpenseByMonth    = Operation{Name: "expense-by-month", Suffix: "/expense-by-month", Method: http.MethodGet}
	AccountsIncomeByCategory  = Operation{Name: "income-by-category", Suffix: "/income-by-category", Method: http.MethodGet}
	AccountsExpenseByCategory = Operation{Name: "expense-by-category", Suffix: "/expense-by-category", Method: http.MethodGet}
	AccountsCustomQuery       = Operation{Name: "custom-query", Suffix: "/custom-input", Method: http.MethodGet}
)

// Category operations.
var (
	CategoryList   = Operation{Name: "list", Suffix: "/list", Method: http.MethodGet}
	CategoryAdd    = Operation{Name: "add", Suffix: "/add", Method: http.MethodPost}
	CategoryUpdate = Operation{Name: "update", Suffix: "/update", Method: http.MethodPut}
	CategoryDelete = Operation{Name: "delete", Suffix: "/delete", Method: http.MethodDelete}
)

// Path returns the resource-relative path of op, e.g. "/accounts/add".
func (r Resource) Path(op Operation) string {
	return r.Base + op.Suffix
}

// URL composes op against the default BaseURL.
func (r Resource) URL(op Operation) string {
	return URL(BaseURL, r, op)
}

// URL composes base + resource base + operation suffix.
func URL(base string, r Resource, op Operation) string {
	return base + r.Base + op.Suffix
}

// Path returns the resource-relative path of the endpoint.
func (e Endpoint) Path() string {
	return e.Resource.Path(e.Operation)
}

// Operations enumerates every endpoint the backend exposes. The returned
// slice is a fresh copy.
func Operations() []Endpoint {
	return []Endpoint{
		{Accounts, AccountsList},
		{Accounts, AccountsAdd},
		{Accounts, AccountsDelete},
		{Accounts, AccountsTotalIncome},
		{Accounts, AccountsTotalExpense},
		{Accounts, AccountsIncomeByMonth},
		{Accounts, AccountsExpenseByMonth},
		{Accounts, AccountsIncomeByCategory},
		{Accounts, AccountsExpenseByCategory},
		{Accounts, AccountsCustomQuery},
		{Category, CategoryList},
		{Category, CategoryAdd},
		{Category, CategoryUpdate},
		{Category, CategoryDelete},
	}
}
