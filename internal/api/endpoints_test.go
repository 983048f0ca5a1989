package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLComposition(t *testing.T) {
	tests := []struct {
		resource Resource
		op       Operation
		want     string
	}{
		{Accounts, AccountsList, "http://localhost:8080/api/accounts/list"},
		{Accounts, AccountsAdd, "http://localhost:8080/api/accounts/add"},
		{Accounts, AccountsDelete, "http://localhost:8080/api/accounts/delete"},
		{Accounts, AccountsTotalIncome, "http://localhost:8080/api/accounts/total-income"},
		{Accounts, AccountsTotalExpense, "http://localhost:8080/api/accounts/total-expense"},
		{Accounts, AccountsIncomeByMonth, "http://localhost:8080/api/accounts/income-by-month"},
		{Accounts, AccountsExpenseByMonth, "http://localhost:8080/api/accounts/expense-by-month"},
		{Accounts, AccountsIncomeByCategory, "http://localhost:8080/api/accounts/income-by-category"},
		{Accounts, AccountsExpenseByCategory, "http://localhost:8080/api/accounts/expense-by-category"},
		{Accounts, AccountsCustomQuery, "http://localhost:8080/api/accounts/custom-input"},
		{Category, CategoryList, "http://localhost:8080/api/category/list"},
		{Category, CategoryAdd, "http://localhost:8080/api/category/add"},
		{Category, CategoryUpdate, "http://localhost:8080/api/category/update"},
		{Category, CategoryDelete, "http://localhost:8080/api/category/delete"},
	}

	for _, tt := range tests {
		t.Run(tt.resource.Name+"/"+tt.op.Name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.resource.URL(tt.op))
			assert.Equal(t, BaseURL+tt.resource.Base+tt.op.Suffix, URL(BaseURL, tt.resource, tt.op))
		})
	}
}

func TestOperationsCoversEveryEndpoint(t *testing.T) {
	ops := Operations()
	require.Len(t, ops, 14)

	seen := make(map[string]bool)
	for _, e := range ops {
		path := e.Path()
		assert.False(t, seen[path], "duplicate path %s", path)
		seen[path] = true
		assert.True(t, strings.HasPrefix(path, e.Resource.Base+"/"))
		assert.NotEmpty(t, e.Operation.Method)
	}

	// Callers cannot mutate the registry through the returned slice.
	ops[0].Operation.Suffix = "/changed"
	assert.Equal(t, "/list", Operations()[0].Operation.Suffix)
}

func TestCustomQuerySuffix(t *testing.T) {
	assert.Equal(t, "/accounts/custom-input", Accounts.Path(AccountsCustomQuery))
}
