package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransactionType(t *testing.T) {
	cases := []struct {
		in   string
		want TransactionType
		ok   bool
	}{
		{"income", Income, true},
		{"expense", Expense, true},
		{" Expense ", Expense, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseTransactionType(tc.in)
		if tc.ok {
			require.NoError(t, err, tc.in)
			assert.Equal(t, tc.want, got)
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransactionType, tc.in)
		}
	}
}

func TestTransactionTypeJSONIsClosed(t *testing.T) {
	var tx Transaction
	err := json.Unmarshal([]byte(`{"id":"1","amount":1,"category":"c","type":"income","remarks":"","date":"2025-01-01"}`), &tx)
	require.NoError(t, err)
	assert.Equal(t, Income, tx.Type)

	for _, bad := range []string{`"refund"`, `"INCOME"`, `""`, `3`} {
		var tt TransactionType
		err := json.Unmarshal([]byte(bad), &tt)
		assert.True(t, errors.Is(err, ErrInvalidTransactionType), "value %s should be rejected", bad)
	}

	err = json.Unmarshal([]byte(`{"id":"1","amount":1,"type":"other","date":"2025-01-01"}`), &tx)
	assert.Error(t, err)
}

func TestAddAccountRequestRoundTrip(t *testing.T) {
	req := AddAccountRequest{
		Amount:   MustMoney("-12.50"),
		Category: "Food",
		Type:     Expense,
		Remarks:  "lunch, with friends",
		Date:     "2025-03-14",
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)

	var tx Transaction
	require.NoError(t, json.Unmarshal(b, &tx))

	assert.Empty(t, tx.ID)
	assert.True(t, req.Amount.Equal(tx.Amount))
	assert.Equal(t, req.Category, tx.Category)
	assert.Equal(t, req.Type, tx.Type)
	assert.Equal(t, req.Remarks, tx.Remarks)
	assert.Equal(t, req.Date, tx.Date)
	assert.Equal(t, req.Date, tx.Request().Date)
}

func TestAddAccountRequestValidate(t *testing.T) {
	good := AddAccountRequest{Amount: MustMoney("10"), Category: "Salary", Type: Income, Date: "2025-01-31"}
	require.NoError(t, good.Validate())

	// Sign is independent of type.
	neg := good
	neg.Amount = MustMoney("-10")
	require.NoError(t, neg.Validate())

	bads := []struct {
		mutate func(*AddAccountRequest)
		err    error
	}{
		{func(r *AddAccountRequest) { r.Type = "gift" }, ErrInvalidTransactionType},
		{func(r *AddAccountRequest) { r.Amount = Money{} }, ErrInvalidAmount},
		{func(r *AddAccountRequest) { r.Category = "  " }, ErrEmptyCategory},
		{func(r *AddAccountRequest) { r.Date = "31/01/2025" }, ErrInvalidDate},
		{func(r *AddAccountRequest) { r.Date = "2025-02-30" }, ErrInvalidDate},
	}
	for i, b := range bads {
		r := good
		b.mutate(&r)
		assert.ErrorIs(t, r.Validate(), b.err, "case %d", i)
	}
}

func TestTransactionValidateRequiresID(t *testing.T) {
	tx := AddAccountRequest{Amount: MustMoney("1"), Category: "c", Type: Income, Date: "2025-01-01"}.Transaction("")
	assert.ErrorIs(t, tx.Validate(), ErrEmptyID)

	tx.ID = "abc"
	assert.NoError(t, tx.Validate())
	assert.Equal(t, "2025-01", tx.Month())
}

func TestCategoryValidate(t *testing.T) {
	assert.NoError(t, Category{ID: "1", CategoryName: "Rent"}.Validate())
	assert.ErrorIs(t, Category{CategoryName: "Rent"}.Validate(), ErrEmptyID)
	assert.ErrorIs(t, Category{ID: "1"}.Validate(), ErrEmptyCategoryName)
	assert.ErrorIs(t, AddCategoryRequest{}.Validate(), ErrEmptyCategoryName)
}

func TestCategoryJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(Category{ID: "1", CategoryName: "Rent", CreateTime: "a", UpdateTime: "b"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","categoryName":"Rent","createTime":"a","updateTime":"b"}`, string(b))
}
