package http

import (
	"net/http"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/router"
)

type ledgerData struct {
	Transactions []core.Transaction
	Income       core.Money
	Expense      core.Money
	Balance      core.Money
	Error        string
}

// handleLedger shows every transaction with the running totals. POST
// deletes one transaction.
func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if r.Method == http.MethodPost {
		s.deleteTransaction(w, r)
		return
	}

	ctx, cancel := s.backendContext(r)
	defer cancel()

	var data ledgerData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.backend.ListAccounts(gctx)
		data.Transactions = txs
		return err
	})
	g.Go(func() error {
		income, err := s.backend.TotalIncome(gctx)
		data.Income = income
		return err
	})
	g.Go(func() error {
		expense, err := s.backend.TotalExpense(gctx)
		data.Expense = expense
		return err
	})
	if err := g.Wait(); err != nil {
		logBackendError(r, router.ViewLedger, applog.OpList, err)
		s.render(w, r, statusFor(err), router.ViewLedger, nil, ledgerData{Error: userMessage(err)})
		return
	}
	data.Balance = data.Income.Sub(data.Expense)

	s.render(w, r, http.StatusOK, router.ViewLedger, NoticeFromQuery(r.URL.Query()), data)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}
	if action := r.PostForm.Get("action"); action != "delete" {
		BadRequestError("Unknown action").Write(w)
		return
	}

	ctx, cancel := s.backendContext(r)
	defer cancel()

	id := sanitizeInput(r.PostForm.Get("id"))
	if err := s.backend.DeleteAccount(ctx, id); err != nil {
		logBackendError(r, router.ViewLedger, applog.OpDelete, err)
		s.redirect(w, router.ViewLedger, &Notice{Kind: NoticeError, Message: userMessage(err)})
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted", applog.FieldTransactionID, id)
	s.redirect(w, router.ViewLedger, &Notice{Kind: NoticeSuccess, Message: "Entry deleted"})
}

type inputData struct {
	Form       AccountForm
	Types      []core.TransactionType
	Categories []core.Category
	Error      string
}

// handleInput shows the new-entry form and submits it.
func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := s.backendContext(r)
	defer cancel()

	data := inputData{
		Form:  NewAccountForm(s.now()),
		Types: core.TransactionTypes(),
	}
	status := http.StatusOK

	if r.Method == http.MethodPost {
		if resp := ParseFormOrFail(w, r); resp != nil {
			resp.Write(w)
			return
		}
		data.Form = ReadAccountForm(r.PostForm)
		req, err := data.Form.Request()
		if err == nil {
			var tx core.Transaction
			tx, err = s.backend.AddAccount(ctx, req)
			if err == nil {
				applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction added",
					applog.NewFields().
						WithTransaction(tx.ID, tx.Type.String(), tx.Amount.String(), tx.Category).
						ToSlice()...)
				s.redirect(w, router.ViewLedger, &Notice{Kind: NoticeSuccess, Message: "Entry added"})
				return
			}
			logBackendError(r, router.ViewInput, applog.OpCreate, err)
		}
		data.Error = userMessage(err)
		status = statusFor(err)
	}

	cats, err := s.backend.ListCategories(ctx)
	if err != nil {
		logBackendError(r, router.ViewInput, applog.OpList, err)
		if data.Error == "" {
			data.Error = userMessage(err)
			status = statusFor(err)
		}
	}
	data.Categories = cats

	s.render(w, r, status, router.ViewInput, NoticeFromQuery(r.URL.Query()), data)
}

type categoriesData struct {
	Categories []core.Category
	Error      string
}

// handleCategories lists the categories. POST adds, renames or deletes
// one, selected by the action field.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	if r.Method == http.MethodPost {
		s.changeCategory(w, r)
		return
	}

	ctx, cancel := s.backendContext(r)
	defer cancel()

	cats, err := s.backend.ListCategories(ctx)
	if err != nil {
		logBackendError(r, router.ViewCategories, applog.OpList, err)
		s.render(w, r, statusFor(err), router.ViewCategories, nil, categoriesData{Error: userMessage(err)})
		return
	}
	s.render(w, r, http.StatusOK, router.ViewCategories, NoticeFromQuery(r.URL.Query()), categoriesData{Categories: cats})
}

func (s *Server) changeCategory(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(w, r); resp != nil {
		resp.Write(w)
		return
	}

	ctx, cancel := s.backendContext(r)
	defer cancel()

	id := sanitizeInput(r.PostForm.Get("id"))
	name := sanitizeInput(r.PostForm.Get("name"))

	var (
		op      string
		success string
		err     error
	)
	switch r.PostForm.Get("action") {
	case "add":
		op = applog.OpCreate
		var c core.Category
		c, err = s.backend.AddCategory(ctx, name)
		success = "Category " + c.CategoryName + " added"
	case "rename":
		op = applog.OpUpdate
		var c core.Category
		c, err = s.backend.UpdateCategory(ctx, core.Category{ID: id, CategoryName: name})
		success = "Category renamed to " + c.CategoryName
	case "delete":
		op = applog.OpDelete
		err = s.backend.DeleteCategory(ctx, id)
		success = "Category deleted"
	default:
		BadRequestError("Unknown action").Write(w)
		return
	}

	if err != nil {
		logBackendError(r, router.ViewCategories, op, err)
		s.redirect(w, router.ViewCategories, &Notice{Kind: NoticeError, Message: userMessage(err)})
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Category changed",
		applog.FieldOperation, op,
		applog.FieldCategoryID, id,
		applog.FieldCategory, name)
	s.redirect(w, router.ViewCategories, &Notice{Kind: NoticeSuccess, Message: success})
}

// monthRow is one month of the report with both sides side by side.
type monthRow struct {
	Month   string
	Income  core.Money
	Expense core.Money
	Net     core.Money
}

type queryData struct {
	Filters           AccountFilters
	Types             []core.TransactionType
	Categories        []core.Category
	Income            core.Money
	Expense           core.Money
	Balance           core.Money
	Months            []monthRow
	IncomeByCategory  []core.CategoryAmount
	ExpenseByCategory []core.CategoryAmount
	// Results is nil when no filter is set.
	Results  []core.Transaction
	Filtered bool
	Error    string
}

// AccountFilters echoes the custom-query form back to the page.
type AccountFilters struct {
	Type     string
	Category string
	From     string
	To       string
	Keyword  string
}

// handleQuery shows totals and groupings for both types and, when filters
// are given, the matching transactions.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodHead); resp != nil {
		resp.Write(w)
		return
	}

	data := queryData{
		Types: core.TransactionTypes(),
		Filters: AccountFilters{
			Type:     sanitizeInput(r.URL.Query().Get("type")),
			Category: sanitizeInput(r.URL.Query().Get("category")),
			From:     sanitizeInput(r.URL.Query().Get("from")),
			To:       sanitizeInput(r.URL.Query().Get("to")),
			Keyword:  sanitizeInput(r.URL.Query().Get("keyword")),
		},
	}
	q, qerr := ParseQueryFilters(r.URL.Query())
	data.Filtered = qerr == nil && !q.IsEmpty()

	ctx, cancel := s.backendContext(r)
	defer cancel()

	var incomeByMonth, expenseByMonth []core.MonthAmount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		data.Income, err = s.backend.TotalIncome(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Expense, err = s.backend.TotalExpense(gctx)
		return err
	})
	g.Go(func() (err error) {
		incomeByMonth, err = s.backend.IncomeByMonth(gctx)
		return err
	})
	g.Go(func() (err error) {
		expenseByMonth, err = s.backend.ExpenseByMonth(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.IncomeByCategory, err = s.backend.IncomeByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.ExpenseByCategory, err = s.backend.ExpenseByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		data.Categories, err = s.backend.ListCategories(gctx)
		return err
	})
	if data.Filtered {
		g.Go(func() (err error) {
			data.Results, err = s.backend.CustomQuery(gctx, q)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		logBackendError(r, router.ViewQuery, applog.OpAggregate, err)
		s.render(w, r, statusFor(err), router.ViewQuery, nil, queryData{
			Types:   data.Types,
			Filters: data.Filters,
			Error:   userMessage(err),
		})
		return
	}

	data.Balance = data.Income.Sub(data.Expense)
	data.Months = mergeMonths(incomeByMonth, expenseByMonth)

	status := http.StatusOK
	if qerr != nil {
		data.Error = userMessage(qerr)
		status = statusFor(qerr)
	}
	s.render(w, r, status, router.ViewQuery, nil, data)
}

// mergeMonths joins the income and expense groupings, newest month first.
func mergeMonths(income, expense []core.MonthAmount) []monthRow {
	rows := make(map[string]*monthRow)
	get := func(month string) *monthRow {
		if row, ok := rows[month]; ok {
			return row
		}
		row := &monthRow{Month: month}
		rows[month] = row
		return row
	}
	for _, m := range income {
		row := get(m.Month)
		row.Income = row.Income.Add(m.Amount)
	}
	for _, m := range expense {
		row := get(m.Month)
		row.Expense = row.Expense.Add(m.Amount)
	}

	out := make([]monthRow, 0, len(rows))
	for _, row := range rows {
		row.Net = row.Income.Sub(row.Expense)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Month, out[j].Month) > 0
	})
	return out
}
