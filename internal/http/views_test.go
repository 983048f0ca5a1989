package http

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"ledger/internal/client"
	"ledger/internal/core"
)

func TestLedgerViewListsTransactionsAndTotals(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	rr := serve(srv, http.MethodGet, "/", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"<h1>Ledger</h1>", "lunch", "march", "€2500.00", "€12.30", "€2487.70", `aria-current="page"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestLedgerViewBackendDown(t *testing.T) {
	backend := newFakeBackend()
	backend.setErr(&client.APIError{StatusCode: http.StatusInternalServerError, Message: "db exploded"})
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "backend is unavailable") {
		t.Error("missing failure notice")
	}
	if strings.Contains(body, "db exploded") {
		t.Error("internal backend message leaked to the page")
	}
}

func TestLedgerDelete(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodPost, "/", url.Values{"action": {"delete"}, "id": {"t1"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d, want 303", rr.Code)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != "t1" {
		t.Fatalf("deleted = %v", backend.deleted)
	}
	loc := rr.Header().Get("Location")
	if !strings.HasPrefix(loc, "/?") || !strings.Contains(loc, "kind=success") {
		t.Errorf("Location = %q", loc)
	}

	// Following the redirect shows the notice once.
	rr = serve(srv, http.MethodGet, loc, nil)
	if !strings.Contains(rr.Body.String(), "Entry deleted") {
		t.Error("notice not rendered after redirect")
	}
	if strings.Contains(rr.Body.String(), "lunch") {
		t.Error("deleted entry still listed")
	}
}

func TestLedgerDeleteUnknownID(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	rr := serve(srv, http.MethodPost, "/", url.Values{"action": {"delete"}, "id": {"ghost"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d", rr.Code)
	}
	loc, _ := url.Parse(rr.Header().Get("Location"))
	n := NoticeFromQuery(loc.Query())
	if n == nil || n.Kind != NoticeError || !strings.Contains(n.Message, "not found") {
		t.Errorf("notice = %+v", n)
	}
}

func TestLedgerRejectsUnknownMethodAndAction(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())

	if rr := serve(srv, http.MethodPut, "/", nil); rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("PUT status=%d", rr.Code)
	}
	if rr := serve(srv, http.MethodPost, "/", url.Values{"action": {"purge"}}); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown action status=%d", rr.Code)
	}
}

func TestInputFormDefaults(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	rr := serve(srv, http.MethodGet, "/input", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{`value="2025-04-02"`, `value="expense" checked`, `<option value="Food">Food</option>`, `<option value="Salary">Salary</option>`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestInputSubmit(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	form := url.Values{
		"type":     {"income"},
		"amount":   {"100,50"},
		"category": {"Salary"},
		"remarks":  {"bonus"},
		"date":     {"2025-04-01"},
	}
	rr := serve(srv, http.MethodPost, "/input", form)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d, body=%s", rr.Code, rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Location"), "/?") {
		t.Errorf("Location = %q", rr.Header().Get("Location"))
	}
	if len(backend.added) != 1 {
		t.Fatalf("added = %v", backend.added)
	}
	got := backend.added[0]
	if got.Type != core.Income || got.Amount.Format() != "100.50" || got.Category != "Salary" || got.Date != "2025-04-01" || got.Remarks != "bonus" {
		t.Errorf("request = %+v", got)
	}
}

func TestInputSubmitInvalidKeepsValues(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	form := url.Values{"type": {"expense"}, "amount": {"abc"}, "category": {"Food"}, "remarks": {"<b>pizza</b>"}, "date": {"2025-04-01"}}
	rr := serve(srv, http.MethodPost, "/input", form)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "non-zero amount") {
		t.Error("missing validation message")
	}
	if !strings.Contains(body, `value="abc"`) || !strings.Contains(body, `<option value="Food" selected>`) {
		t.Error("submitted values not kept")
	}
	if strings.Contains(body, "<b>pizza</b>") {
		t.Error("remarks not escaped")
	}
	if len(backend.added) != 0 {
		t.Error("invalid entry reached the backend")
	}
}

func TestInputSubmitBackendRejects(t *testing.T) {
	backend := newFakeBackend()
	backend.setErr(&client.APIError{StatusCode: http.StatusBadRequest, Message: "unknown category"})
	srv := newTestServer(t, backend)

	form := url.Values{"type": {"expense"}, "amount": {"5"}, "category": {"Food"}, "date": {"2025-04-01"}}
	rr := serve(srv, http.MethodPost, "/input", form)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "unknown category") {
		t.Error("backend message not shown")
	}
}

func TestCategoriesView(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodGet, "/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Salary") {
		t.Error("categories not listed")
	}

	tests := []struct {
		name       string
		form       url.Values
		wantKind   NoticeKind
		wantNotice string
	}{
		{"add", url.Values{"action": {"add"}, "name": {" Travel "}}, NoticeSuccess, "Category Travel added"},
		{"rename", url.Values{"action": {"rename"}, "id": {"c1"}, "name": {"Groceries"}}, NoticeSuccess, "renamed to Groceries"},
		{"rename missing", url.Values{"action": {"rename"}, "id": {"zz"}, "name": {"X"}}, NoticeError, "not found"},
		{"delete", url.Values{"action": {"delete"}, "id": {"c2"}}, NoticeSuccess, "Category deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(srv, http.MethodPost, "/categories", tt.form)
			if rr.Code != http.StatusSeeOther {
				t.Fatalf("status=%d", rr.Code)
			}
			loc, err := url.Parse(rr.Header().Get("Location"))
			if err != nil || loc.Path != "/categories" {
				t.Fatalf("Location = %q", rr.Header().Get("Location"))
			}
			n := NoticeFromQuery(loc.Query())
			if n == nil || n.Kind != tt.wantKind || !strings.Contains(n.Message, tt.wantNotice) {
				t.Errorf("notice = %+v", n)
			}
		})
	}

	names := make([]string, 0, len(backend.cats))
	for _, c := range backend.cats {
		names = append(names, c.CategoryName)
	}
	if strings.Join(names, ",") != "Groceries,Travel" {
		t.Errorf("categories = %v", names)
	}
}

func TestCategoriesAddConflict(t *testing.T) {
	backend := newFakeBackend()
	backend.addCatErr = &client.APIError{StatusCode: http.StatusConflict, Message: "category \"Food\" already exists"}
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodPost, "/categories", url.Values{"action": {"add"}, "name": {"food"}})
	loc, _ := url.Parse(rr.Header().Get("Location"))
	n := NoticeFromQuery(loc.Query())
	if n == nil || n.Kind != NoticeError || !strings.Contains(n.Message, "already exists") {
		t.Errorf("notice = %+v", n)
	}
}

func TestQueryView(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodGet, "/query", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"2025-03", "2025-02", "€2487.70", "Income by category"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<h2>Results</h2>") {
		t.Error("results shown without filters")
	}
	if len(backend.queries) != 0 {
		t.Error("custom query issued without filters")
	}
	if strings.Index(body, "2025-03") > strings.Index(body, "2025-02") {
		t.Error("months not newest first")
	}
}

func TestQueryViewWithFilters(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodGet, "/query?type=expense&keyword=lunch", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if len(backend.queries) != 1 || backend.queries[0].Type != core.Expense || backend.queries[0].Keyword != "lunch" {
		t.Fatalf("queries = %+v", backend.queries)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "<h2>Results</h2>") || !strings.Contains(body, "lunch") {
		t.Error("results missing")
	}
	if !strings.Contains(body, `<option value="expense" selected>`) {
		t.Error("type filter not kept")
	}
}

func TestQueryViewInvalidFilter(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	rr := serve(srv, http.MethodGet, "/query?from=yesterday", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "YYYY-MM-DD") {
		t.Error("missing filter error")
	}
	if len(backend.queries) != 0 {
		t.Error("invalid filter reached the backend")
	}
}

func TestMergeMonths(t *testing.T) {
	rows := mergeMonths(
		[]core.MonthAmount{{Month: "2025-01", Amount: core.MustMoney("100")}},
		[]core.MonthAmount{
			{Month: "2025-02", Amount: core.MustMoney("30")},
			{Month: "2025-01", Amount: core.MustMoney("40")},
		},
	)
	if len(rows) != 2 {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Month != "2025-02" || rows[0].Net.Format() != "-30.00" {
		t.Errorf("first row = %+v", rows[0])
	}
	if rows[1].Month != "2025-01" || rows[1].Net.Format() != "60.00" {
		t.Errorf("second row = %+v", rows[1])
	}
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "€0.00"},
		{"12.3", "€12.30"},
		{"-7", "-€7.00"},
	}
	for _, tt := range tests {
		if got := formatMoney(core.MustMoney(tt.in)); got != tt.want {
			t.Errorf("formatMoney(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
