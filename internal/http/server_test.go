package http

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"ledger/internal/client"
	"ledger/internal/core"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/router"
	"ledger/web"
)

// fakeBackend is an in-memory Backend recording the writes it receives.
type fakeBackend struct {
	mu        sync.Mutex
	txs       []core.Transaction
	cats      []core.Category
	added     []core.AddAccountRequest
	deleted   []string
	queries   []core.CustomQuery
	err       error
	pingErr   error
	addCatErr error
	nextID    int
}

var _ Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		txs: []core.Transaction{
			{ID: "t2", Amount: core.MustMoney("2500"), Category: "Salary", Type: core.Income, Remarks: "march", Date: "2025-03-01"},
			{ID: "t1", Amount: core.MustMoney("12.30"), Category: "Food", Type: core.Expense, Remarks: "lunch", Date: "2025-02-10"},
		},
		cats: []core.Category{
			{ID: "c1", CategoryName: "Food", CreateTime: "2025-01-01T00:00:00Z", UpdateTime: "2025-01-01T00:00:00Z"},
			{ID: "c2", CategoryName: "Salary", CreateTime: "2025-01-01T00:00:00Z", UpdateTime: "2025-01-01T00:00:00Z"},
		},
	}
}

func (f *fakeBackend) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeBackend) ListAccounts(ctx context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Transaction(nil), f.txs...), f.err
}

func (f *fakeBackend) AddAccount(ctx context.Context, req core.AddAccountRequest) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	f.nextID++
	f.added = append(f.added, req)
	tx := req.Transaction("new-" + strconv.Itoa(f.nextID))
	f.txs = append([]core.Transaction{tx}, f.txs...)
	return tx, nil
}

func (f *fakeBackend) DeleteAccount(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for i, tx := range f.txs {
		if tx.ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return &client.APIError{StatusCode: http.StatusNotFound, Message: "transaction " + id + ": not found"}
}

func (f *fakeBackend) total(tt core.TransactionType) (core.Money, error) {
	txs, err := f.ListAccounts(context.Background())
	return core.TotalByType(txs, tt), err
}

func (f *fakeBackend) TotalIncome(ctx context.Context) (core.Money, error) {
	return f.total(core.Income)
}

func (f *fakeBackend) TotalExpense(ctx context.Context) (core.Money, error) {
	return f.total(core.Expense)
}

func (f *fakeBackend) IncomeByMonth(ctx context.Context) ([]core.MonthAmount, error) {
	txs, err := f.ListAccounts(ctx)
	return core.ByMonth(txs, core.Income), err
}

func (f *fakeBackend) ExpenseByMonth(ctx context.Context) ([]core.MonthAmount, error) {
	txs, err := f.ListAccounts(ctx)
	return core.ByMonth(txs, core.Expense), err
}

func (f *fakeBackend) IncomeByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	txs, err := f.ListAccounts(ctx)
	return core.ByCategory(txs, core.Income), err
}

func (f *fakeBackend) ExpenseByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	txs, err := f.ListAccounts(ctx)
	return core.ByCategory(txs, core.Expense), err
}

func (f *fakeBackend) CustomQuery(ctx context.Context, q core.CustomQuery) ([]core.Transaction, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	txs, err := f.ListAccounts(ctx)
	return core.Filter(txs, q), err
}

func (f *fakeBackend) ListCategories(ctx context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Category(nil), f.cats...), f.err
}

func (f *fakeBackend) AddCategory(ctx context.Context, name string) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addCatErr != nil {
		return core.Category{}, f.addCatErr
	}
	c := core.Category{ID: "c-" + name, CategoryName: name}
	f.cats = append(f.cats, c)
	return c, nil
}

func (f *fakeBackend) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cats {
		if f.cats[i].ID == c.ID {
			f.cats[i].CategoryName = c.CategoryName
			return f.cats[i], nil
		}
	}
	return core.Category{}, &client.APIError{StatusCode: http.StatusNotFound, Message: "category " + c.ID + ": not found"}
}

func (f *fakeBackend) DeleteCategory(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cats {
		if f.cats[i].ID == id {
			f.cats = append(f.cats[:i], f.cats[i+1:]...)
			return nil
		}
	}
	return &client.APIError{StatusCode: http.StatusNotFound, Message: "category " + id + ": not found"}
}

func (f *fakeBackend) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func newTestServer(t *testing.T, backend Backend, opts ...func(*ServerConfig)) *Server {
	t.Helper()
	tmpl, err := ParseTemplates(web.TemplatesFS)
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		t.Fatalf("static fs: %v", err)
	}
	cfg := ServerConfig{
		Addr:      ":0",
		Backend:   backend,
		Templates: tmpl,
		Static:    static,
		Router:    router.Default(),
		Now: func() time.Time {
			return time.Date(2025, 4, 2, 9, 0, 0, 0, time.UTC)
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func serve(srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestNewServerRequiresDependencies(t *testing.T) {
	tmpl, err := ParseTemplates(web.TemplatesFS)
	if err != nil {
		t.Fatalf("parse templates: %v", err)
	}
	tests := []struct {
		name string
		cfg  ServerConfig
	}{
		{"no backend", ServerConfig{Templates: tmpl, Router: router.Default()}},
		{"no templates", ServerConfig{Backend: newFakeBackend(), Router: router.Default()}},
		{"no router", ServerConfig{Backend: newFakeBackend(), Templates: tmpl}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	backend := newFakeBackend()
	srv := newTestServer(t, backend)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	backend.pingErr = errors.New("connection refused")
	rr := serve(srv, http.MethodGet, "/readyz", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with backend down: status=%d", rr.Code)
	}
}

func TestSecurityHeadersAndRequestID(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	rr := serve(srv, http.MethodGet, "/", nil)

	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", rr.Header().Get("X-Frame-Options"))
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "script-src 'none'") {
		t.Errorf("CSP = %q", rr.Header().Get("Content-Security-Policy"))
	}
	id := rr.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("missing X-Request-ID")
	}
	if !strings.Contains(rr.Body.String(), id) {
		t.Error("request id not shown in footer")
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	rr := serve(srv, http.MethodGet, "/static/app.css", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control = %q", rr.Header().Get("Cache-Control"))
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	for _, path := range []string{"/nope", "/input/extra", "/categories/"} {
		rr := serve(srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s status=%d, want 404", path, rr.Code)
		}
	}
}

func TestPostRateLimit(t *testing.T) {
	srv := newTestServer(t, newFakeBackend(), func(cfg *ServerConfig) {
		cfg.RateLimit = ratelimit.Config{RequestsPerMinute: 2}
	})

	form := url.Values{"action": {"add"}, "name": {"Gym"}}
	for i := 0; i < 2; i++ {
		if rr := serve(srv, http.MethodPost, "/categories", form); rr.Code != http.StatusSeeOther {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := serve(srv, http.MethodPost, "/categories", form)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// GET is never limited.
	for i := 0; i < 5; i++ {
		if rr := serve(srv, http.MethodGet, "/categories", nil); rr.Code != http.StatusOK {
			t.Fatalf("GET %d status=%d", i, rr.Code)
		}
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv := newTestServer(t, newFakeBackend())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
