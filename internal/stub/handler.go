package stub

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"ledger/internal/api"
	"ledger/internal/client"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/trace"
)

const maxRequestBytes = 1 << 20

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("bad request")

// Handler serves the endpoint registry under /api.
type Handler struct {
	svc     *Service
	logger  *applog.Logger
	origins []string
	routes  map[api.Endpoint]http.HandlerFunc
}

// HandlerConfig configures the HTTP surface of the stub.
type HandlerConfig struct {
	// CORSOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	CORSOrigins []string
	Logger      *applog.Logger
}

func NewHandler(svc *Service, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	h := &Handler{
		svc:     svc,
		logger:  logger.WithComponent(applog.ComponentStub),
		origins: cfg.CORSOrigins,
	}
	h.routes = map[api.Endpoint]http.HandlerFunc{
		{Resource: api.Accounts, Operation: api.AccountsList}:              h.listAccounts,
		{Resource: api.Accounts, Operation: api.AccountsAdd}:               h.addAccount,
		{Resource: api.Accounts, Operation: api.AccountsDelete}:            h.deleteAccount,
		{Resource: api.Accounts, Operation: api.AccountsTotalIncome}:       h.total(core.Income),
		{Resource: api.Accounts, Operation: api.AccountsTotalExpense}:      h.total(core.Expense),
		{Resource: api.Accounts, Operation: api.AccountsIncomeByMonth}:     h.byMonth(core.Income),
		{Resource: api.Accounts, Operation: api.AccountsExpenseByMonth}:    h.byMonth(core.Expense),
		{Resource: api.Accounts, Operation: api.AccountsIncomeByCategory}:  h.byCategory(core.Income),
		{Resource: api.Accounts, Operation: api.AccountsExpenseByCategory}: h.byCategory(core.Expense),
		{Resource: api.Accounts, Operation: api.AccountsCustomQuery}:       h.customQuery,
		{Resource: api.Category, Operation: api.CategoryList}:              h.listCategories,
		{Resource: api.Category, Operation: api.CategoryAdd}:               h.addCategory,
		{Resource: api.Category, Operation: api.CategoryUpdate}:            h.updateCategory,
		{Resource: api.Category, Operation: api.CategoryDelete}:            h.deleteCategory,
	}
	return h
}

// Router builds the chi router for every registry operation, wrapped in
// request tracing and, when origins are configured, CORS.
func (h *Handler) Router() (http.Handler, error) {
	r := chi.NewRouter()
	tracer := trace.NewMiddleware(nil)
	r.Use(applog.Middleware(h.logger))
	r.Use(tracer.Middleware)

	var missing []string
	r.Route("/api", func(r chi.Router) {
		for _, ep := range api.Operations() {
			fn, ok := h.routes[ep]
			if !ok {
				missing = append(missing, ep.Operation.Method+" "+ep.Path())
				continue
			}
			r.Method(ep.Operation.Method, ep.Path(), fn)
		}
	})
	if len(missing) > 0 {
		return nil, fmt.Errorf("no handler for %v", missing)
	}

	r.Get("/healthz", h.health)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, core.Fail[any]("no such endpoint: "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusMethodNotAllowed, core.Fail[any]("method "+r.Method+" not allowed"))
	})

	if len(h.origins) == 0 {
		return r, nil
	}
	c := cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
	})
	return c.Handler(r), nil
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		writeEnvelope(w, http.StatusServiceUnavailable, core.Fail[any]("store unavailable"))
		return
	}
	writeEnvelope(w, http.StatusOK, core.OK("ok"))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.ListAccounts(r.Context())
	respond(h, w, r, txs, err)
}

func (h *Handler) addAccount(w http.ResponseWriter, r *http.Request) {
	var req core.AddAccountRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	tx, err := h.svc.AddAccount(r.Context(), req)
	respond(h, w, r, tx, err)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteAccount(r.Context(), r.URL.Query().Get("id"))
	respond[any](h, w, r, nil, err)
}

func (h *Handler) total(tt core.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		total, err := h.svc.Total(r.Context(), tt)
		respond(h, w, r, total, err)
	}
}

func (h *Handler) byMonth(tt core.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		months, err := h.svc.ByMonth(r.Context(), tt)
		respond(h, w, r, months, err)
	}
}

func (h *Handler) byCategory(tt core.TransactionType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, err := h.svc.ByCategory(r.Context(), tt)
		respond(h, w, r, cats, err)
	}
}

func (h *Handler) customQuery(w http.ResponseWriter, r *http.Request) {
	q, err := client.ParseQueryValues(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	txs, err := h.svc.CustomQuery(r.Context(), q)
	respond(h, w, r, txs, err)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.ListCategories(r.Context())
	respond(h, w, r, cats, err)
}

func (h *Handler) addCategory(w http.ResponseWriter, r *http.Request) {
	var req core.AddCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.svc.AddCategory(r.Context(), req)
	respond(h, w, r, c, err)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeBody(w, r, &c); err != nil {
		h.writeError(w, r, err)
		return
	}
	updated, err := h.svc.UpdateCategory(r.Context(), c)
	respond(h, w, r, updated, err)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DeleteCategory(r.Context(), r.URL.Query().Get("id"))
	respond[any](h, w, r, nil, err)
}

func respond[T any](h *Handler, w http.ResponseWriter, r *http.Request, data T, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeEnvelope(w, http.StatusOK, core.OK(data))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFromError(err)
	msg := err.Error()
	logger := applog.FromContext(r.Context())
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldPath, r.URL.Path, applog.FieldError, err)
		msg = http.StatusText(code)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", applog.FieldPath, r.URL.Path, applog.FieldStatusCode, code, applog.FieldError, err)
	}
	writeEnvelope(w, code, core.Fail[any](msg))
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errBadRequest),
		errors.Is(err, core.ErrInvalidTransactionType),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyCategoryName),
		errors.Is(err, core.ErrEmptyID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func writeEnvelope[T any](w http.ResponseWriter, code int, env core.Response[T]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(env)
}
