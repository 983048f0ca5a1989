// Package client is the typed HTTP client for the ledger backend.
//
// Every call goes through the endpoint registry in internal/api and
// decodes the {status, message, data} envelope. Reads are cached in an
// LRU+TTL cache; the client's own writes and external change events
// invalidate it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/api"
	"ledger/internal/cache"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/trace"
)

const maxBodyBytes = 4 << 20

// Accounts is the transaction side of the backend.
type Accounts interface {
	ListAccounts(ctx context.Context) ([]core.Transaction, error)
	AddAccount(ctx context.Context, req core.AddAccountRequest) (core.Transaction, error)
	DeleteAccount(ctx context.Context, id string) error
	TotalIncome(ctx context.Context) (core.Money, error)
	TotalExpense(ctx context.Context) (core.Money, error)
	IncomeByMonth(ctx context.Context) ([]core.MonthAmount, error)
	ExpenseByMonth(ctx context.Context) ([]core.MonthAmount, error)
	IncomeByCategory(ctx context.Context) ([]core.CategoryAmount, error)
	ExpenseByCategory(ctx context.Context) ([]core.CategoryAmount, error)
	CustomQuery(ctx context.Context, q core.CustomQuery) ([]core.Transaction, error)
}

// Categories is the category administration side of the backend.
type Categories interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	AddCategory(ctx context.Context, name string) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// APIError is returned when the backend answers with a non-2xx status or
// with an envelope carrying a message.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: backend returned %d (%s): %s", e.Endpoint, e.StatusCode, e.Status, msg)
}

// Is maps well-known status codes to the core sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case core.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case core.ErrConflict:
		return e.StatusCode == http.StatusConflict
	}
	return false
}

// Client talks to one backend rooted at baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	cache   *cache.LRUCache[[]byte]
	logger  *applog.Logger
	slog    *applog.StructuredLogger

	// genMu orders invalidations against cache fills. A read only stores
	// its response if no invalidation touched its resource meanwhile.
	genMu sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

var (
	_ Accounts   = (*Client)(nil)
	_ Categories = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every call made without its own deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCache enables read caching. A size below 1 disables it.
func WithCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		if size < 1 {
			c.cache = nil
			return
		}
		c.cache = cache.NewLRUCache[[]byte](size, ttl)
	}
}

// WithLogger sets the logger.
func WithLogger(l *applog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the backend rooted at baseURL, e.g.
// api.BaseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: 10 * time.Second,
		gens:    make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = applog.New(applog.DefaultConfig())
	}
	c.logger = c.logger.WithComponent(applog.ComponentClient)
	c.slog = applog.NewStructuredLogger(c.logger)
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cache exposes the read cache so it can be registered for cleanup.
// It is nil when caching is disabled.
func (c *Client) Cache() *cache.LRUCache[[]byte] {
	return c.cache
}

// Invalidate drops every cached read.
func (c *Client) Invalidate() {
	if c.cache == nil {
		return
	}
	c.genMu.Lock()
	defer c.genMu.Unlock()
	c.epoch++
	c.cache.Purge()
}

// InvalidateResource drops cached reads under one resource.
func (c *Client) InvalidateResource(r api.Resource) {
	if c.cache == nil {
		return
	}
	c.genMu.Lock()
	defer c.genMu.Unlock()
	c.gens[r.Base]++
	c.cache.DeletePrefix(cacheKeyPrefix(api.URL(c.baseURL, r, api.Operation{})))
}

// generation changes whenever cached reads under r are invalidated.
func (c *Client) generation(r api.Resource) uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.epoch + c.gens[r.Base]
}

// storeIfCurrent caches raw unless r was invalidated after gen was read.
func (c *Client) storeIfCurrent(r api.Resource, gen uint64, key string, raw []byte) bool {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.epoch+c.gens[r.Base] != gen {
		return false
	}
	c.cache.Set(key, raw)
	return true
}

// ApplyChange drops the cached reads a backend change event affects. It
// matches the handler signature of amqp.Client.ConsumeChanges.
func (c *Client) ApplyChange(ctx context.Context, ev amqp.ChangeEvent) error {
	switch ev.Resource {
	case amqp.ResourceAccounts:
		c.InvalidateResource(api.Accounts)
	case amqp.ResourceCategory:
		c.InvalidateResource(api.Category)
	default:
		c.Invalidate()
	}
	c.logger.DebugContext(ctx, "Cache invalidated by change event",
		applog.FieldOperation, applog.OpInvalidate,
		"resource", ev.Resource,
		"action", ev.Action,
		"entity_id", ev.ID)
	return nil
}

func cacheKeyPrefix(u string) string {
	return http.MethodGet + " " + u + "/"
}

// Ping checks that the backend answers the category list.
func (c *Client) Ping(ctx context.Context) error {
	_, err := call[[]core.Category](ctx, c, api.Category, api.CategoryList, nil, nil, false)
	return err
}

func (c *Client) ListAccounts(ctx context.Context) ([]core.Transaction, error) {
	return call[[]core.Transaction](ctx, c, api.Accounts, api.AccountsList, nil, nil, true)
}

func (c *Client) AddAccount(ctx context.Context, req core.AddAccountRequest) (core.Transaction, error) {
	if err := req.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("add account: %w", err)
	}
	tx, err := call[core.Transaction](ctx, c, api.Accounts, api.AccountsAdd, nil, req, false)
	if err != nil {
		return core.Transaction{}, err
	}
	c.slog.LogTransactionCreated(ctx, tx.ID, tx.Type.String(), tx.Amount.String(), tx.Category)
	return tx, nil
}

func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete account: %w", core.ErrEmptyID)
	}
	_, err := call[json.RawMessage](ctx, c, api.Accounts, api.AccountsDelete, url.Values{"id": {id}}, nil, false)
	return err
}

func (c *Client) TotalIncome(ctx context.Context) (core.Money, error) {
	return call[core.Money](ctx, c, api.Accounts, api.AccountsTotalIncome, nil, nil, true)
}

func (c *Client) TotalExpense(ctx context.Context) (core.Money, error) {
	return call[core.Money](ctx, c, api.Accounts, api.AccountsTotalExpense, nil, nil, true)
}

func (c *Client) IncomeByMonth(ctx context.Context) ([]core.MonthAmount, error) {
	return call[[]core.MonthAmount](ctx, c, api.Accounts, api.AccountsIncomeByMonth, nil, nil, true)
}

func (c *Client) ExpenseByMonth(ctx context.Context) ([]core.MonthAmount, error) {
	return call[[]core.MonthAmount](ctx, c, api.Accounts, api.AccountsExpenseByMonth, nil, nil, true)
}

func (c *Client) IncomeByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	return call[[]core.CategoryAmount](ctx, c, api.Accounts, api.AccountsIncomeByCategory, nil, nil, true)
}

func (c *Client) ExpenseByCategory(ctx context.Context) ([]core.CategoryAmount, error) {
	return call[[]core.CategoryAmount](ctx, c, api.Accounts, api.AccountsExpenseByCategory, nil, nil, true)
}

func (c *Client) CustomQuery(ctx context.Context, q core.CustomQuery) ([]core.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("custom query: %w", err)
	}
	return call[[]core.Transaction](ctx, c, api.Accounts, api.AccountsCustomQuery, QueryValues(q), nil, true)
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	return call[[]core.Category](ctx, c, api.Category, api.CategoryList, nil, nil, true)
}

func (c *Client) AddCategory(ctx context.Context, name string) (core.Category, error) {
	req := core.AddCategoryRequest{CategoryName: strings.TrimSpace(name)}
	if err := req.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}
	return call[core.Category](ctx, c, api.Category, api.CategoryAdd, nil, req, false)
}

func (c *Client) UpdateCategory(ctx context.Context, cat core.Category) (core.Category, error) {
	cat.CategoryName = strings.TrimSpace(cat.CategoryName)
	if err := cat.Validate(); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	return call[core.Category](ctx, c, api.Category, api.CategoryUpdate, nil, cat, false)
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete category: %w", core.ErrEmptyID)
	}
	_, err := call[json.RawMessage](ctx, c, api.Category, api.CategoryDelete, url.Values{"id": {id}}, nil, false)
	return err
}

// QueryValues encodes q as custom-query parameters. Empty fields are
// omitted.
func QueryValues(q core.CustomQuery) url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s = strings.TrimSpace(s); s != "" {
			v.Set(k, s)
		}
	}
	set("type", q.Type.String())
	set("category", q.Category)
	set("from", q.From)
	set("to", q.To)
	set("keyword", q.Keyword)
	return v
}

// ParseQueryValues is the inverse of QueryValues.
func ParseQueryValues(v url.Values) (core.CustomQuery, error) {
	q := core.CustomQuery{
		Category: strings.TrimSpace(v.Get("category")),
		From:     strings.TrimSpace(v.Get("from")),
		To:       strings.TrimSpace(v.Get("to")),
		Keyword:  strings.TrimSpace(v.Get("keyword")),
	}
	if t := strings.TrimSpace(v.Get("type")); t != "" {
		tt, err := core.ParseTransactionType(t)
		if err != nil {
			return core.CustomQuery{}, err
		}
		q.Type = tt
	}
	return q, q.Validate()
}

// call performs one registry operation and decodes the envelope data.
func call[T any](ctx context.Context, c *Client, r api.Resource, op api.Operation, query url.Values, body any, cacheable bool) (T, error) {
	var zero T

	target := api.URL(c.baseURL, r, op)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	key := op.Method + " " + target
	cacheable = cacheable && c.cache != nil && op.Method == http.MethodGet

	var gen uint64
	if cacheable {
		if raw, ok := c.cache.Get(key); ok {
			return decodeData[T](raw, r.Path(op))
		}
		gen = c.generation(r)
	}

	raw, status, err := c.do(ctx, op.Method, target, r.Path(op), body)
	if err != nil {
		return zero, err
	}

	env, err := decodeEnvelope[T](raw, r.Path(op))
	if status < 200 || status > 299 {
		apiErr := &APIError{StatusCode: status, Endpoint: r.Path(op)}
		if err == nil {
			apiErr.Status = env.Status
			apiErr.Message = env.MessageText()
		}
		return zero, apiErr
	}
	if err != nil {
		return zero, err
	}
	if !env.Succeeded() {
		return zero, &APIError{StatusCode: status, Status: env.Status, Message: env.MessageText(), Endpoint: r.Path(op)}
	}

	if cacheable && !c.storeIfCurrent(r, gen, key, raw) {
		c.logger.DebugContext(ctx, "Stale read not cached",
			applog.FieldOperation, applog.OpRead,
			"endpoint", r.Path(op))
	}
	if op.Method != http.MethodGet {
		c.InvalidateResource(r)
	}
	return env.Data, nil
}

func decodeEnvelope[T any](raw []byte, endpoint string) (core.Response[T], error) {
	var env core.Response[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return env, nil
}

func decodeData[T any](raw []byte, endpoint string) (T, error) {
	env, err := decodeEnvelope[T](raw, endpoint)
	return env.Data, err
}

func (c *Client) do(ctx context.Context, method, target, endpoint string, body any) ([]byte, int, error) {
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: encode request: %w", endpoint, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := trace.GetRequestID(ctx)
	if requestID == "" {
		requestID = trace.GenerateRequestID()
	}
	req.Header.Set(trace.HeaderRequestID, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", method, endpoint, err)
		c.slog.LogBackendCall(ctx, method, endpoint, 0, time.Since(start).Milliseconds(), err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		err = fmt.Errorf("%s %s: read response: %w", method, endpoint, err)
	}
	logErr := err
	if logErr == nil && resp.StatusCode >= 400 {
		logErr = errors.New(http.StatusText(resp.StatusCode))
	}
	c.slog.LogBackendCall(ctx, method, endpoint, resp.StatusCode, time.Since(start).Milliseconds(), logErr)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}
