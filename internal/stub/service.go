// Package stub is a development ledger backend serving the endpoint
// registry over HTTP. It stores data through a backend.Store and computes
// totals and groupings in Go.
package stub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

// Publisher announces committed writes. *amqp.Client implements it.
type Publisher interface {
	PublishChange(ctx context.Context, ev amqp.ChangeEvent) error
}

var _ Publisher = (*amqp.Client)(nil)

// Service holds the backend's business rules on top of a store.
type Service struct {
	store     backend.Store
	publisher Publisher
	logger    *applog.Logger
	now       func() time.Time
	newID     func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPublisher publishes a change event after every successful write.
func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l *applog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithClock replaces time.Now for category timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for new entity ids.
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) { s.newID = gen }
}

func NewService(store backend.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = applog.New(applog.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(applog.ComponentStub)
	return s
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ListAccounts(ctx context.Context) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx)
}

// AddAccount validates req, assigns an id and stores the transaction.
func (s *Service) AddAccount(ctx context.Context, req core.AddAccountRequest) (core.Transaction, error) {
	req.Category = strings.TrimSpace(req.Category)
	req.Remarks = strings.TrimSpace(req.Remarks)
	req.Date = strings.TrimSpace(req.Date)
	if err := req.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx := req.Transaction(s.newID())
	if err := s.store.AddTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}

	s.publish(ctx, amqp.ResourceAccounts, amqp.ActionAdd, tx.ID)
	return tx, nil
}

func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ErrEmptyID
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.publish(ctx, amqp.ResourceAccounts, amqp.ActionDelete, id)
	return nil
}

// Total sums every transaction of type tt.
func (s *Service) Total(ctx context.Context, tt core.TransactionType) (core.Money, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return core.Money{}, err
	}
	return core.TotalByType(txs, tt), nil
}

func (s *Service) ByMonth(ctx context.Context, tt core.TransactionType) ([]core.MonthAmount, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.ByMonth(txs, tt), nil
}

func (s *Service) ByCategory(ctx context.Context, tt core.TransactionType) ([]core.CategoryAmount, error) {
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.ByCategory(txs, tt), nil
}

// CustomQuery returns the transactions matching q, in list order.
func (s *Service) CustomQuery(ctx context.Context, q core.CustomQuery) ([]core.Transaction, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return core.Filter(txs, q), nil
}

func (s *Service) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// AddCategory creates a category stamped with the current time.
func (s *Service) AddCategory(ctx context.Context, req core.AddCategoryRequest) (core.Category, error) {
	req.CategoryName = strings.TrimSpace(req.CategoryName)
	if err := req.Validate(); err != nil {
		return core.Category{}, err
	}

	now := s.timestamp()
	c := core.Category{
		ID:           s.newID(),
		CategoryName: req.CategoryName,
		CreateTime:   now,
		UpdateTime:   now,
	}
	if err := s.store.AddCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("add category: %w", err)
	}

	s.publish(ctx, amqp.ResourceCategory, amqp.ActionAdd, c.ID)
	return c, nil
}

// UpdateCategory renames c.ID. Client-supplied timestamps are ignored.
func (s *Service) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.CategoryName = strings.TrimSpace(c.CategoryName)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	c.CreateTime = ""
	c.UpdateTime = s.timestamp()
	stored, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}

	s.publish(ctx, amqp.ResourceCategory, amqp.ActionUpdate, stored.ID)
	return stored, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.ErrEmptyID
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.publish(ctx, amqp.ResourceCategory, amqp.ActionDelete, id)
	return nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// publish is best effort: the write is already committed.
func (s *Service) publish(ctx context.Context, resource, action, id string) {
	if s.publisher == nil {
		return
	}
	ev := amqp.NewChangeEvent(resource, action, id)
	if err := s.publisher.PublishChange(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish change event",
			applog.FieldOperation, applog.OpPublish,
			"resource", resource,
			"action", action,
			"entity_id", id,
			applog.FieldError, err)
	}
}
