// Package app assembles the ledger UI runtime: it installs the component
// library and the router as plugins, then mounts the result on a listen
// address exactly once.
package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/client"
	"ledger/internal/config"
	uihttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/router"
)

const cacheCleanupInterval = time.Minute

var (
	// ErrAlreadyMounted is returned by a second Mount.
	ErrAlreadyMounted = errors.New("app: already mounted")
	// ErrNoRouter is returned by Mount when the router plugin is missing.
	ErrNoRouter = errors.New("app: router not installed")
	// ErrNoComponents is returned by Mount when the component library is
	// missing.
	ErrNoComponents = errors.New("app: component library not installed")
)

// ChangeSource delivers backend change events. *amqp.Client implements it.
type ChangeSource interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, amqp.ChangeEvent) error) error
	Close() error
}

var _ ChangeSource = (*amqp.Client)(nil)

// changeApplier is implemented by backends that cache reads.
type changeApplier interface {
	ApplyChange(ctx context.Context, ev amqp.ChangeEvent) error
}

var _ changeApplier = (*client.Client)(nil)

// App is the UI runtime.
type App struct {
	cfg     *config.Config
	logger  *applog.Logger
	backend uihttp.Backend
	changes ChangeSource
	caches  *cache.Manager

	mu        sync.Mutex
	plugins   map[string]bool
	templates *template.Template
	static    fs.FS
	router    *router.Router

	server       *uihttp.Server
	listener     net.Listener
	serveErr     chan error
	stopConsumer context.CancelFunc
	consumerDone chan struct{}
}

// Option configures an App.
type Option func(*App)

// WithBackend replaces the HTTP client built from BACKEND_URL.
func WithBackend(b uihttp.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithLogger sets the application logger.
func WithLogger(l *applog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithChangeSource replaces the AMQP consumer built from AMQP_URL.
func WithChangeSource(src ChangeSource) Option {
	return func(a *App) { a.changes = src }
}

// New builds the runtime. Nothing listens until Mount.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	a := &App{
		cfg:      cfg,
		plugins:  make(map[string]bool),
		serveErr: make(chan error, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = applog.New(applog.DefaultConfig())
	}
	a.logger = a.logger.WithComponent(applog.ComponentApp)
	a.caches = cache.NewManager(a.logger)

	if a.backend == nil {
		c := client.New(cfg.BackendURL,
			client.WithTimeout(cfg.RequestTimeout),
			client.WithCache(cfg.CacheSize, cfg.CacheTTL),
			client.WithLogger(a.logger))
		if c.Cache() != nil {
			a.caches.Register(c.Cache())
		}
		a.backend = c
	}

	if a.changes == nil && cfg.AMQPURL != "" {
		src, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, a.logger)
		if err != nil {
			// Reads still expire by TTL without change events.
			a.logger.Warn("AMQP unavailable, cache relies on TTL only", applog.FieldError, err)
		} else {
			a.changes = src
		}
	}

	return a, nil
}

// Use installs a plugin. Each plugin is installed at most once and only
// before Mount.
func (a *App) Use(p Plugin) error {
	if p == nil {
		return errors.New("app: nil plugin")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return fmt.Errorf("app: cannot install %s: %w", p.Name(), ErrAlreadyMounted)
	}
	if a.plugins[p.Name()] {
		return fmt.Errorf("app: plugin %s already installed", p.Name())
	}
	if err := p.Install(a); err != nil {
		return fmt.Errorf("app: install %s: %w", p.Name(), err)
	}
	a.plugins[p.Name()] = true
	a.logger.Debug("Plugin installed", "plugin", p.Name())
	return nil
}

// Mount binds the runtime to addr and starts serving in the background.
// It succeeds at most once.
func (a *App) Mount(addr string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyMounted
	}
	if a.router == nil {
		return ErrNoRouter
	}
	if a.templates == nil {
		return ErrNoComponents
	}

	srv, err := uihttp.NewServer(uihttp.ServerConfig{
		Addr:           addr,
		Backend:        a.backend,
		Templates:      a.templates,
		Static:         a.static,
		Router:         a.router,
		Logger:         a.logger,
		RequestTimeout: a.cfg.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("app: build server: %w", err)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return fmt.Errorf("app: listen on %s: %w", addr, err)
	}
	a.server = srv
	a.listener = ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Server error", applog.FieldError, err)
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.caches.StartCleanup(cacheCleanupInterval)
	a.startConsumer()

	a.logger.Info("Ledger UI listening",
		"addr", ln.Addr().String(),
		"backend_url", a.cfg.BackendURL,
		"initial_view", string(a.router.Initial()))
	return nil
}

func (a *App) startConsumer() {
	if a.changes == nil {
		return
	}
	applier, ok := a.backend.(changeApplier)
	if !ok {
		a.logger.Warn("Backend keeps no cache, ignoring change events")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.stopConsumer = cancel
	a.consumerDone = make(chan struct{})
	go func() {
		defer close(a.consumerDone)
		err := a.changes.ConsumeChanges(ctx, applier.ApplyChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("Change consumer stopped", applog.FieldOperation, applog.OpConsume, applog.FieldError, err)
		}
	}()
}

// Router returns the installed route table, or nil before the router
// plugin is installed.
func (a *App) Router() *router.Router {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.router
}

// Addr returns the bound address, or "" before Mount.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Errors reports a serve failure after Mount. It is closed when serving
// stops.
func (a *App) Errors() <-chan error {
	return a.serveErr
}

// Shutdown stops serving and releases background work.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	stop, done := a.stopConsumer, a.consumerDone
	a.mu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	if a.changes != nil {
		_ = a.changes.Close()
	}
	a.caches.Stop()

	if srv == nil {
		return nil
	}
	a.logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
	return srv.Shutdown(ctx)
}
