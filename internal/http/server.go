package http

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"ledger/internal/client"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/router"
)

const (
	defaultRequestTimeout = 5 * time.Second
	staticMaxAge          = 3600
)

// Backend is everything the views need from the ledger backend.
// *client.Client implements it.
type Backend interface {
	client.Accounts
	client.Categories
	Ping(ctx context.Context) error
}

var _ Backend = (*client.Client)(nil)

// ServerConfig wires a Server.
type ServerConfig struct {
	Addr      string
	Backend   Backend
	Templates *template.Template
	// Static is served under /static/. Nil disables static assets.
	Static fs.FS
	Router *router.Router
	Logger *applog.Logger

	// RequestTimeout bounds the backend calls made for one page.
	RequestTimeout time.Duration
	RateLimit      ratelimit.Config
	Headers        security.HeadersConfig
	// Now replaces time.Now for form defaults.
	Now func() time.Time
}

// Server renders the ledger views.
type Server struct {
	http.Server
	backend   Backend
	templates *template.Template
	router    *router.Router
	logger    *applog.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	timeout   time.Duration
	now       func() time.Time

	shutdownOnce sync.Once
}

// ParseTemplates parses every page template in fsys with the view helpers
// available.
func ParseTemplates(fsys fs.FS) (*template.Template, error) {
	return template.New("views").Funcs(templateFuncs).ParseFS(fsys, "templates/*.html")
}

var templateFuncs = template.FuncMap{
	"money":    formatMoney,
	"negative": isNegative,
}

func isNegative(m core.Money) bool {
	return m.IsNegative()
}

// NewServer builds the server and mounts one handler per routed view.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("http: backend is required")
	}
	if cfg.Templates == nil {
		return nil, errors.New("http: templates are required")
	}
	if cfg.Router == nil {
		return nil, errors.New("http: router is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Headers == (security.HeadersConfig{}) {
		cfg.Headers = security.DefaultHeadersConfig()
	}
	if len(cfg.RateLimit.Methods) == 0 {
		cfg.RateLimit.Methods = []string{http.MethodPost}
	}

	s := &Server{
		backend:   cfg.Backend,
		templates: cfg.Templates,
		router:    cfg.Router,
		logger:    logger.WithComponent(applog.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(cfg.RateLimit),
		detector:  security.NewDetector(false),
		timeout:   cfg.RequestTimeout,
		now:       cfg.Now,
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	views := map[router.View]http.Handler{
		router.ViewLedger:     http.HandlerFunc(s.handleLedger),
		router.ViewInput:      http.HandlerFunc(s.handleInput),
		router.ViewCategories: http.HandlerFunc(s.handleCategories),
		router.ViewQuery:      http.HandlerFunc(s.handleQuery),
	}
	if err := s.router.Mount(mux, views); err != nil {
		s.limiter.Stop()
		return nil, err
	}

	if cfg.Static != nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(cfg.Static)))
		mux.Handle("/static/", security.StaticAssetMiddleware(staticMaxAge)(static))
	}
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(cfg.Headers)
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).WarnContext(r.Context(),
			"Rate limit exceeded",
			applog.FieldClientIP, s.detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	}

	var handler http.Handler = mux
	handler = s.limiter.Middleware(s.detector.ExtractClientIP, onLimit)(handler)
	handler = headers.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)
	handler = applog.Middleware(s.logger)(handler)

	s.Server = http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Router returns the route table the views are mounted from.
func (s *Server) Router() *router.Router {
	return s.router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the ledger backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.backendContext(r)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Backend not ready", applog.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("backend unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) backendContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

// navItem is one entry of the page navigation.
type navItem struct {
	Path   string
	Title  string
	Active bool
}

// page is the data every template receives.
type page struct {
	Title     string
	View      router.View
	Nav       []navItem
	Notice    *Notice
	RequestID string
	Data      any
}

func (s *Server) newPage(r *http.Request, view router.View, notice *Notice, data any) page {
	p := page{
		View:      view,
		Notice:    notice,
		RequestID: trace.GetRequestID(r.Context()),
		Data:      data,
	}
	for _, rt := range s.router.Routes() {
		active := rt.View == view
		if active {
			p.Title = rt.Title
		}
		p.Nav = append(p.Nav, navItem{Path: rt.Path, Title: rt.Title, Active: active})
	}
	return p
}

// render executes the view's template into a buffer so a template error
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, view router.View, notice *Notice, data any) {
	name := string(view) + ".html"
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, s.newPage(r, view, notice, data)); err != nil {
		applog.FromContext(r.Context()).WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed",
			applog.FieldOperation, applog.OpRender,
			applog.FieldView, string(view),
			applog.FieldError, err)
		InternalServerError("Failed to render page").Write(w)
		return
	}
	NewResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

// redirect sends the browser back to view's path with a notice.
func (s *Server) redirect(w http.ResponseWriter, view router.View, n *Notice) {
	path, ok := s.router.PathOf(view)
	if !ok {
		path = router.InitialPath
	}
	NewResponse().Redirect(path, n).Write(w)
}

// logBackendError logs a failed backend call for view.
func logBackendError(r *http.Request, view router.View, op string, err error) {
	logger := applog.FromContext(r.Context()).WithComponent(applog.ComponentView)
	args := []any{
		applog.FieldView, string(view),
		applog.FieldOperation, op,
		applog.FieldError, err,
	}
	if statusFor(err) >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Backend call failed", args...)
		return
	}
	logger.InfoContext(r.Context(), "Request rejected", args...)
}
