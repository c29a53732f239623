package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger/internal/contact"
	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/sources"
	"ledger/internal/theme"
	appweb "ledger/web"
)

// storeTimeout bounds every call into the transaction store so a slow
// backend cannot hang a page.
const storeTimeout = 7 * time.Second

// ContactSubmitter is implemented by *contact.Service.
type ContactSubmitter interface {
	Submit(ctx context.Context, sub contact.Submission) (contact.Receipt, error)
}

// ReadyCheck is one dependency probed by /readyz.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Config struct {
	Addr    string
	Store   sources.TransactionStore
	Contact ContactSubmitter
	// Themes defaults to a cookie store.
	Themes       theme.Store
	DefaultTheme theme.Theme
	CookieSecure bool

	Logger   *applog.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	RateLimitPerMinute int
	TrustedProxies     []string
	ReadyChecks        []ReadyCheck

	// Now defaults to time.Now.
	Now func() time.Time
}

type Server struct {
	http.Server
	templates    *template.Template
	store        sources.TransactionStore
	contact      ContactSubmitter
	themes       theme.Store
	defaultTheme theme.Theme
	logger       *applog.Logger
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	readyChecks  []ReadyCheck
	now          func() time.Time
	started      time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	labels   map[string]bool

	shutdownOnce sync.Once
}

// Route is one entry of the dispatch table. Limited routes go through the
// per-IP rate limiter.
type Route struct {
	Pattern string
	Handler http.Handler
	Limited bool
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("transaction store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	if cfg.Themes == nil {
		cfg.Themes = theme.NewCookieStore(cfg.CookieSecure)
	}
	if _, ok := theme.Parse(string(cfg.DefaultTheme)); !ok {
		cfg.DefaultTheme = theme.Light
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates:    t,
		store:        cfg.Store,
		contact:      cfg.Contact,
		themes:       cfg.Themes,
		defaultTheme: cfg.DefaultTheme,
		logger:       cfg.Logger.WithComponent(applog.ComponentHTTP),
		metrics:      cfg.Metrics,
		gatherer:     cfg.Gatherer,
		readyChecks:  cfg.ReadyChecks,
		now:          cfg.Now,
		started:      cfg.Now(),
	}

	s.detector = security.NewDetector(func(*http.Request) { s.metrics.Suspicious() })
	for _, cidr := range cfg.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
	}

	limitCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limitCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}
	s.limiter = ratelimit.NewLimiter(limitCfg)

	s.tracer = trace.NewMiddleware(cfg.Logger, s.detector.ExtractClientIP, s.observe)

	mux := http.NewServeMux()
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)
	s.labels = make(map[string]bool)
	for _, rt := range s.routes() {
		h := rt.Handler
		if rt.Limited {
			h = limit(h)
		}
		mux.Handle(rt.Pattern, h)
		s.labels[routePath(rt.Pattern)] = true
	}

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.tracer.Middleware(headers.Middleware(s.detector.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// routes is the dispatch table of every endpoint the server answers.
func (s *Server) routes() []Route {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	staticHandler := security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	return []Route{
		{Pattern: "GET /{$}", Handler: http.HandlerFunc(s.handleDashboard)},
		{Pattern: "GET /api/summary", Handler: http.HandlerFunc(s.handleSummaryJSON)},
		{Pattern: "GET /api/chart", Handler: http.HandlerFunc(s.handleChartJSON)},
		{Pattern: "GET /ui/transactions", Handler: http.HandlerFunc(s.handleTransactionsPartial)},
		{Pattern: "GET /ui/summary", Handler: http.HandlerFunc(s.handleSummaryPartial)},
		{Pattern: "/transactions", Handler: http.HandlerFunc(s.handleCreateTransaction), Limited: true},
		{Pattern: "/theme/toggle", Handler: http.HandlerFunc(s.handleThemeToggle), Limited: true},
		{Pattern: "GET /portfolio", Handler: http.HandlerFunc(s.handlePortfolio)},
		{Pattern: "/contact", Handler: http.HandlerFunc(s.handleContact), Limited: true},
		{Pattern: "GET /healthz", Handler: http.HandlerFunc(s.handleHealth)},
		{Pattern: "GET /readyz", Handler: http.HandlerFunc(s.handleReady)},
		{Pattern: "GET /metrics", Handler: promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})},
		{Pattern: "GET /static/", Handler: staticHandler},
	}
}

// routePath strips the method and wildcard suffix from a mux pattern.
func routePath(pattern string) string {
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	pattern = strings.TrimSuffix(pattern, "{$}")
	if pattern != "/" {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	return pattern
}

// routeLabel keeps the metrics path label bounded to known routes.
func (s *Server) routeLabel(r *http.Request) string {
	path := r.URL.Path
	if strings.HasPrefix(path, "/static/") {
		return "/static"
	}
	if s.labels[path] {
		return path
	}
	return "other"
}

func (s *Server) observe(r *http.Request, status int, d time.Duration) {
	s.metrics.ObserveHTTP(r.Method, s.routeLabel(r), status, d)
}

// onRateLimited answers contact posts with the contact JSON body and
// everything else with an HTMX error.
func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	applog.FromContext(r.Context()).Warn("Rate limit exceeded",
		applog.FieldClientIP, s.detector.ExtractClientIP(r),
		"path", r.URL.Path)

	if r.URL.Path == "/contact" {
		s.metrics.ContactSubmission(metrics.OutcomeRateLimited)
		writeJSON(w, contact.StatusCode(contact.ErrRateLimited), contact.NewResponse(contact.ErrRateLimited))
		return
	}
	ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown gracefully shuts down the server and the limiter cleanup routine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// resolveTheme reads the stored preference, falling back to the default.
func (s *Server) resolveTheme(r *http.Request) theme.Theme {
	return theme.Resolve(s.themes, r, s.defaultTheme)
}

// listTransactions reads the store under storeTimeout.
func (s *Server) listTransactions(ctx context.Context) ([]core.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	txs, err := s.store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Server) summarize(txs []core.Transaction) core.Summary {
	start := time.Now()
	summary := core.Summarize(txs)
	s.metrics.ObserveSummarize(time.Since(start))
	return summary
}

// render executes a template into a buffer first so a failure never sends a
// half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).Error("Template execution failed",
			applog.FieldError, err,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(buf.String()))
}

func (s *Server) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append([]any{applog.FieldError, err}, args...)
	applog.FromContext(ctx).ErrorContext(ctx, msg, args...)
}
