package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"portfolioos/internal/bot"
	"portfolioos/internal/catalog"
	"portfolioos/internal/contact"
	"portfolioos/internal/metrics"
	"portfolioos/internal/ratelimit"
	"portfolioos/internal/site"
)

const (
	// HTTP server timeouts. The write timeout leaves room for one outbound
	// notification call.
	HTTPReadTimeout       = 10 * time.Second
	HTTPReadHeaderTimeout = 5 * time.Second
	HTTPWriteTimeout      = 20 * time.Second
	HTTPIdleTimeout       = 60 * time.Second

	// RequestTimeout bounds each handler. It sits above the notification
	// timeout and below the write timeout so a slow send still gets a reply.
	RequestTimeout = 15 * time.Second

	// ShutdownTimeout bounds draining of in-flight requests.
	ShutdownTimeout = 15 * time.Second

	// SweepInterval is how often idle rate-limit entries are evicted.
	SweepInterval = time.Minute
)

// Routes served by the router. Request counts for any other path go to
// UnmatchedRoute.
const (
	RouteIndex    = "/"
	RouteHealth   = "/healthz"
	RouteMetrics  = "/metrics"
	RouteProjects = "/api/projects"
	RouteContact  = "/api/contact"
	RouteWebhook  = "/telegram/webhook"

	UnmatchedRoute = "unmatched"
)

// Options wires a Server.
type Options struct {
	Catalog *catalog.Registry
	Metrics *metrics.Registry
	Limiter *ratelimit.Limiter
	Contact *contact.Service
	Logger  *slog.Logger

	// Bot and WebhookSecret together enable the Telegram webhook route.
	Bot           *bot.Bot
	WebhookSecret string

	// NotifyAPIURL is allowed in the CSP connect-src directive.
	NotifyAPIURL string
	OTelEnabled  bool

	// TrustProxyHeaders keys clients on X-Forwarded-For / X-Real-IP. Only
	// enable it behind a proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// Server represents the HTTP server
type Server struct {
	catalog       *catalog.Registry
	metrics       *metrics.Registry
	limiter       *ratelimit.Limiter
	contact       *contact.Service
	bot           *bot.Bot
	webhookSecret string
	logger        *slog.Logger
	otelEnabled   bool
	trustProxy    bool

	csp    string
	page   []byte
	routes map[string]bool
	now    func() time.Time
}

// New creates a server and renders the HTML shell once.
func New(opts Options) (*Server, error) {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry(time.Now())
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.New(ratelimit.DefaultThreshold)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Contact == nil {
		opts.Contact = contact.NewService(nil, opts.Metrics, nil, opts.Logger)
	}

	page, err := site.Render(opts.Catalog)
	if err != nil {
		return nil, err
	}

	s := &Server{
		catalog:     opts.Catalog,
		metrics:     opts.Metrics,
		limiter:     opts.Limiter,
		contact:     opts.Contact,
		logger:      opts.Logger,
		otelEnabled: opts.OTelEnabled,
		trustProxy:  opts.TrustProxyHeaders,
		csp:         contentSecurityPolicy(originOf(opts.NotifyAPIURL)),
		page:        page,
		now:         time.Now,
		routes: map[string]bool{
			RouteIndex:    true,
			RouteHealth:   true,
			RouteMetrics:  true,
			RouteProjects: true,
			RouteContact:  true,
		},
	}

	if opts.Bot != nil && opts.WebhookSecret != "" {
		s.bot = opts.Bot
		s.webhookSecret = opts.WebhookSecret
		s.routes[RouteWebhook] = true
	}

	return s, nil
}

// WebhookEnabled reports whether the Telegram webhook route is served.
func (s *Server) WebhookEnabled() bool {
	return s.bot != nil
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.requestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.logRequests)
	r.Use(s.recoverer)
	r.Use(s.countRequests)
	r.Use(s.securityHeaders)
	r.Use(s.rateLimit)
	r.Use(middleware.Timeout(RequestTimeout))

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleNotFound)

	r.Get(RouteHealth, s.handle(s.handleHealth))
	r.Get(RouteMetrics, s.handle(s.handleMetrics))
	r.Get(RouteProjects, s.handle(s.handleProjects))
	r.Post(RouteContact, s.handle(s.handleContact))
	r.Get(RouteIndex, s.handle(s.handleIndex))

	if s.bot != nil {
		r.Post(RouteWebhook, s.handle(s.handleWebhook))
	}

	return r
}

// Run listens on addr and serves until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. The listener is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Router(),
		ReadTimeout:       HTTPReadTimeout,
		ReadHeaderTimeout: HTTPReadHeaderTimeout,
		WriteTimeout:      HTTPWriteTimeout,
		IdleTimeout:       HTTPIdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.sweepLimiter(ctx, SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	s.logger.Info("portfolio_os.ready",
		"addr", ln.Addr().String(),
		"otel", s.otelEnabled,
		"trust_proxy", s.trustProxy,
		"webhook", s.WebhookEnabled(),
		"projects", s.catalog.Count())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("portfolio_os.shutting_down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	s.logger.Info("portfolio_os.stopped")
	return nil
}

// sweepLimiter evicts idle rate-limit entries until ctx is done.
func (s *Server) sweepLimiter(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.limiter.Sweep(s.now()); n > 0 {
				s.logger.Debug("ratelimit.swept", "evicted", n, "tracked", s.limiter.Len())
			}
		}
	}
}

func contentSecurityPolicy(notifyOrigin string) string {
	connect := "connect-src 'self'"
	if notifyOrigin != "" {
		connect += " " + notifyOrigin
	}
	return strings.Join([]string{
		"default-src 'self'",
		"img-src 'self' data:",
		"style-src 'self' 'unsafe-inline'",
		"script-src 'self' 'unsafe-inline'",
		connect,
		"base-uri 'none'",
		"object-src 'none'",
		"frame-ancestors 'none'",
	}, "; ")
}

// originOf returns scheme://host of rawURL, or "" when it has neither.
func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
