package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"skledger/internal/cache"
	"skledger/internal/export"
	"skledger/internal/ledger"
	applog "skledger/internal/log"
	"skledger/internal/middleware/ratelimit"
	"skledger/internal/middleware/security"
	"skledger/internal/middleware/trace"
	"skledger/internal/sheets"
	appweb "skledger/web"
)

// Pinger reports backend health for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the HTTP server. Only Ledger is required.
type Deps struct {
	Ledger *ledger.Controller

	// Lister backs GET /periods. Without it the endpoint answers 501.
	Lister sheets.PeriodLister

	// Snapshots caches export snapshots. Nil disables caching.
	Snapshots *cache.SnapshotCache

	// Health is checked by /readyz when set.
	Health Pinger

	RateLimit ratelimit.Config

	// Clock picks the period behind GET /periods/current. Defaults to time.Now.
	Clock func() time.Time
}

type appMetrics struct {
	uptime          time.Time
	entriesAppended int64
	saveFailures    int64
	cacheHits       int64
	cacheMisses     int64
}

type Server struct {
	http.Server
	ledger    *ledger.Controller
	lister    sheets.PeriodLister
	health    Pinger
	now       func() time.Time
	templates *template.Template
	logger    *applog.Logger
	events    *applog.StructuredLogger

	snapshots    *cache.SnapshotCache
	cacheManager *cache.Manager

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	logger := applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP})
	rl := deps.RateLimit
	if rl.RequestsPerMinute == 0 {
		rl = ratelimit.DefaultConfig()
	}

	s := &Server{
		ledger:           deps.Ledger,
		lister:           deps.Lister,
		health:           deps.Health,
		now:              deps.Clock,
		logger:           logger,
		events:           applog.NewStructuredLogger(logger),
		snapshots:        deps.Snapshots,
		cacheManager:     cache.NewManager(),
		rateLimiter:      ratelimit.NewLimiter(rl),
		securityDetector: security.NewDetector(),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.traceMiddleware = trace.NewMiddleware(s.securityDetector.ExtractClientIP)

	if s.snapshots != nil {
		s.cacheManager.Register(s.snapshots)
		s.cacheManager.StartCleanup(10 * time.Minute)
	}

	t, err := template.New("").Funcs(template.FuncMap{"cells": export.Cells}).
		ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /periods", s.handleListPeriods)
	mux.HandleFunc("GET /periods/current", s.handleCurrentPeriod)
	mux.HandleFunc("GET /periods/{key}", s.handleGetPeriod)
	mux.HandleFunc("GET /periods/{key}/totals", s.handleTotals)
	mux.HandleFunc("PUT /periods/{key}/metadata", s.handleSetMetadata)
	mux.HandleFunc("PUT /periods/{key}/opening", s.handleSetOpening)
	mux.HandleFunc("POST /periods/{key}/entries", s.handleAppendEntry)
	mux.HandleFunc("POST /periods/{key}/entries/{index}/withdraw", s.handleWithdrawEntry)
	mux.HandleFunc("POST /periods/{key}/accounts/{kind}", s.handleAddAccount)
	mux.HandleFunc("PUT /periods/{key}/accounts/{kind}/{index}", s.handleRenameAccount)
	mux.HandleFunc("DELETE /periods/{key}/accounts/{kind}/{index}", s.handleRemoveAccount)
	mux.HandleFunc("POST /periods/{key}/save", s.handleSave)
	mux.HandleFunc("GET /periods/{key}/snapshot", s.handleSnapshot)
	mux.HandleFunc("GET /periods/{key}/export.xlsx", s.handleExportWorkbook)
	mux.HandleFunc("GET /periods/{key}/print", s.handlePrint)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// middleware wraps the mux: tracing outermost so every response, including
// rejections, carries a request ID and is logged.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = security.NoStoreMiddleware(h)
	h = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
	})(h)
	h = s.securityDetector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.traceMiddleware.Middleware(h)
	return applog.Middleware(s.logger)(h)
}

// Shutdown stops background routines, saves dirty periods and shuts the
// HTTP server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.Server.Shutdown(ctx)
		if s.snapshots != nil {
			s.cacheManager.Stop()
		}
		s.rateLimiter.Stop()
		s.ledger.Close()
		if err := s.ledger.Flush(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Saving dirty periods on shutdown failed", "error", err)
			if shutdownErr == nil {
				shutdownErr = err
			}
		}
	})
	return shutdownErr
}
