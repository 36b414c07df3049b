package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"monthlynet/internal/core"
	"monthlynet/internal/log"
	"monthlynet/internal/middleware/ratelimit"
	"monthlynet/internal/middleware/security"
	"monthlynet/internal/middleware/trace"
	"monthlynet/internal/services"
	appweb "monthlynet/web"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Ports consumed by the handlers.
type (
	NetWorth interface {
		Dashboard(ctx context.Context) (services.Dashboard, error)
		Insights(ctx context.Context) (core.InsightResponse, error)
		History(ctx context.Context) ([]core.HistoryEntry, error)
		CurrentBalances(ctx context.Context) (core.BalanceSnapshot, error)
		RecordSnapshot(ctx context.Context, s core.BalanceSnapshot) (core.HistoryEntry, error)
		ParseText(ctx context.Context, text string) core.ParsedBalances
		AIEnabled() bool
	}

	Bills interface {
		List(ctx context.Context) ([]core.Bill, error)
		Add(ctx context.Context, in services.BillInput) (core.Bill, error)
		Toggle(ctx context.Context, id string) (core.Bill, error)
		Delete(ctx context.Context, id string) error
		ResetMonth(ctx context.Context) error
	}
)

// Deps are the collaborators of the server.
type Deps struct {
	NetWorth NetWorth
	Bills    Bills
	Logger   *log.Logger
	// Ready checks the storage backend. Nil means always ready.
	Ready func(ctx context.Context) error
	// Location is used for chart labels. Nil means time.Local.
	Location *time.Location
	// TrustedProxies are extra CIDRs allowed to set forwarding headers.
	TrustedProxies []string
}

type Server struct {
	http.Server
	templates *template.Template
	networth  NetWorth
	bills     Bills
	ready     func(ctx context.Context) error
	logger    *log.Logger
	loc       *time.Location

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and configures the routes.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	detector, err := security.NewDetector(deps.TrustedProxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	logger := deps.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		templates: t,
		networth:  deps.NetWorth,
		bills:     deps.Bills,
		ready:     deps.Ready,
		logger:    logger,
		loc:       deps.Location,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  detector,
		tracer:    trace.NewMiddleware(logger, detector.ClientIP),
		started:   time.Now(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Insight calls can take a while; the AI timeout bounds them.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		log.Middleware(s.logger),
		s.tracer.Handler,
		chimw.Recoverer,
		s.detector.Middleware,
		security.Headers(security.DefaultHeadersConfig()),
		s.limiter.Middleware(s.detector.ClientIP, s.handleRateLimited),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Page not found").Write(w)
	})

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		r.With(security.StaticCache(3600)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(sub))))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Get("/", s.handleDashboard)
	r.Get("/ui/insights", s.handleInsights)
	r.Get("/api/history", s.handleHistoryJSON)
	r.Post("/theme", s.handleTheme)

	r.Get("/update", s.handleUpdateForm)
	r.Post("/update/parse", s.handleMagicFill)
	r.Post("/update/totals", s.handleProjectedTotals)
	r.Post("/snapshots", s.handleSaveSnapshot)

	r.Route("/bills", func(r chi.Router) {
		r.Get("/", s.handleBills)
		r.Post("/", s.handleAddBill)
		r.Post("/reset", s.handleResetBills)
		r.Post("/{id}/toggle", s.handleToggleBill)
		r.Delete("/{id}", s.handleDeleteBill)
	})
	return r
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests. Please try again in a minute.").
		TriggerErrorNotification("Too many requests").
		Write(w)
}
