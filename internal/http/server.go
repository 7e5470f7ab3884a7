// Package http serves the JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"earntracker/internal/log"
	"earntracker/internal/middleware/ratelimit"
	"earntracker/internal/middleware/security"
	"earntracker/internal/middleware/trace"
	"earntracker/internal/rates"
	"earntracker/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API routes are bound to.
type Deps struct {
	Users   *services.UserService
	Incomes *services.IncomeService
	Taxes   *services.TaxService
	Rules   *services.RuleService
	Events  *services.EventService
	Rates   rates.Source
	Store   Pinger
	Logger  *log.Logger

	BaseCurrency       string
	RateLimitPerMinute int
	TrustedProxies     []string
}

type Server struct {
	http.Server

	users   *services.UserService
	incomes *services.IncomeService
	taxes   *services.TaxService
	rules   *services.RuleService
	events  *services.EventService
	rates   rates.Source
	store   Pinger

	baseCurrency string
	logger       *log.Logger
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
}

func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector()
	for _, cidr := range d.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		users:    d.Users,
		incomes:  d.Incomes,
		taxes:    d.Taxes,
		rules:    d.Rules,
		events:   d.Events,
		rates:    d.Rates,
		store:    d.Store,

		baseCurrency: d.BaseCurrency,
		logger:       logger,
		detector:     detector,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: d.RateLimitPerMinute,
		}),
		tracer: trace.NewMiddleware(logger, detector.ExtractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/users", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	mux.HandleFunc("GET /api/incomes", s.requireAuth(s.handleListIncomes))
	mux.HandleFunc("POST /api/incomes", s.requireAuth(s.handleCreateIncome))
	mux.HandleFunc("GET /api/incomes/period", s.requireAuth(s.handleIncomesByPeriod))
	mux.HandleFunc("PATCH /api/incomes/{id}", s.requireAuth(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.requireAuth(s.handleDeleteIncome))

	mux.HandleFunc("GET /api/tax-rules", s.requireAuth(s.handleListRules))
	mux.HandleFunc("POST /api/tax-rules", s.requireAuth(s.handleCreateRule))
	mux.HandleFunc("POST /api/tax-rules/copy", s.requireAuth(s.handleCopyRules))
	mux.HandleFunc("PATCH /api/tax-rules/{id}", s.requireAuth(s.handleUpdateRule))
	mux.HandleFunc("DELETE /api/tax-rules/{id}", s.requireAuth(s.handleDeleteRule))

	mux.HandleFunc("GET /api/events", s.requireAuth(s.handleListEvents))
	mux.HandleFunc("POST /api/events", s.requireAuth(s.handleCreateEvent))
	mux.HandleFunc("GET /api/events/upcoming", s.requireAuth(s.handleUpcomingEvents))
	mux.HandleFunc("PATCH /api/events/{id}", s.requireAuth(s.handleUpdateEvent))
	mux.HandleFunc("DELETE /api/events/{id}", s.requireAuth(s.handleDeleteEvent))

	mux.HandleFunc("GET /api/analytics/taxes", s.requireAuth(s.handleQuarterTaxes))
	mux.HandleFunc("GET /api/analytics/year/{year}", s.requireAuth(s.handleYearReport))
	mux.HandleFunc("GET /api/analytics/monthly/{year}", s.requireAuth(s.handleMonthlyTotals))
	mux.HandleFunc("GET /api/dashboard", s.requireAuth(s.handleDashboard))
	mux.HandleFunc("GET /api/rates", s.requireAuth(s.handleRate))

	// Outermost first: trace, security headers, detection, rate limit.
	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.logger.Info("HTTP server shutting down", log.FieldOperation, log.OpShutdown)
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	_ = NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Body(errorBody{Error: "rate limit exceeded", RequestID: trace.GetRequestID(r.Context())}).
		Write(w)
}
