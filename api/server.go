// Package api exposes the ledger over HTTP with chi.
package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xraph/auditledger"
	"github.com/xraph/auditledger/analysis"
)

// WalletHeader carries the caller's wallet address.
const WalletHeader = "X-Wallet-Address"

// maxBodyBytes bounds request bodies; contract sources can be large.
const maxBodyBytes = 4 << 20

// Server serves the ledger's HTTP API.
type Server struct {
	ledger  *auditledger.Ledger
	analyst analysis.Provider
	admins  auditledger.AdminSet
	logger  *slog.Logger
	timeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithAdmins sets the administrator addresses.
func WithAdmins(admins auditledger.AdminSet) Option {
	return func(s *Server) { s.admins = admins }
}

// WithAnalysisProxy enables POST /api/audit backed by p.
func WithAnalysisProxy(p analysis.Provider) Option {
	return func(s *Server) { s.analyst = p }
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRequestTimeout bounds non-submission requests (default: 30s).
// Submissions wait for payment and analysis and are not bounded here.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

// New creates a Server for l.
func New(l *auditledger.Ledger, opts ...Option) *Server {
	s := &Server{
		ledger:  l,
		admins:  auditledger.NewAdminSet(),
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.identify)

	r.Group(func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout))
		}

		r.Get("/healthz", s.health)
		r.Get("/services", s.services)
		r.Get("/quote", s.quote)

		r.Get("/reports", s.searchReports)
		r.Get("/reports/latest", s.latestReports)
		r.Get("/reports/{id}", s.getReport)
		r.Get("/reports/{id}/children", s.reportChildren)
		r.Get("/reports/{id}/export.{format}", s.exportReport)
		r.Post("/reports/{id}/visibility", s.toggleVisibility)
		r.Delete("/reports/{id}", s.deleteReport)

		r.Get("/me/reports", s.myReports)
		r.Get("/referrals/{address}", s.referrals)
	})

	r.Post("/reports", s.submit)
	r.Post("/api/audit", s.analyze)

	return r
}
