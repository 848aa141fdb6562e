// Package api implements the HTTP layer. Handlers are methods on *Server.
// Each handler file covers one endpoint and only uses the collaborators it
// needs.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vzubenko/npd-receipt-backend/internal/failstore"
	"github.com/vzubenko/npd-receipt-backend/internal/mail"
	"github.com/vzubenko/npd-receipt-backend/internal/nalog"
)

// Config holds values read from environment variables at startup.
type Config struct {
	// APIPass is the shared secret every create-receipt request must carry.
	APIPass string

	// AppName is the service display name: it becomes the declared income
	// position and appears in email subjects.
	AppName string

	// INN is the taxpayer number used to build the printable-receipt link.
	INN string

	// AdminEmail receives registration-failure alerts.
	AdminEmail string

	// Env is "production", "staging", or "development".
	Env string
}

// Recorder persists failed receipt-creation attempts. Satisfied by
// *failstore.Store; tests inject a stub.
type Recorder interface {
	Record(r failstore.Record) error
}

// Server holds all shared dependencies. Each handler file attaches methods
// to this type and uses only the fields it needs.
type Server struct {
	// registrar registers declared income with the tax service, with retry.
	registrar nalog.Registrar

	// prober is the authenticated profile call used by the health endpoint.
	prober nalog.Prober

	// mailer delivers the customer receipt and the admin alert, and exposes
	// the transport probe for the health endpoint.
	mailer mail.Sender

	// recorder saves failure context for manual reprocessing. Best-effort:
	// its errors are logged, never surfaced.
	recorder Recorder

	cfg    Config
	logger *slog.Logger
}

// NewServer constructs the Server and wires the chi router. The returned
// http.Handler is ready to pass to http.ListenAndServe.
func NewServer(
	registrar nalog.Registrar,
	prober nalog.Prober,
	mailer mail.Sender,
	recorder Recorder,
	cfg Config,
	logger *slog.Logger,
) http.Handler {
	s := &Server{
		registrar: registrar,
		prober:    prober,
		mailer:    mailer,
		recorder:  recorder,
		cfg:       cfg,
		logger:    logger,
	}

	return s.routes()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// ── Global middleware ─────────────────────────────────────────────────────
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/create-receipt", s.handleCreateReceipt)
	})

	return r
}
