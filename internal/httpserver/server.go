// internal/httpserver/server.go
//
// HTTP server wiring for the car guessing backend.
// Responsibilities:
//   - Router + middleware (request IDs, access logs, panic recovery,
//     timeouts, JSON content type, CORS).
//   - Diagnostics: "/", "/health", "/debug/catalog".
//   - Game endpoints: GET /api/random-car, POST /api/guess,
//     GET /api/search-models (routes.go).
//
// Notes:
//   - Records are issued with a signed round ticket when an Issuer is
//     configured; a guess carrying a ticket is scored against the stored
//     record, and each ticket scores once.
//   - Without a ticket the echoed record is trusted only if TrustClientTruth
//     is set.

package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/carguess/internal/catalog"
	"github.com/robalobadob/carguess/internal/rounds"
)

// Config bundles the server's collaborators.
type Config struct {
	Catalog catalog.Catalog
	// Tickets and Ledger are optional; both must be set to issue tickets.
	Tickets *rounds.Issuer
	Ledger  rounds.Ledger
	// TrustClientTruth allows scoring against a record sent by the client
	// when the request carries no ticket.
	TrustClientTruth bool
	// ClientOrigin is the CORS origin; empty or "*" allows any origin
	// without credentials.
	ClientOrigin string
	Logger       zerolog.Logger
}

// Server bundles the router and its dependencies.
type Server struct {
	r   *chi.Mux
	cfg Config
	log zerolog.Logger
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, log: cfg.Logger}
	if s.cfg.Tickets == nil || s.cfg.Ledger == nil {
		s.cfg.Tickets, s.cfg.Ledger = nil, nil
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(hlog.NewHandler(s.log))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(cors(cfg.ClientOrigin))

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"carguess","endpoints":["/health","GET /api/random-car","POST /api/guess","GET /api/search-models?q="]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/catalog", func(w http.ResponseWriter, r *http.Request) {
		n, err := s.cfg.Catalog.Count(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"cars": n, "tickets": s.cfg.Tickets != nil})
	})

	s.mountGame(s.r)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler { return s.r }

// ----------------------------- middleware ----------------------------------

func accessLog(r *http.Request, status, size int, d time.Duration) {
	hlog.FromRequest(r).Info().
		Str("req_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows a single configured origin with credentials, or any origin
// without them.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
