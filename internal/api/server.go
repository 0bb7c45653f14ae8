// Package api provides the HTTP server for the task list.
// Mutating routes read the caller identity from the X-Caller header.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppc-network/tasklist/internal/app/records"
	"github.com/ppc-network/tasklist/internal/app/tasklist"
	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/health"
	"github.com/ppc-network/tasklist/internal/infra/token"
)

// CallerHeader names the request header carrying the caller identity.
const CallerHeader = token.CallerHeader

// Version is reported by /api/version. Set at startup from the build version.
var Version = "dev"

// Server is the task list HTTP API server.
type Server struct {
	tasks          *tasklist.Service
	hub            *records.Hub
	health         *health.Checker
	tokens         *token.Ledger
	corsOrigins    []string
	metricsEnabled bool
}

// NewServer creates a new API server. hub and checker may be nil.
func NewServer(tasks *tasklist.Service, hub *records.Hub, checker *health.Checker) *Server {
	return &Server{tasks: tasks, hub: hub, health: checker, corsOrigins: []string{"*"}}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetTokenLedger exposes the local reward ledger under /api/rewards and
// serves it as a token service under /token.
func (s *Server) SetTokenLedger(l *token.Ledger) { s.tokens = l }

// SetCORSOrigins restricts the allowed origins. Empty keeps "*".
func (s *Server) SetCORSOrigins(origins []string) {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{
				"version": Version,
			})
		})

		// Regular request/response routes get a timeout; the SSE stream does not.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/balance", s.handleBalance)
			r.Get("/earnings/{address}", s.handleEarnings)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", s.handleListTasks)
				r.Post("/", s.handleCreateTask)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetTask)
					r.Get("/validators", s.handleValidators)
					r.Post("/validators", s.handleAddValidator)
					r.Get("/workers", s.handleWorkers)
					r.Post("/workers", s.handleAddWorker)
					r.Post("/hours", s.handleAddHours)
					r.Get("/hours/{worker}", s.handleGetHours)
					r.Post("/fund", s.handleFund)
					r.Post("/start", s.handleToggleStarted)
					r.Post("/complete", s.handleComplete)
					r.Post("/validate", s.handleValidate)
					r.Get("/records", s.handleTaskRecords)
				})
			})

			r.Get("/records", s.handleListRecords)

			if s.tokens != nil {
				r.Get("/rewards/{address}", s.handleRewardBalance)
			}
		})

		// Live record feed
		if s.hub != nil {
			r.Get("/records/live", s.handleRecordsSSE)
		}
	})

	if s.tokens != nil {
		r.Mount("/token", token.Handler(s.tokens))
	}

	// Prometheus metrics endpoint
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	statuses := s.health.Statuses()
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"checks": statuses,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeTaskError maps an operation error to its HTTP status. TaskErrors
// carry their kind and reason to the client.
func writeTaskError(w http.ResponseWriter, err error) {
	var te *domain.TaskError
	if !errors.As(err, &te) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, statusFor(te.Kind), map[string]any{
		"error": map[string]any{
			"message": err.Error(),
			"type":    domain.KindName(err),
			"reason":  te.Reason,
		},
	})
}

func statusFor(kind error) int {
	switch kind {
	case domain.ErrUnauthorized:
		return http.StatusForbidden
	case domain.ErrRoleConflict, domain.ErrInvalidState:
		return http.StatusConflict
	case domain.ErrInsufficientFunds:
		return http.StatusPaymentRequired
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrInvalidArgument:
		return http.StatusBadRequest
	case domain.ErrMintFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// corsMiddleware adds CORS headers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if !(len(s.corsOrigins) == 1 && s.corsOrigins[0] == "*") {
			origin = ""
			reqOrigin := r.Header.Get("Origin")
			for _, o := range s.corsOrigins {
				if strings.EqualFold(o, reqOrigin) {
					origin = reqOrigin
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+CallerHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
