// Package http exposes the projection engine as a JSON API. Handlers
// stay thin: decode, authenticate, call a service, encode.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"tesoreria/internal/services"
)

type Server struct {
	http.Server

	auth        Authenticator
	rateLimiter *rateLimiter

	recurrences *services.RecurrenceService
	projector   *services.Projector
	versioner   *services.Versioner
	amortizer   *services.Amortizer
	propagator  *services.Propagator
	deduper     *services.Deduper

	shutdownOnce sync.Once
}

// Services bundles the engine entry points the server dispatches to.
type Services struct {
	Recurrences *services.RecurrenceService
	Projector   *services.Projector
	Versioner   *services.Versioner
	Amortizer   *services.Amortizer
	Propagator  *services.Propagator
	Deduper     *services.Deduper
}

// NewServer configures routes and returns a ready-to-run server.
func NewServer(addr string, auth Authenticator, svc Services) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		auth:        auth,
		rateLimiter: newRateLimiter(),
		recurrences: svc.Recurrences,
		projector:   svc.Projector,
		versioner:   svc.Versioner,
		amortizer:   svc.Amortizer,
		propagator:  svc.Propagator,
		deduper:     svc.Deduper,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /recurrences", s.wrap(s.handleCreateRecurrence))
	mux.HandleFunc("GET /recurrences", s.wrap(s.handleListRecurrences))
	mux.HandleFunc("POST /recurrences/{id}/end", s.wrap(s.handleEndRecurrence))
	mux.HandleFunc("DELETE /recurrences/{id}", s.wrap(s.handleDeleteRecurrence))
	mux.HandleFunc("POST /recurrences/{id}/project", s.wrap(s.handleProject))
	mux.HandleFunc("POST /recurrences/{id}/amendments", s.wrap(s.handleAmend))
	mux.HandleFunc("GET /recurrences/{id}/amendments", s.wrap(s.handleListAmendments))
	mux.HandleFunc("DELETE /recurrences/{id}/amendments/{version}", s.wrap(s.handleRevert))
	mux.HandleFunc("POST /recurrences/{id}/propagate", s.wrap(s.handlePropagate))

	mux.HandleFunc("POST /loans", s.wrap(s.handleCreateLoan))
	mux.HandleFunc("GET /loans", s.wrap(s.handleListLoans))
	mux.HandleFunc("POST /loans/{id}/installments", s.wrap(s.handleGenerateInstallments))
	mux.HandleFunc("GET /loans/{id}/summary", s.wrap(s.handleLoanSummary))
	mux.HandleFunc("POST /loans/{id}/payments", s.wrap(s.handleRegisterPayment))

	mux.HandleFunc("POST /maintenance/dedupe/transactions", s.wrap(s.handleDedupeTransactions))
	mux.HandleFunc("POST /maintenance/dedupe/recurrences", s.wrap(s.handleDedupeRecurrences))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// wrap adds request logging, rate limiting and owner authentication.
// The resolved owner travels in the request context.
func (s *Server) wrap(next func(w http.ResponseWriter, r *http.Request, ownerID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")

		owner, err := s.auth.Authenticate(r)
		if err != nil {
			slog.WarnContext(ctx, "Unauthenticated request", "url", r.URL.Path, "error", err)
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r, owner)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
