// Package http exposes the ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"lifeledger/internal/middleware/ratelimit"
	"lifeledger/internal/middleware/trace"
	"lifeledger/internal/services"
)

type Server struct {
	http.Server
	svc          *services.LedgerService
	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures the API routes and returns a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, requestsPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		svc: svc,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: requestsPerMinute,
		}),
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/income", s.handleGetIncome)
	mux.HandleFunc("PUT /api/income", s.handleUpdateIncome)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleAddExpense)
	mux.HandleFunc("PATCH /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleRemoveExpense)
	mux.HandleFunc("POST /api/expenses/{id}/ignore", s.handleToggleIgnore)
	mux.HandleFunc("POST /api/expenses/reset", s.handleResetExpenses)
	mux.HandleFunc("GET /api/expenses/check", s.handleCheckSavingChange)

	mux.HandleFunc("GET /api/month/view", s.handleViewState)
	mux.HandleFunc("POST /api/month/view", s.handleSetViewMonth)
	mux.HandleFunc("POST /api/month/view/previous", s.handleViewPrevious)
	mux.HandleFunc("POST /api/month/view/next", s.handleViewNext)
	mux.HandleFunc("POST /api/month/close", s.handleCloseMonth)
	mux.HandleFunc("POST /api/month/revert", s.handleRevertMonth)
	mux.HandleFunc("GET /api/history", s.handleHistory)

	mux.HandleFunc("GET /api/savings", s.handleGetSavings)
	mux.HandleFunc("POST /api/savings/manual", s.handleManualSavings)
	mux.HandleFunc("PUT /api/savings/balance", s.handleSetSavingsBalance)
	mux.HandleFunc("POST /api/savings/reset", s.handleResetSavings)

	mux.HandleFunc("GET /api/analyze", s.handleAnalyze)

	mux.HandleFunc("GET /api/backup", s.handleExportBackup)
	mux.HandleFunc("POST /api/backup", s.handleImportBackup)

	tracer := trace.NewMiddleware(clientIP)
	limited := s.rateLimiter.Middleware(clientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: tracer.Middleware(limited(mux)),
	}

	return s
}

// Shutdown stops the rate limiter's cleanup goroutine along with the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// clientIP extracts the caller address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i > 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
