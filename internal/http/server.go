package http

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jbprestor/Finance-Tracker-App/internal/ledger"
	applog "github.com/jbprestor/Finance-Tracker-App/internal/log"
	"github.com/jbprestor/Finance-Tracker-App/internal/registry"
)

type Server struct {
	http.Server
	engine      *ledger.Engine
	registry    *registry.Registry
	rateLimiter *rateLimiter

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires the JSON API routes and returns a ready-to-run server.
func NewServer(addr string, engine *ledger.Engine, reg *registry.Registry, logger *applog.Logger) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 5 * time.Second,
		},
		engine:      engine,
		registry:    reg,
		rateLimiter: newRateLimiter(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	mux.HandleFunc("GET /api/users/{id}", s.handleGetUser)
	mux.HandleFunc("PATCH /api/users/{id}", s.handleUpdateProfile)

	mux.HandleFunc("POST /api/users/{id}/transactions", s.handleRecordTransaction)
	mux.HandleFunc("GET /api/users/{id}/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/users/{id}/statistics", s.handleStatistics)

	mux.HandleFunc("POST /api/users/{id}/wallets", s.handleAddWallet)
	mux.HandleFunc("GET /api/users/{id}/wallets", s.handleListWallets)
	mux.HandleFunc("PUT /api/users/{id}/wallets/{walletID}", s.handleUpdateWallet)
	mux.HandleFunc("DELETE /api/users/{id}/wallets/{walletID}", s.handleDeleteWallet)

	mux.HandleFunc("POST /api/users/{id}/bills", s.handleAddBill)
	mux.HandleFunc("GET /api/users/{id}/bills", s.handleListBills)

	var handler http.Handler = mux
	handler = s.withRateLimit(handler)
	if logger != nil {
		handler = applog.Middleware(logger)(handler)
	}
	handler = withSecurityHeaders(handler)
	s.Handler = handler

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and then drains the
// HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(requestIP(r)) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
