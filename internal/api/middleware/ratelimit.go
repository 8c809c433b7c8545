package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/torquehq/torque/internal/logger"
	"github.com/torquehq/torque/internal/metrics"
)

// RateLimiter is a token bucket bounding how fast one client can push
// work onto the dispatch core's ingress path. The core itself enforces no
// throttling of its own (backpressure is the worker pool's concurrency
// cap, not the queue's admission rate); this is that ingress-side limit.
type RateLimiter struct {
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a rate limiter admitting up to rps enqueue
// requests per second, with a burst equal to one second's budget.
func NewRateLimiter(rps int) *RateLimiter {
	if rps <= 0 {
		rps = 1000 // default
	}
	return &RateLimiter{
		tokens:     float64(rps),
		maxTokens:  float64(rps),
		refillRate: float64(rps),
		lastRefill: time.Now(),
	}
}

// Allow reports whether one more request is admitted right now.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// clientEntry pairs a client's bucket with the last time it was touched,
// so idle eviction can tell a quiet client (safe to drop) from a busy one
// (would lose its accumulated burst budget if reset).
type clientEntry struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// ClientRateLimiter maintains one RateLimiter per ingress client, keyed by
// the caller-supplied client identifier (see ClientRateLimit). A single
// shared credential authenticates every caller per the ingress contract,
// so per-client here means per source address, not per tenant — Torque
// has no tenant concept to isolate.
type ClientRateLimiter struct {
	entries map[string]*clientEntry
	rps     int
	mu      sync.RWMutex
	idleTTL time.Duration
}

// NewClientRateLimiter creates a per-client rate limiter. Entries idle for
// longer than idleTTL are evicted on each cleanup tick rather than wiping
// every client's accumulated burst budget on a fixed schedule, so an
// active integration never has its bucket reset out from under it.
func NewClientRateLimiter(rps int) *ClientRateLimiter {
	crl := &ClientRateLimiter{
		entries: make(map[string]*clientEntry),
		rps:     rps,
		idleTTL: 5 * time.Minute,
	}
	go crl.cleanupLoop()
	return crl
}

func (crl *ClientRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(crl.idleTTL)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-crl.idleTTL)
		crl.mu.Lock()
		for id, entry := range crl.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(crl.entries, id)
			}
		}
		crl.mu.Unlock()
	}
}

// GetLimiter returns the bucket for clientID, creating one on first sight.
func (crl *ClientRateLimiter) GetLimiter(clientID string) *RateLimiter {
	now := time.Now()

	crl.mu.RLock()
	entry, exists := crl.entries[clientID]
	crl.mu.RUnlock()

	if exists {
		crl.mu.Lock()
		entry.lastSeen = now
		crl.mu.Unlock()
		return entry.limiter
	}

	crl.mu.Lock()
	defer crl.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists = crl.entries[clientID]; exists {
		entry.lastSeen = now
		return entry.limiter
	}

	entry = &clientEntry{limiter: NewRateLimiter(crl.rps), lastSeen: now}
	crl.entries[clientID] = entry
	return entry.limiter
}

// ingressExempt lists paths that must keep working regardless of ingress
// load: a saturated enqueue path is exactly when an operator most needs
// health and metrics scraping to keep answering.
var ingressExempt = map[string]bool{
	"/admin/health": true,
	"/metrics":      true,
}

// ClientRateLimit returns a middleware that enforces per-client rate
// limiting on the ingress surface described in §6 (enqueue, inspect,
// delete, purge, stats) while leaving operational probes unthrottled.
func ClientRateLimit(rps int) func(next http.Handler) http.Handler {
	limiter := NewClientRateLimiter(rps)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ingressExempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Use X-Forwarded-For or RemoteAddr as client identifier
			clientID := r.Header.Get("X-Forwarded-For")
			if clientID == "" {
				clientID = r.RemoteAddr
			}

			clientLimiter := limiter.GetLimiter(clientID)
			if !clientLimiter.Allow() {
				metrics.RecordRateLimitRejection()
				logger.Warn().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("client", clientID).
					Msg("client rate limit exceeded")

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too Many Requests","message":"rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
