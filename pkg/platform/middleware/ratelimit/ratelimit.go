// Package ratelimit throttles unauthenticated endpoints per client IP using
// token buckets from golang.org/x/time/rate.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	request "provenant/pkg/platform/middleware/request"
	"provenant/pkg/requestcontext"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Middleware keeps one token bucket per client IP.
type Middleware struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	logger   *slog.Logger
	disabled bool
	now      func() time.Time
}

type Option func(*Middleware)

// WithDisabled disables rate limiting entirely (for testing/demo mode).
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

// WithIdleTTL sets how long an idle IP's bucket is retained.
func WithIdleTTL(ttl time.Duration) Option {
	return func(m *Middleware) {
		m.idleTTL = ttl
	}
}

// WithClock overrides the time source used for eviction.
func WithClock(now func() time.Time) Option {
	return func(m *Middleware) {
		m.now = now
	}
}

// New allows perMinute requests per IP with the given burst.
func New(perMinute, burst int, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

func (m *Middleware) limiterFor(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	v, ok := m.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Sweep drops buckets idle longer than the configured TTL.
func (m *Middleware) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.idleTTL)
	removed := 0
	for ip, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(m.visitors, ip)
			removed++
		}
	}
	return removed
}

// Handler rejects requests over the per-IP budget with 429.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := requestcontext.ClientIP(ctx)
		if !m.limiterFor(ip).Allow() {
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"request_id", request.GetRequestID(ctx),
			)
			retryAfter := 1
			if m.limit > 0 {
				retryAfter = max(1, int(1/float64(m.limit)))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"too_many_requests","error_description":"Rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
