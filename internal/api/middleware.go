package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/terra-clan/simulex-engine/internal/auth"
)

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	verifier *auth.Verifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(verifier *auth.Verifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Authenticate verifies the bearer token from the Authorization header, or
// from the token query parameter for WebSocket upgrades
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.verifier.Verify(auth.TokenFromRequest(r))
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				respondError(w, http.StatusUnauthorized, "unauthorized", "provide Authorization header with Bearer token")
				return
			}
			m.logger.Warn("invalid token", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "unauthorized", "the provided token is not valid")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// visitor pairs a limiter with the last time its user was seen
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-user token bucket
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
}

// NewRateLimiter allows perMinute requests per user with the given burst.
// perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	l := &RateLimiter{
		limit:    rate.Inf,
		burst:    burst,
		visitors: make(map[string]*visitor),
	}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if l.burst < 1 {
		l.burst = 1
	}
	return l
}

// Allow reports whether key may make another request now
func (l *RateLimiter) Allow(key string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()

	return v.limiter.Allow()
}

// Sweep forgets users not seen since before cutoff
func (l *RateLimiter) Sweep(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(l.visitors, key)
		}
	}
}

// Run sweeps idle users every minute until ctx is done
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.Sweep(now.Add(-5 * time.Minute))
		}
	}
}

// Limit rejects requests of users over their allowance
func (l *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if user := auth.UserFromContext(r.Context()); user != nil {
			key = user.ID
		}

		if !l.Allow(key) {
			w.Header().Set("Retry-After", "60")
			respondError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}
