package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"scrapedesk/internal/auth"

	"golang.org/x/time/rate"
	"k8s.io/utils/clock"
)

// RateLimiter hands out one token bucket per client. A client is identified
// by its bearer token, or by its remote host when it sends none.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	clock    clock.PassiveClock
	limiters sync.Map // client key -> *cachedLimiter
}

// RateLimitOption configures a RateLimiter.
type RateLimitOption func(*RateLimiter)

// WithTTL sets how long an idle client's bucket is kept.
func WithTTL(ttl time.Duration) RateLimitOption {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

// WithRateClock sets the clock used for bucket expiry.
func WithRateClock(c clock.PassiveClock) RateLimitOption {
	return func(rl *RateLimiter) { rl.clock = c }
}

// NewRateLimiter allows limit requests per second with the given burst.
// limit <= 0 means unlimited.
func NewRateLimiter(limit float64, burst int, opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		limit: rate.Limit(limit),
		burst: burst,
		ttl:   5 * time.Minute,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Middleware returns the limiting handler wrapper.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// RateLimit=0 means unlimited
			if rl.limit > 0 && !rl.get(clientKey(r)).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	now := rl.clock.Now()
	if v, ok := rl.limiters.Load(key); ok {
		cached := v.(*cachedLimiter)
		if now.Before(cached.expiresAt) {
			return cached.limiter
		}
		// expired, need to create new
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters.Store(key, &cachedLimiter{
		limiter:   limiter,
		expiresAt: now.Add(rl.ttl),
	})
	return limiter
}

func clientKey(r *http.Request) string {
	if token, ok := auth.BearerToken(r.Header.Get("Authorization")); ok {
		return "token:" + auth.HashKey(token)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
