// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration // buckets untouched this long are dropped
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New allows burst requests per key, refilled evenly over per.
func New(burst int, per time.Duration) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(per / time.Duration(burst)),
		burst:   burst,
		idle:    per * 2,
		now:     time.Now,
	}
}

// Allow reports whether one more request for key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Reset forgets key, e.g. after a successful sign-in.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// sweep drops idle buckets. Caller holds mu.
func (l *Limiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.seen) > l.idle {
			delete(l.buckets, k)
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// SignInLimiter throttles sign-in attempts per client IP and per email.
type SignInLimiter struct {
	ip    *Limiter
	email *Limiter
}

// NewSignInLimiter allows perMinute attempts per IP per minute and a fifth of
// that (at least one) per email.
func NewSignInLimiter(perMinute int) *SignInLimiter {
	if perMinute < 1 {
		perMinute = 10
	}
	perEmail := perMinute / 2
	if perEmail < 1 {
		perEmail = 1
	}
	return &SignInLimiter{
		ip:    New(perMinute, time.Minute),
		email: New(perEmail, 5*time.Minute),
	}
}

// Check returns false and a user-visible reason when the attempt is throttled.
func (s *SignInLimiter) Check(r *http.Request, email string) (bool, string) {
	if !s.ip.Allow(ClientIP(r)) {
		return false, "Too many sign-in attempts. Please wait a minute before trying again."
	}
	if key := strings.ToLower(strings.TrimSpace(email)); key != "" && !s.email.Allow(key) {
		return false, "Too many sign-in attempts for this account. Please wait a few minutes."
	}
	return true, ""
}

// Succeeded clears the per-email budget.
func (s *SignInLimiter) Succeeded(email string) {
	s.email.Reset(strings.ToLower(strings.TrimSpace(email)))
}
