// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Limiter is a keyed token bucket: each key may spend limit tokens, refilled
// evenly over per. Idle keys are forgotten. It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	every   rate.Limit
	burst   int
	idle    time.Duration
	buckets map[string]*bucket
	swept   time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// New creates a limiter allowing limit requests per duration per key.
func New(limit int, per time.Duration) *Limiter {
	return NewWithClock(limit, per, clockwork.NewRealClock())
}

// NewWithClock is New with an injectable clock.
func NewWithClock(limit int, per time.Duration, clock clockwork.Clock) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		clock:   clock,
		every:   rate.Every(per / time.Duration(limit)),
		burst:   limit,
		idle:    per * 2,
		buckets: make(map[string]*bucket),
		swept:   clock.Now(),
	}
}

// Allow spends one token for key. Returns true if allowed, false if rate
// limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	l.sweepLocked(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Remaining returns how many requests key may still make right now.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		return l.burst
	}
	n := int(b.lim.TokensAt(l.clock.Now()))
	if n < 0 {
		return 0
	}
	return n
}

// Reset clears the limit for key (after a successful sign-in).
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

func (l *Limiter) sweepLocked(now time.Time) {
	if now.Sub(l.swept) < l.idle {
		return
	}
	l.swept = now
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

// LoginLimiter throttles sign-in attempts per client IP and per login id.
type LoginLimiter struct {
	ip    *Limiter
	login *Limiter
}

// Messages shown when a sign-in attempt is throttled.
const (
	MsgTooManyFromIP   = "Demasiados intentos de inicio de sesión. Espera un minuto e inténtalo de nuevo."
	MsgTooManyForLogin = "Demasiados intentos para esta cuenta. Espera unos minutos."
)

// NewLoginLimiter allows 10 attempts per IP per minute and 5 per login id
// per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWithConfig(10, time.Minute, 5, 5*time.Minute, clockwork.NewRealClock())
}

// NewLoginLimiterWithConfig creates a login limiter with custom limits.
func NewLoginLimiterWithConfig(ipLimit int, ipPer time.Duration, loginLimit int, loginPer time.Duration, clock clockwork.Clock) *LoginLimiter {
	return &LoginLimiter{
		ip:    NewWithClock(ipLimit, ipPer, clock),
		login: NewWithClock(loginLimit, loginPer, clock),
	}
}

// Check reports whether a sign-in attempt may proceed and, if not, the
// message to show.
func (ll *LoginLimiter) Check(r *http.Request, loginID string) (bool, string) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, MsgTooManyFromIP
	}
	if key := normalize(loginID); key != "" {
		if !ll.login.Allow(key) {
			return false, MsgTooManyForLogin
		}
	}
	return true, ""
}

// ResetLogin clears the per-account limit after a successful sign-in.
func (ll *LoginLimiter) ResetLogin(loginID string) {
	if key := normalize(loginID); key != "" {
		ll.login.Reset(key)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
