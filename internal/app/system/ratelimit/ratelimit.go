// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limiter provides rate limiting using a fixed window per key.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a new rate limiter and starts its cleanup loop. Call Stop to
// end the loop.
// limit: maximum requests allowed per duration
// duration: the time window for counting requests
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop(duration * 2)
	return l
}

// Allow checks if a request from the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{
			count:     1,
			expiresAt: now.Add(l.duration),
		}
		return true
	}

	if w.count >= l.limit {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[key]
	if !exists || l.now().After(w.expiresAt) {
		return l.limit
	}

	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// cleanupLoop periodically removes expired entries to prevent memory leaks.
func (l *Limiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for key, w := range l.windows {
				if now.After(w.expiresAt) {
					delete(l.windows, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	// X-Forwarded-For is a comma-separated list; the first entry is the client.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}

// TooMany writes a 429 JSON response with a Retry-After header.
func TooMany(w http.ResponseWriter, retryAfter time.Duration, msg string) {
	secs := int(retryAfter / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": msg,
		"code":  "rate_limited",
	})
}

// PerIP limits requests by client IP. Rejected requests get 429 with a JSON
// body and a Retry-After header.
func PerIP(l *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ClientIP(r)) {
				TooMany(w, l.duration, "too many requests; please wait before trying again")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginLimiter throttles sign-in. Attempts are counted per client IP and per
// account, which covers both spraying from many addresses and guessing at
// one account. Accounts still awaiting signup approval are also held to a
// few successful sign-ins per hour.
type LoginLimiter struct {
	ip      *Limiter
	account *Limiter
	limited *Limiter
}

// NewLoginLimiter allows ipLimit attempts per IP per minute, accountLimit
// attempts per account per five minutes and limitedLimit sign-ins per hour
// for limited accounts.
func NewLoginLimiter(ipLimit, accountLimit, limitedLimit int) *LoginLimiter {
	return &LoginLimiter{
		ip:      New(ipLimit, time.Minute),
		account: New(accountLimit, 5*time.Minute),
		limited: New(limitedLimit, time.Hour),
	}
}

func accountKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Check counts one attempt. When the IP or the account is over its limit it
// returns false and how long the caller should wait.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, time.Duration) {
	if !ll.ip.Allow(ClientIP(r)) {
		return false, ll.ip.duration
	}
	if key := accountKey(email); key != "" && !ll.account.Allow(key) {
		return false, ll.account.duration
	}
	return true, 0
}

// AllowLimited counts a sign-in by a limited account.
func (ll *LoginLimiter) AllowLimited(email string) (bool, time.Duration) {
	if !ll.limited.Allow(accountKey(email)) {
		return false, ll.limited.duration
	}
	return true, 0
}

// ResetAccount clears the attempt count for email after a successful sign-in.
func (ll *LoginLimiter) ResetAccount(email string) {
	ll.account.Reset(accountKey(email))
}

// Stop ends the cleanup loops of all three limiters.
func (ll *LoginLimiter) Stop() {
	ll.ip.Stop()
	ll.account.Stop()
	ll.limited.Stop()
}
