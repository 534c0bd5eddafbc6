package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/samuelozorio/nextpage-mvp-sub000/internal/httpx"
)

const defaultMaxTrackedIPs = 10000

type window struct {
	count int
	ends  time.Time
}

// IPRateLimiter allows limit requests per client IP per window. At most
// maxEntries IPs are tracked; expired windows are pruned when the table is
// full, and if that frees nothing the oldest window is evicted.
type IPRateLimiter struct {
	mu         sync.Mutex
	limit      int
	window     time.Duration
	maxEntries int
	windows    map[string]window
	now        func() time.Time
}

func NewIPRateLimiter(limit int, per time.Duration) *IPRateLimiter {
	return NewIPRateLimiterWithMaxEntries(limit, per, defaultMaxTrackedIPs)
}

func NewIPRateLimiterWithMaxEntries(limit int, per time.Duration, maxEntries int) *IPRateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if per <= 0 {
		per = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxTrackedIPs
	}
	return &IPRateLimiter{
		limit:      limit,
		window:     per,
		maxEntries: maxEntries,
		windows:    map[string]window{},
		now:        time.Now,
	}
}

func (rl *IPRateLimiter) Middleware(message string) func(http.Handler) http.Handler {
	if message == "" {
		message = "Rate limit exceeded"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientIP(r.RemoteAddr)) {
				httpx.WriteError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", message, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *IPRateLimiter) allow(ip string) bool {
	if ip == "" {
		ip = "unknown"
	}
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.windows[ip]
	if !ok && len(rl.windows) >= rl.maxEntries {
		rl.evict(now)
	}
	if entry.ends.Before(now) {
		entry = window{ends: now.Add(rl.window)}
	}
	entry.count++
	rl.windows[ip] = entry
	return entry.count <= rl.limit
}

func (rl *IPRateLimiter) evict(now time.Time) {
	var (
		oldestIP  string
		oldestEnd time.Time
	)
	for ip, w := range rl.windows {
		if w.ends.Before(now) {
			delete(rl.windows, ip)
			continue
		}
		if oldestIP == "" || w.ends.Before(oldestEnd) {
			oldestIP, oldestEnd = ip, w.ends
		}
	}
	if len(rl.windows) >= rl.maxEntries && oldestIP != "" {
		delete(rl.windows, oldestIP)
	}
}

func (rl *IPRateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
