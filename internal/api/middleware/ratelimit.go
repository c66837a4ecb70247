package middleware

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nikhilbhutani/reportportal/internal/auth"
)

const idleVisitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token bucket per client. Authenticated requests are
// keyed by user id, anonymous ones by the connection's peer IP. Forwarding
// headers are never trusted for the key.
type RateLimiter struct {
	name     string
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	metrics  *HTTPMetrics
	now      func() time.Time
}

func NewRateLimiter(name string, limit rate.Limit, burst int, metrics *HTTPMetrics) *RateLimiter {
	rl := &RateLimiter{
		name:     name,
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		metrics:  metrics,
		now:      time.Now,
	}
	go rl.cleanup()
	return rl
}

// PerMinute is a helper for limits expressed as requests per minute.
func PerMinute(n int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(n))
}

func clientKey(r *http.Request) string {
	if u := auth.UserFromContext(r.Context()); u != nil {
		return "user:" + u.ID.String()
	}
	addr := PeerFromContext(r.Context())
	if addr == "" {
		addr = r.RemoteAddr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return "ip:" + host
}

func (rl *RateLimiter) reserve(key string) *rate.Reservation {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.ReserveN(now, 1)
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.reserve(clientKey(r))
		now := rl.now()
		if delay := res.DelayFrom(now); delay > 0 {
			res.CancelAt(now)
			rl.metrics.rateLimited(rl.name)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.evictIdle()
	}
}

func (rl *RateLimiter) evictIdle() {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > idleVisitorTTL {
			delete(rl.visitors, key)
		}
	}
}
