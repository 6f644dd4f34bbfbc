package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/burntop/burntop/internal/api"
)

// staleClientAge is how long an idle client's limiter survives
const staleClientAge = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a token-bucket limit per client. Authenticated clients
// are keyed by bearer token, anonymous ones by remote IP.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	perMinute int
	burst     int
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*clientLimiter),
		perMinute: perMinute,
		burst:     burst,
	}
}

// Middleware enforces the limit and advertises state via X-RateLimit-*
// headers. Rejections carry a Retry-After hint.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter := rl.limiterFor(clientKey(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))

		reservation := limiter.Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			retryAfter := int(math.Ceil(delay.Seconds()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			api.WriteError(w, r, &api.RateLimitError{RetryAfter: retryAfter})
			return
		}

		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if len(rl.clients) > 1000 {
		for k, c := range rl.clients {
			if now.Sub(c.lastSeen) > staleClientAge {
				delete(rl.clients, k)
			}
		}
	}

	c, ok := rl.clients[key]
	if !ok {
		c = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.perMinute)/60.0), rl.burst),
		}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func clientKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return auth
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
