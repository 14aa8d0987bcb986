// Package httpmw holds the chi middleware shared by the public API routes.
package httpmw

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/segment-ctf/app/shared/clock"
	"golang.org/x/time/rate"
)

const (
	// pruneThreshold is the table size above which idle clients are dropped.
	pruneThreshold = 500
	// idleTTL is how long a client may stay quiet before it can be pruned.
	idleTTL = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter hands out one token bucket per remote address.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   rate.Limit
	burst   int
	clock   clock.Clock
}

// NewClientLimiter allows limit requests per second per address with the given burst.
func NewClientLimiter(limit rate.Limit, burst int, clk clock.Clock) *ClientLimiter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &ClientLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		burst:   burst,
		clock:   clk,
	}
}

// Allow consumes a token for addr.
func (l *ClientLimiter) Allow(addr string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.clients) > pruneThreshold {
		cutoff := now.Add(-idleTTL)
		for k, c := range l.clients {
			if c.lastSeen.Before(cutoff) {
				delete(l.clients, k)
			}
		}
	}

	c, ok := l.clients[addr]
	if !ok {
		c = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[addr] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Len reports how many addresses are tracked.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit rejects requests over the per-address budget with 429.
func RateLimit(limiter *ClientLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			addr := remoteHost(r)
			if !limiter.Allow(addr) {
				logger.WarnContext(r.Context(), "Request rate limited",
					slog.String("remote", addr),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORS echoes allowed origins for the read-only API. With no origins configured
// it only short-circuits preflight requests.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				w.Header().Add("Vary", "Origin")
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
