package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/FACorreiaa/statement-tracker/internal/server/respond"
)

// clientLimiter tracks one client's token bucket and its last use for pruning.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit applies a per-client token bucket keyed by client IP. rps is the
// sustained refill rate, burst the bucket size. Idle buckets are pruned after
// ten minutes.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		clients = make(map[string]*clientLimiter)
	)

	prune := func(now time.Time) {
		for ip, cl := range clients {
			if now.Sub(cl.lastSeen) > 10*time.Minute {
				delete(clients, ip)
			}
		}
	}

	return func(c *gin.Context) {
		if rps <= 0 || burst <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()

		mu.Lock()
		cl, ok := clients[ip]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[ip] = cl
		}
		now := time.Now()
		cl.lastSeen = now
		if len(clients) > 1024 {
			prune(now)
		}
		mu.Unlock()

		if !cl.limiter.Allow() {
			c.Header("Retry-After", "1")
			respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests", nil)
			return
		}
		c.Next()
	}
}
