package mockapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// rateLimitMiddleware allows count requests per client IP and window.
// It rejects requests with 429 Too Many Requests once the limit is exceeded.
func rateLimitMiddleware(count int, window time.Duration) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastPrune = time.Now()
	)

	limit := rate.Limit(float64(count) / window.Seconds())

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		// drop idle clients
		if now.Sub(lastPrune) > 5*time.Minute {
			for addr, cli := range clients {
				if now.Sub(cli.lastSeen) > 10*time.Minute {
					delete(clients, addr)
				}
			}
			lastPrune = now
		}

		cli, found := clients[ip]
		if !found {
			cli = &client{limiter: rate.NewLimiter(limit, count)}
			clients[ip] = cli
		}
		cli.lastSeen = now
		limiter := cli.limiter
		mu.Unlock()

		if !limiter.Allow() {
			abortError(c, http.StatusTooManyRequests, "Too many requests", "Too many requests, please try again later")
			return
		}

		c.Next()
	}
}

// loggingMiddleware logs method, path, status, client IP and duration of each request.
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func abortError(c *gin.Context, status int, errText, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   errText,
		"message": message,
	})
}
