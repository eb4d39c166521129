package middleware

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pdf-chatbot-backend/internal/transport/http/response"
)

// WindowCounter counts hits for a key within the current window and
// reports how long the window has left.
type WindowCounter interface {
	Hit(ctx context.Context, key string) (int64, time.Duration, error)
}

// RateLimit rejects a client once it exceeds limit requests in the counter's
// window. Counter failures let the request through.
func RateLimit(counter WindowCounter, group string, limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		count, remaining, err := counter.Hit(c.Request.Context(), group+":"+c.ClientIP())
		if err != nil {
			slog.Warn("rate limit check failed", "request_id", RequestIDFromContext(c), "error", err)
			c.Next()
			return
		}
		if count <= limit {
			c.Next()
			return
		}

		retryAfter := int(math.Ceil(remaining.Seconds()))
		if retryAfter <= 0 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		response.Error(c, http.StatusTooManyRequests, response.CodeTooManyRequests, "Too many requests")
		c.Abort()
	}
}
