// Package middleware – scheduled-trigger authentication.
//
// This file implements CronAuth, the bearer-secret guard for endpoints that
// external schedulers invoke (e.g. the minutely fetch trigger). The secret is
// a single shared value from configuration; an empty secret leaves the route
// open for local development.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ctxKeyRateBypass marks a request to skip rate limiting. Set by CronAuth on
// successful authentication; read by RateLimiter.Handler.
const ctxKeyRateBypass = "rate.bypass"

// CronAuth returns a Gin middleware enforcing "Authorization: Bearer <secret>"
// on the wrapped routes. Comparison is constant-time. Authenticated callers
// are additionally marked to bypass the rate limiter.
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		const prefix = "Bearer "
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, prefix) ||
			subtle.ConstantTimeCompare([]byte(strings.TrimPrefix(auth, prefix)), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get("X-Request-ID"),
				"code":       "unauthorized",
				"message":    "invalid or missing cron secret",
			})
			return
		}
		c.Set(ctxKeyRateBypass, true)
		c.Next()
	}
}
