package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Window length

	"marketplace/internal/utils" // Redis counter

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// RateLimit allows limit requests per window for each caller (user id, else client IP)
func RateLimit(rdb *redis.Client, name string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Key by user when authenticated, else by IP
		who := c.ClientIP()
		if id, ok := UserID(c); ok {
			who = "u" + strconv.FormatUint(uint64(id), 10)
		}
		key := "ratelimit:" + name + ":" + who
		allowed, err := utils.Allow(c.Request.Context(), rdb, key, limit, window) // Count this request
		if err != nil {
			// Fails open on Redis errors
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("rate limit check failed")
		}
		// Over the limit
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, slow down", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
