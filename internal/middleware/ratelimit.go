package middleware

import (
	"net/http" // HTTP status codes
	"strconv"  // Window formatting
	"time"     // Window length

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Structured logging
)

// RateLimit allows max requests per window per client IP, counted in Redis.
// Requests pass when Redis is unavailable.
func RateLimit(rdb *redis.Client, name string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || max <= 0 || window <= 0 {
			c.Next() // Limiting disabled
			return
		}
		// Fixed window key, e.g. ratelimit:auth:127.0.0.1:29012345
		bucket := time.Now().UnixNano() / int64(window)
		key := "ratelimit:" + name + ":" + c.ClientIP() + ":" + strconv.FormatInt(bucket, 10)
		ctx := c.Request.Context()

		pipe := rdb.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Rate limiter unavailable")
			c.Next()
			return
		}
		if incr.Val() > int64(max) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "message": "Too many requests"})
			return
		}
		c.Next()
	}
}
