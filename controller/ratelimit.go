package controller

import (
	"math"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit 令牌桶限流，rps <= 0 时不限流
func RateLimit(rps float64) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps))))
	return func(c *gin.Context) {
		if !limiter.Allow() {
			ResponsePlainError(c, CodeTooManyRequests)
			return
		}
		c.Next()
	}
}
