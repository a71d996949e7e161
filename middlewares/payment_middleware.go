package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yeremiapane/restaurant-reservation/utils"
)

// PaymentSecurityHeaders adds security headers for payment endpoints
func PaymentSecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Cache-Control", "no-store")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// PaymentRateLimiter caps the whole payment route group at perSecond
// requests with the given burst. Processors retry on 429, so nothing is lost.
func PaymentRateLimiter(perSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			utils.RespondErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "too many payment requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

// LogPaymentRequest logs payment request details
func LogPaymentRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		utils.InfoLogger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Info("payment request")
	}
}
