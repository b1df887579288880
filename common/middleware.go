package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

var ErrTooManyRequests = errors.New("err_limit_exceeded")

// LimiterMiddleware limits requests per client ip. period is one of "S", "M", "H", "D".
// Clients listed in whitelist are never limited.
func LimiterMiddleware(limit int, period string, whitelist []string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(fmt.Sprintf("%d-%s", limit, period))
	if err != nil {
		panic(err)
	}
	excluded := make(map[string]struct{}, len(whitelist))
	for _, ip := range whitelist {
		excluded[ip] = struct{}{}
	}

	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate),
		mgin.WithKeyGetter(func(c *gin.Context) string {
			return c.ClientIP()
		}),
		mgin.WithExcludedKey(func(ip string) bool {
			_, ok := excluded[ip]
			return ok
		}),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": ErrTooManyRequests.Error(),
			})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Error("rate limiter store failed", "err", err)
			c.Next()
		}),
	)
}

// CORSMiddleware lets the web front end reach the api from any origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Request-Id")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
