package nftmarket

import (
	"github.com/everFinance/nftmarket/referral"
	"github.com/gin-gonic/gin"
)

// RefCaptureMiddleware hands the query of every request to the pipeline,
// each request is a page visit that may carry a referral code.
func RefCaptureMiddleware(p *referral.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		p.ObserveURL(c.Request.URL.Query())
		c.Next()
	}
}
