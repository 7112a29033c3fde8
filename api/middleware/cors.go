package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS header values sent on every response.
const (
	AllowOrigin  = "*"
	AllowHeaders = "authorization, x-client-info, apikey, content-type"
)

// CORS sets the CORS headers on every response, whether or not the request
// carries an Origin, and answers preflight OPTIONS requests with 200 and an
// empty body before any other middleware runs.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", AllowOrigin)
		h.Set("Access-Control-Allow-Headers", AllowHeaders)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
