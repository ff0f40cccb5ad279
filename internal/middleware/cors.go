package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	AllowedMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
	}
	AllowedHeaders = []string{"Content-Type", "Authorization", "X-Requested-With"}
)

// CORS allows a single origin with credentials. Requests from any other
// Origin are still served, just without CORS headers, and the browser
// decides whether to expose the response.
func CORS(origin string) gin.HandlerFunc {
	allowed := cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     AllowedMethods,
		AllowHeaders:     AllowedHeaders,
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
	return func(c *gin.Context) {
		requested := c.GetHeader("Origin")
		if requested == "" || requested == origin {
			allowed(c)
			return
		}
		c.Header("Vary", "Origin")
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
