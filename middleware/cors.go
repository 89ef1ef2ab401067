package middleware

import (
	"net/http"

	"vidsense/config"

	"github.com/gin-gonic/gin"
)

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allowed := config.AppConfig.CORS.AllowedOrigins

		for _, o := range allowed {
			if o == "*" || o == origin {
				if o == "*" {
					c.Header("Access-Control-Allow-Origin", "*")
				} else {
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Vary", "Origin")
				}
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, HEAD, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, Range")
				c.Header("Access-Control-Expose-Headers", "Content-Range, Accept-Ranges, Content-Length")
				break
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
