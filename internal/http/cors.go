package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/tbourn/medremind-core/internal/http/handlers"
	"github.com/tbourn/medremind-core/internal/http/middleware"
)

var (
	corsMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	corsAllowHeaders = []string{
		"Origin", "Content-Type", "Accept",
		handlers.HeaderPIN, handlers.HeaderResetCode, middleware.HeaderIdempotencyKey,
	}
	corsExposeHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"}
)

// corsMiddleware returns the CORS chain for the configured origins. With no
// allowlist every origin is accepted without credentials and the wildcard
// is sent even on same-origin requests. With an allowlist a listed Origin is
// echoed back and the session cookie may travel cross-site.
func corsMiddleware(origins []string) []gin.HandlerFunc {
	base := cors.Config{
		AllowMethods:  corsMethods,
		AllowHeaders:  corsAllowHeaders,
		ExposeHeaders: corsExposeHeaders,
		MaxAge:        12 * time.Hour,
	}

	if len(origins) == 0 {
		base.AllowAllOrigins = true
		wildcard := func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		}
		return []gin.HandlerFunc{wildcard, cors.New(base)}
	}

	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	echo := func(c *gin.Context) {
		if o := c.GetHeader("Origin"); allowed[o] {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", o)
			h.Add("Vary", "Origin")
		}
		c.Next()
	}
	base.AllowOrigins = origins
	base.AllowCredentials = true
	return []gin.HandlerFunc{echo, cors.New(base)}
}
