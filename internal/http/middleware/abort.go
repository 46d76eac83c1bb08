package middleware

import "github.com/gin-gonic/gin"

// abortError stops the chain with the same {request_id, code, message}
// envelope the handlers write.
func abortError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
