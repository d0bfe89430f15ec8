package api

import "github.com/gin-gonic/gin"

// respondError sends a structured JSON error response
func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"message": message,
			"status":  code,
		},
	})
	c.Abort()
}

// respondFailure is respondError with the failure kind attached
func respondFailure(c *gin.Context, code int, kind string, message string) {
	c.JSON(code, gin.H{
		"error": gin.H{
			"message": message,
			"status":  code,
			"kind":    kind,
		},
	})
	c.Abort()
}
