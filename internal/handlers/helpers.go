package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// formatTimestamp renders the millisecond timestamp exactly as the
// merchant concatenated it when signing.
func formatTimestamp(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   message,
		"message": message,
		"code":    code,
	})
}
