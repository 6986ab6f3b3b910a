package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response
func JSONError(c *gin.Context, status int, err error, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"error":   err.Error(),
	})
}

// JSONRetryableError sends an error response telling the client it may retry
// after the given number of seconds
func JSONRetryableError(c *gin.Context, status int, err error, message string, retryAfterSeconds int) {
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	c.JSON(status, gin.H{
		"status":    status,
		"message":   message,
		"error":     err.Error(),
		"retryable": true,
	})
}
