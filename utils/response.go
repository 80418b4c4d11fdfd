package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"friendgraph/relationship"
)

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": message})
}

func NotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"error": message})
}

func InternalError(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

// RelationshipError maps an engine error onto the JSON envelope, always
// including the re-checked status so the client can reconcile its view even
// when the action failed.
func RelationshipError(c *gin.Context, err error, status interface{}) {
	var invalid *relationship.InvalidTransitionError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error":  invalid.Error(),
			"hint":   invalid.Hint,
			"status": status,
		})
	case errors.Is(err, relationship.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "status": status})
	case relationship.IsRetryable(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "store unavailable, retry",
			"retryable": true,
			"status":    status,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "status": status})
	}
}
