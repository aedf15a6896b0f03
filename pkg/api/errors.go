package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/eroom/pkg/queue"
)

// writeError maps a domain error to the appropriate HTTP status and a
// {"error": "..."} body.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
