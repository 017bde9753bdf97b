package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"github.com/fitpulse/fitpulse-backend/pkg/logger"
)

// respondError maps service errors onto the REST surface. AppErrors carry
// their own status and reason code; anything else is a 500.
func respondError(c *gin.Context, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		c.JSON(appErr.Code, gin.H{"error": appErr.Message, "reason": appErr.Reason})
		return
	}

	logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled handler error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "reason": "internal_error"})
}
