package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bus-departures-backend/internal/night"
)

// SaveNightData handles GET|POST /api/save-night-data. Requests outside the
// permitted evening window are rejected with 400 by design.
func (h *Handler) SaveNightData(c *gin.Context) {
	result, err := h.night.SaveNightData(c.Request.Context())
	if errors.Is(err, night.ErrOutsideSaveWindow) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("night snapshot save failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to save night data",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Night data saved successfully",
		"url":     result.Locator,
		"file":    result.Key,
	})
}

// DeleteNightData handles GET /api/delete-night-data, removing the previous
// day's snapshot.
func (h *Handler) DeleteNightData(c *gin.Context) {
	key, err := h.night.DeleteNightData(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("night snapshot cleanup failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to delete night data",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Night data deleted successfully",
		"fileName": key,
	})
}
