package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GetDepartures handles GET /api/departures?from=<ISO8601>&to=<ISO8601>.
func (h *Handler) GetDepartures(c *gin.Context) {
	from, ok := h.parseTimeParam(c, "from")
	if !ok {
		return
	}
	to, ok := h.parseTimeParam(c, "to")
	if !ok {
		return
	}

	resp, err := h.departures.GetDepartures(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error().Err(err).Msg("departures request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message": "Failed to retrieve departure data",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// parseTimeParam reads an optional RFC 3339 query parameter. On malformed
// input it writes a 400 response and reports failure.
func (h *Handler) parseTimeParam(c *gin.Context, name string) (*time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return nil, true
	}

	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Invalid '" + name + "' timestamp format. Use ISO 8601.",
		})
		return nil, false
	}
	return &parsed, true
}
