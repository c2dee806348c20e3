package api

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bus-departures-backend/config"
	"bus-departures-backend/internal/metrics"
	"bus-departures-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, collector *metrics.Collector, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/departures", handler.GetDepartures)

		// The save job is normally driven by the in-process scheduler; the
		// routes remain for externally scheduled invocations.
		api.GET("/save-night-data", handler.SaveNightData)
		api.POST("/save-night-data", handler.SaveNightData)
		api.GET("/delete-night-data", handler.DeleteNightData)

		api.GET("/health", handler.GetHealth)
	}

	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	return r
}
