package api

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"bus-departures-backend/internal/model"
	"bus-departures-backend/internal/night"
)

// DeparturesService answers departure queries.
type DeparturesService interface {
	GetDepartures(ctx context.Context, from, to *time.Time) (*model.DeparturesResponse, error)
}

// NightDataService runs the snapshot save and cleanup operations.
type NightDataService interface {
	SaveNightData(ctx context.Context) (night.SaveResult, error)
	DeleteNightData(ctx context.Context) (string, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	departures DeparturesService
	night      NightDataService
	logger     zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(departures DeparturesService, nightSvc NightDataService, logger zerolog.Logger) *Handler {
	return &Handler{
		departures: departures,
		night:      nightSvc,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}
