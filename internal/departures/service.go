// Package departures orchestrates the departures flow: cache check, feed
// fetch, night-snapshot merge, extraction and range filtering.
package departures

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bus-departures-backend/internal/extract"
	"bus-departures-backend/internal/feed"
	"bus-departures-backend/internal/metrics"
	"bus-departures-backend/internal/model"
	"bus-departures-backend/internal/timeutil"
)

// FeedSource provides the live feed envelope.
type FeedSource interface {
	Fetch(ctx context.Context) (*feed.Envelope, error)
}

// NightSource provides the latest persisted night snapshot, or nil when none
// exists.
type NightSource interface {
	FetchLatest(ctx context.Context) (*feed.Envelope, error)
}

// Service answers departure requests for the single configured station.
type Service struct {
	feed      FeedSource
	night     NightSource
	extractor *extract.Extractor
	cache     *Cache
	station   model.Station
	logger    zerolog.Logger
	metrics   *metrics.Collector

	// refreshMu serializes cache refreshes so concurrent misses trigger a
	// single upstream fetch.
	refreshMu sync.Mutex
}

// NewService wires the departures service.
func NewService(feedSource FeedSource, nightSource NightSource, extractor *extract.Extractor, rideCache *Cache, station model.Station, logger zerolog.Logger, collector *metrics.Collector) *Service {
	return &Service{
		feed:      feedSource,
		night:     nightSource,
		extractor: extractor,
		cache:     rideCache,
		station:   station,
		logger:    logger.With().Str("component", "departures-service").Logger(),
		metrics:   collector,
	}
}

// GetDepartures returns the upcoming rides, optionally bounded by an
// inclusive [from, to] range on the scheduled timestamp.
func (s *Service) GetDepartures(ctx context.Context, from, to *time.Time) (*model.DeparturesResponse, error) {
	rides, ok := s.cache.Get()
	if ok {
		if s.metrics != nil {
			s.metrics.CacheHits.Inc()
		}
	} else {
		if s.metrics != nil {
			s.metrics.CacheMisses.Inc()
		}
		var err error
		rides, err = s.refresh(ctx)
		if err != nil {
			return nil, err
		}
	}

	return &model.DeparturesResponse{
		Rides:   s.filterRange(rides, from, to),
		Station: s.station,
	}, nil
}

// refresh rebuilds the ride list from the upstream feed, augmented with the
// night snapshot when one is available.
func (s *Service) refresh(ctx context.Context) ([]model.Ride, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if rides, ok := s.cache.Get(); ok {
		return rides, nil
	}

	live, err := s.feed.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	envelope := live
	nightMerged := false
	nightEnv, err := s.night.FetchLatest(ctx)
	if err != nil {
		// Missing night data only degrades the response; the live feed
		// still answers the request.
		s.logger.Warn().Err(err).Msg("proceeding without night snapshot")
	} else if nightEnv != nil {
		envelope = live.Merge(nightEnv)
		nightMerged = true
	}

	rides := dedupe(s.extractor.Extract(envelope, nightMerged))
	if s.metrics != nil {
		s.metrics.RidesExtracted.Set(float64(len(rides)))
	}
	s.logger.Info().Int("rides", len(rides)).Bool("night_merged", nightMerged).Msg("ride list refreshed")

	s.cache.Put(rides)
	return rides, nil
}

// dedupe drops later duplicates of the same journey reference. Night
// journeys are merged ahead of live ones, so the first occurrence wins.
// Generated fallback ids are not identities and are never deduplicated.
func dedupe(rides []model.Ride) []model.Ride {
	seen := make(map[string]bool, len(rides))
	deduped := make([]model.Ride, 0, len(rides))
	for _, ride := range rides {
		if !strings.HasPrefix(ride.ID, "blabla-") {
			if seen[ride.ID] {
				continue
			}
			seen[ride.ID] = true
		}
		deduped = append(deduped, ride)
	}
	return deduped
}

// filterRange keeps rides whose scheduled timestamp falls inside the
// inclusive bounds. Rides without a usable timestamp are dropped.
func (s *Service) filterRange(rides []model.Ride, from, to *time.Time) []model.Ride {
	filtered := make([]model.Ride, 0, len(rides))
	for _, ride := range rides {
		ts, err := timeutil.ParseTimestamp(ride.Status.ScheduledTimestamp)
		if err != nil {
			s.logger.Warn().Str("ride", ride.ID).Msg("dropping ride with unusable scheduled timestamp")
			continue
		}
		if from != nil && ts.Before(*from) {
			continue
		}
		if to != nil && ts.After(*to) {
			continue
		}
		filtered = append(filtered, ride)
	}
	return filtered
}
