// Package night builds, persists and retrieves the rolling night-window
// snapshot used to backfill rides the live feed no longer reports.
package night

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bus-departures-backend/internal/extract"
	"bus-departures-backend/internal/feed"
	"bus-departures-backend/internal/metrics"
	"bus-departures-backend/internal/store"
	"bus-departures-backend/internal/timeutil"
)

var (
	// ErrOutsideSaveWindow rejects save requests outside the 21:00-22:59
	// French-time window. This is a scheduling guard, not a data error.
	ErrOutsideSaveWindow = errors.New("night-data save is only permitted between 21:00 and 22:59 French time")

	// ErrSnapshotUnavailable marks a snapshot that could not be read. The
	// departures flow treats it as "no augmentation".
	ErrSnapshotUnavailable = errors.New("night snapshot unavailable")
)

// FeedSource provides the live feed envelope.
type FeedSource interface {
	Fetch(ctx context.Context) (*feed.Envelope, error)
}

// SaveResult reports a persisted snapshot.
type SaveResult struct {
	Key     string
	Locator string
}

// Service filters feeds down to the night window at the target stop and
// persists, retrieves and deletes the daily snapshot through the blob store.
type Service struct {
	feed    FeedSource
	blobs   store.Store
	matcher extract.StopMatcher
	logger  zerolog.Logger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewService creates a night-data service.
func NewService(feedSource FeedSource, blobs store.Store, matcher extract.StopMatcher, logger zerolog.Logger, collector *metrics.Collector) *Service {
	return &Service{
		feed:    feedSource,
		blobs:   blobs,
		matcher: matcher,
		logger:  logger.With().Str("component", "night-store").Logger(),
		metrics: collector,
		now:     time.Now,
	}
}

// SnapshotKey returns the dated blob key for the given day.
func SnapshotKey(day time.Time) string {
	return fmt.Sprintf("blablabus_night_%s.json", day.In(timeutil.Paris()).Format("2006-01-02"))
}

// InSaveWindow reports whether the save job may run at the given instant.
func InSaveWindow(t time.Time) bool {
	hour := timeutil.ParisHour(t)
	return hour == 21 || hour == 22
}

// BuildSnapshot prunes the envelope to journeys that serve the target stop
// with an aimed time inside the 23:00-05:59 window. The envelope nesting is
// preserved so the snapshot can be merged back like a live feed.
func (s *Service) BuildSnapshot(envelope *feed.Envelope) *feed.Envelope {
	snapshot := &feed.Envelope{ResponseTimestamp: envelope.ResponseTimestamp}
	for _, delivery := range envelope.Deliveries {
		prunedDelivery := feed.EstimatedTimetableDelivery{ResponseTimestamp: delivery.ResponseTimestamp}
		for _, frame := range delivery.Frames {
			prunedFrame := feed.EstimatedJourneyVersionFrame{RecordedAtTime: frame.RecordedAtTime}
			for i := range frame.Journeys {
				if s.isNightJourney(&frame.Journeys[i]) {
					prunedFrame.Journeys = append(prunedFrame.Journeys, frame.Journeys[i])
				}
			}
			prunedDelivery.Frames = append(prunedDelivery.Frames, prunedFrame)
		}
		snapshot.Deliveries = append(snapshot.Deliveries, prunedDelivery)
	}
	return snapshot
}

// isNightJourney keeps a journey only when it calls at the target stop and
// that call's aimed time falls in the night window.
func (s *Service) isNightJourney(journey *feed.EstimatedVehicleJourney) bool {
	for _, call := range journey.Calls() {
		if !s.matcher.MatchCall(call) {
			continue
		}
		aimedStr := call.AimedTime()
		if aimedStr == "" {
			continue
		}
		aimed, err := timeutil.ParseTimestamp(aimedStr)
		if err != nil {
			s.logger.Warn().Err(err).Msg("unparsable aimed time while filtering night journeys")
			continue
		}
		return extract.NightWindow(aimed)
	}
	return false
}

// SaveNightData fetches the live feed, filters it to the night window and
// persists the snapshot under today's key. Outside the permitted hour window
// it returns ErrOutsideSaveWindow without fetching anything.
func (s *Service) SaveNightData(ctx context.Context) (SaveResult, error) {
	now := s.now()
	if !InSaveWindow(now) {
		return SaveResult{}, ErrOutsideSaveWindow
	}

	envelope, err := s.feed.Fetch(ctx)
	if err != nil {
		s.markSaveError()
		return SaveResult{}, err
	}

	snapshot := s.BuildSnapshot(envelope)
	data, err := json.Marshal(snapshot)
	if err != nil {
		s.markSaveError()
		return SaveResult{}, fmt.Errorf("marshal night snapshot: %w", err)
	}

	key := SnapshotKey(now)
	locator, err := s.blobs.Save(ctx, key, data)
	if err != nil {
		s.markSaveError()
		return SaveResult{}, err
	}

	if s.metrics != nil {
		s.metrics.NightSaves.Inc()
	}
	s.logger.Info().Str("key", key).Int("journeys", len(snapshot.Journeys())).Msg("night snapshot saved")
	return SaveResult{Key: key, Locator: locator}, nil
}

// DeleteNightData removes the previous day's snapshot. A snapshot that was
// never written is tolerated.
func (s *Service) DeleteNightData(ctx context.Context) (string, error) {
	key := SnapshotKey(s.now().AddDate(0, 0, -1))
	if err := s.blobs.Delete(ctx, key); err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.NightDeletes.Inc()
	}
	s.logger.Info().Str("key", key).Msg("night snapshot deleted")
	return key, nil
}

// FetchLatest returns the most recent snapshot envelope. (nil, nil) means no
// snapshot exists; any failure is reported as ErrSnapshotUnavailable so the
// caller can proceed without augmentation.
func (s *Service) FetchLatest(ctx context.Context) (*feed.Envelope, error) {
	data, err := s.blobs.FetchLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err)
	}
	if data == nil {
		return nil, nil
	}

	var envelope feed.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", ErrSnapshotUnavailable, err)
	}
	return &envelope, nil
}

func (s *Service) markSaveError() {
	if s.metrics != nil {
		s.metrics.NightSaveErrs.Inc()
	}
}
