// Package extract projects feed journeys into the Ride response model,
// computing per-ride schedule deviation at the target stop.
package extract

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bus-departures-backend/internal/feed"
	"bus-departures-backend/internal/model"
	"bus-departures-backend/internal/timeutil"
)

// A deviation above this many seconds classifies the ride as LATE.
const lateThresholdSeconds = 300

// NightWindow reports whether t falls in the 23:00-05:59 French local-time
// window the night snapshot covers.
func NightWindow(t time.Time) bool {
	hour := timeutil.ParisHour(t)
	return hour >= 23 || hour < 6
}

// Extractor walks a feed envelope and emits one Ride per journey serving the
// target stop. A malformed journey is logged and skipped; it never aborts
// the batch.
type Extractor struct {
	matcher StopMatcher
	brand   model.Brand
	logger  zerolog.Logger
	now     func() time.Time
}

// NewExtractor creates an extractor for the given stop matcher and line
// brand.
func NewExtractor(matcher StopMatcher, brand model.Brand, logger zerolog.Logger) *Extractor {
	return &Extractor{
		matcher: matcher,
		brand:   brand,
		logger:  logger.With().Str("component", "journey-extractor").Logger(),
		now:     time.Now,
	}
}

// Extract returns the rides for every journey in the envelope that serves
// the target stop, in upstream order. nightMerged tells the extractor
// whether the envelope was augmented with a night snapshot; only then are
// night-window rides tagged as theoretical.
func (e *Extractor) Extract(envelope *feed.Envelope, nightMerged bool) []model.Ride {
	var rides []model.Ride
	journeys := envelope.Journeys()
	for i := range journeys {
		journey := journeys[i]
		if !e.matcher.MatchJourney(&journey) {
			continue
		}

		ride, err := e.ride(&journey, nightMerged)
		if err != nil {
			e.logger.Warn().Err(err).Str("line", journey.LineName()).Msg("skipping journey")
			continue
		}
		rides = append(rides, ride)
	}
	return rides
}

// ride builds a single Ride. Any panic while reading partial feed data is
// converted to an error so one bad record cannot fail the whole batch.
func (e *Extractor) ride(journey *feed.EstimatedVehicleJourney, nightMerged bool) (ride model.Ride, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("journey processing panicked: %v", r)
		}
	}()

	feedCalls := journey.Calls()
	if len(feedCalls) == 0 {
		return model.Ride{}, errors.New("journey has no estimated calls")
	}

	calls := make([]model.Call, 0, len(feedCalls))
	for _, call := range feedCalls {
		calls = append(calls, model.Call{
			Sequence: call.Order,
			Stop:     e.stop(call),
		})
	}

	target, found := e.targetCall(feedCalls)
	if !found {
		return model.Ride{}, errors.New("target stop not found among calls")
	}

	aimedStr := target.AimedTime()
	if aimedStr == "" {
		return model.Ride{}, errors.New("no aimed time for target stop")
	}
	expectedStr := target.ExpectedTime()

	aimed, err := timeutil.ParseTimestamp(aimedStr)
	if err != nil {
		return model.Ride{}, err
	}
	expected, err := timeutil.ParseTimestamp(expectedStr)
	if err != nil {
		return model.Ride{}, err
	}

	deviationSeconds := int(math.Floor(expected.Sub(aimed).Seconds()))
	deviationClass := model.DeviationOnTime
	if deviationSeconds > lateThresholdSeconds {
		deviationClass = model.DeviationLate
	}

	now := e.now()
	ride = model.Ride{
		ID: e.rideID(journey),
		Status: model.Status{
			ScheduledTimestamp: timeutil.NormalizeTimestamp(aimedStr),
			Deviation: model.Deviation{
				DeviationTimestamp: timeutil.NormalizeTimestamp(expectedStr),
				DeviationSeconds:   deviationSeconds,
				DeviationClass:     deviationClass,
				DeviationType:      model.DeviationTypeEstimated,
				UpdatedAt:          now.UTC().Format(time.RFC3339),
			},
		},
		Line: model.Line{
			Code:  e.lineCode(journey),
			Brand: e.brand,
		},
		Calls:               calls,
		TheoreticalSchedule: e.theoreticalSchedule(aimed, nightMerged, now),
	}
	return ride, nil
}

// theoreticalSchedule tags rides whose aimed time falls in the night window,
// provided night-snapshot data was merged into the extraction input. A
// purely live feed always yields real-time rides.
func (e *Extractor) theoreticalSchedule(aimed time.Time, nightMerged bool, now time.Time) model.TheoreticalSchedule {
	if nightMerged && NightWindow(aimed) {
		source := model.NightDataSource
		updated := now.UTC().Format(time.RFC3339)
		return model.TheoreticalSchedule{
			IsTheoretical: true,
			Source:        &source,
			ScheduleType:  model.ScheduleTypeTheoretical,
			LastUpdated:   &updated,
		}
	}
	return model.TheoreticalSchedule{
		ScheduleType: model.ScheduleTypeRealTime,
	}
}

func (e *Extractor) targetCall(calls []feed.EstimatedCall) (feed.EstimatedCall, bool) {
	for _, call := range calls {
		if e.matcher.MatchCall(call) {
			return call, true
		}
	}
	return feed.EstimatedCall{}, false
}

func (e *Extractor) stop(call feed.EstimatedCall) model.Stop {
	id := call.StopRef()
	if id == "" {
		id = "unknown"
	}
	var name string
	if len(call.StopPointName) > 0 {
		name = call.StopPointName[0].Value
	}
	return model.Stop{ID: id, Name: name}
}

func (e *Extractor) lineCode(journey *feed.EstimatedVehicleJourney) string {
	if name := journey.LineName(); name != "" {
		return name
	}
	return "UNKNOWN"
}

// rideID prefers the dated vehicle journey reference. The generated fallback
// is not stable across requests and must not be used as an identity.
func (e *Extractor) rideID(journey *feed.EstimatedVehicleJourney) string {
	if ref := journey.JourneyRef(); ref != "" {
		return ref
	}
	return fmt.Sprintf("blabla-%d-%s", e.now().UnixMilli(), uuid.NewString())
}
