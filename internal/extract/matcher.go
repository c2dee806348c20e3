package extract

import (
	"strings"

	"bus-departures-backend/internal/feed"
)

// StopMatcher identifies the target stop among a journey's stop names. A
// name matches when it contains every configured substring,
// case-insensitively.
type StopMatcher struct {
	substrings []string
}

// NewStopMatcher builds a matcher from the configured substrings
// (e.g. "montpellier" and "sabine").
func NewStopMatcher(substrings []string) StopMatcher {
	lowered := make([]string, 0, len(substrings))
	for _, s := range substrings {
		lowered = append(lowered, strings.ToLower(s))
	}
	return StopMatcher{substrings: lowered}
}

// MatchName reports whether a single stop name denotes the target stop.
func (m StopMatcher) MatchName(name string) bool {
	if len(m.substrings) == 0 {
		return false
	}
	lowered := strings.ToLower(name)
	for _, sub := range m.substrings {
		if !strings.Contains(lowered, sub) {
			return false
		}
	}
	return true
}

// MatchCall reports whether any of the call's stop names matches.
func (m StopMatcher) MatchCall(call feed.EstimatedCall) bool {
	for _, name := range call.StopPointName {
		if m.MatchName(name.Value) {
			return true
		}
	}
	return false
}

// MatchJourney reports whether the journey serves the target stop.
func (m StopMatcher) MatchJourney(journey *feed.EstimatedVehicleJourney) bool {
	for _, call := range journey.Calls() {
		if m.MatchCall(call) {
			return true
		}
	}
	return false
}
