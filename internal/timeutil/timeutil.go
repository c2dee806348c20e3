// Package timeutil normalizes feed timestamps and answers French local-time
// questions for the scheduling and caching policies.
package timeutil

import (
	"fmt"
	"regexp"
	"time"
)

// The feed occasionally encodes the zone as a space-separated numeric suffix
// ("2025-04-11T20:05:00 +0200") instead of a colon-separated ISO offset.
var looseOffsetRe = regexp.MustCompile(`\s([+-])(\d{2})(\d{2})$`)

var paris *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		// tzdata is compiled in on all deployment targets.
		panic(fmt.Sprintf("load Europe/Paris location: %v", err))
	}
	paris = loc
}

// Paris returns the Europe/Paris location.
func Paris() *time.Location {
	return paris
}

// NormalizeTimestamp rewrites a trailing " +0200"/" +0100" style offset into
// the colon-separated form RFC 3339 parsers accept. Any other input is
// returned unchanged.
func NormalizeTimestamp(s string) string {
	if s == "" {
		return s
	}
	return looseOffsetRe.ReplaceAllString(s, "$1$2:$3")
}

// ParseTimestamp normalizes and parses a feed timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	normalized := NormalizeTimestamp(s)
	t, err := time.Parse(time.RFC3339, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// FrenchOffsetHours returns the UTC offset of French local time at the given
// instant, in whole hours (+1 in winter, +2 in summer).
func FrenchOffsetHours(t time.Time) int {
	_, offset := t.In(paris).Zone()
	return offset / 3600
}

// ParisHour returns the hour of day (0-23) of the given instant in French
// local time.
func ParisHour(t time.Time) int {
	return t.In(paris).Hour()
}
