package model

// Location is a latitude/longitude pair.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Stop describes one stop served by a journey. It is derived per-call from
// feed data and never persisted.
type Stop struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        *string   `json:"type"`
	Timezone    *string   `json:"timezone"`
	Description *string   `json:"description"`
	City        *string   `json:"city"`
	Location    *Location `json:"location"`
}

// Call is one stop visit within a ride. Arrival and departure are reserved
// for future enrichment and currently always null.
type Call struct {
	Sequence  int     `json:"sequence"`
	Stop      Stop    `json:"stop"`
	Arrival   *string `json:"arrival"`
	Departure *string `json:"departure"`
}

// Brand identifies the operator brand of a line.
type Brand struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Line describes the commercial line a ride belongs to.
type Line struct {
	Code  string  `json:"code"`
	Name  *string `json:"name"`
	Brand Brand   `json:"brand"`
}

// Deviation classes. Only LATE and ON_TIME are currently produced; the
// remaining values are reserved.
const (
	DeviationLate      = "LATE"
	DeviationOnTime    = "ON_TIME"
	DeviationEarly     = "EARLY"
	DeviationCancelled = "CANCELLED"
	DeviationUnknown   = "UNKNOWN"
	DeviationDelayed   = "DELAYED"
)

// DeviationTypeEstimated is the only deviation type the feed produces.
const DeviationTypeEstimated = "ESTIMATED"

// Deviation is the signed difference between expected and aimed time at the
// target stop.
type Deviation struct {
	DeviationTimestamp string  `json:"deviation_timestamp"`
	DeviationSeconds   int     `json:"deviation_seconds"`
	Reason             *string `json:"reason"`
	DeviationClass     string  `json:"deviation_class"`
	DeviationType      string  `json:"deviation_type"`
	UpdatedAt          string  `json:"updated_at"`
}

// Status carries the scheduled time and deviation of a ride at the target
// stop.
type Status struct {
	Segment            *string   `json:"segment"`
	Progress           *string   `json:"progress"`
	ScheduledTimestamp string    `json:"scheduled_timestamp"`
	Deviation          Deviation `json:"deviation"`
}

// Schedule types for TheoreticalSchedule.
const (
	ScheduleTypeTheoretical = "THEORETICAL"
	ScheduleTypeRealTime    = "REAL_TIME"
)

// NightDataSource is the source tag for rides backfilled from the persisted
// night snapshot.
const NightDataSource = "night_data"

// TheoreticalSchedule marks whether a ride originated from the persisted
// night snapshot rather than the live feed.
type TheoreticalSchedule struct {
	IsTheoretical bool    `json:"is_theoretical"`
	Source        *string `json:"source"`
	ScheduleType  string  `json:"schedule_type"`
	LastUpdated   *string `json:"last_updated"`
}

// Vehicle is reserved; the feed does not describe vehicles.
type Vehicle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ride is one departure serving the target station. Rides are produced fresh
// on every extraction pass and never mutated after construction.
type Ride struct {
	ID                  string              `json:"id"`
	Status              Status              `json:"status"`
	Platform            *string             `json:"platform"`
	Line                Line                `json:"line"`
	Location            *Location           `json:"location"`
	Calls               []Call              `json:"calls"`
	Vehicle             *Vehicle            `json:"vehicle"`
	TheoreticalSchedule TheoreticalSchedule `json:"theoretical_schedule"`
}

// Station is the static descriptor of the single station this service
// covers.
type Station struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

// DeparturesResponse is the payload of GET /api/departures.
type DeparturesResponse struct {
	Rides   []Ride  `json:"rides"`
	Station Station `json:"station"`
}
