// Package feed models the BlaBlaBus estimated-timetable feed and downloads
// it from the upstream zip archive.
package feed

// The upstream payload is a SIRI estimated-timetable delivery serialized as
// camelCase JSON, with refs and names wrapped in {"value": ...} objects.
// Every field is optional; defensive handling lives in the extraction layer.

// Ref wraps a SIRI reference value.
type Ref struct {
	Value string `json:"value"`
}

// LocalizedString wraps a SIRI natural-language string.
type LocalizedString struct {
	Value string `json:"value"`
}

// Envelope is the top-level feed payload.
type Envelope struct {
	ResponseTimestamp string                       `json:"responseTimestamp,omitempty"`
	Deliveries        []EstimatedTimetableDelivery `json:"estimatedTimetableDelivery"`
}

// EstimatedTimetableDelivery groups journey version frames.
type EstimatedTimetableDelivery struct {
	ResponseTimestamp string                         `json:"responseTimestamp,omitempty"`
	Frames            []EstimatedJourneyVersionFrame `json:"estimatedJourneyVersionFrame"`
}

// EstimatedJourneyVersionFrame holds a recorded batch of vehicle journeys.
type EstimatedJourneyVersionFrame struct {
	RecordedAtTime string                    `json:"recordedAtTime,omitempty"`
	Journeys       []EstimatedVehicleJourney `json:"estimatedVehicleJourney"`
}

// EstimatedVehicleJourney is one scheduled vehicle trip with its stop calls.
type EstimatedVehicleJourney struct {
	LineRef                *Ref              `json:"lineRef,omitempty"`
	DirectionRef           *Ref              `json:"directionRef,omitempty"`
	DatedVehicleJourneyRef *Ref              `json:"datedVehicleJourneyRef,omitempty"`
	PublishedLineName      []LocalizedString `json:"publishedLineName,omitempty"`
	EstimatedCalls         *EstimatedCalls   `json:"estimatedCalls,omitempty"`
}

// EstimatedCalls wraps the call list, mirroring the upstream nesting.
type EstimatedCalls struct {
	Calls []EstimatedCall `json:"estimatedCall"`
}

// EstimatedCall is a single stop visit with aimed and expected times.
type EstimatedCall struct {
	Order                 int               `json:"order,omitempty"`
	StopPointRef          *Ref              `json:"stopPointRef,omitempty"`
	StopPointName         []LocalizedString `json:"stopPointName,omitempty"`
	AimedArrivalTime      string            `json:"aimedArrivalTime,omitempty"`
	ExpectedArrivalTime   string            `json:"expectedArrivalTime,omitempty"`
	AimedDepartureTime    string            `json:"aimedDepartureTime,omitempty"`
	ExpectedDepartureTime string            `json:"expectedDepartureTime,omitempty"`
}

// Calls returns the journey's call list, tolerating the absent wrapper.
func (j *EstimatedVehicleJourney) Calls() []EstimatedCall {
	if j.EstimatedCalls == nil {
		return nil
	}
	return j.EstimatedCalls.Calls
}

// JourneyRef returns the dated vehicle journey reference, or "" when the
// feed omits it.
func (j *EstimatedVehicleJourney) JourneyRef() string {
	if j.DatedVehicleJourneyRef == nil {
		return ""
	}
	return j.DatedVehicleJourneyRef.Value
}

// LineName returns the first published line name, or "" when absent.
func (j *EstimatedVehicleJourney) LineName() string {
	if len(j.PublishedLineName) == 0 {
		return ""
	}
	return j.PublishedLineName[0].Value
}

// AimedTime returns the call's aimed departure time, falling back to the
// aimed arrival time.
func (c *EstimatedCall) AimedTime() string {
	if c.AimedDepartureTime != "" {
		return c.AimedDepartureTime
	}
	return c.AimedArrivalTime
}

// ExpectedTime returns the call's expected departure time, falling back to
// the expected arrival time and finally to the aimed time.
func (c *EstimatedCall) ExpectedTime() string {
	if c.ExpectedDepartureTime != "" {
		return c.ExpectedDepartureTime
	}
	if c.ExpectedArrivalTime != "" {
		return c.ExpectedArrivalTime
	}
	return c.AimedTime()
}

// StopRef returns the call's stop point reference, or "" when absent.
func (c *EstimatedCall) StopRef() string {
	if c.StopPointRef == nil {
		return ""
	}
	return c.StopPointRef.Value
}

// Journeys flattens the delivery -> frame -> journey nesting into one
// sequence, preserving upstream order.
func (e *Envelope) Journeys() []EstimatedVehicleJourney {
	var journeys []EstimatedVehicleJourney
	for _, delivery := range e.Deliveries {
		for _, frame := range delivery.Frames {
			journeys = append(journeys, frame.Journeys...)
		}
	}
	return journeys
}

// Merge returns a new envelope with other's deliveries placed ahead of e's.
// The caller uses positional precedence to keep night-snapshot journeys from
// being shadowed by conflicting live entries.
func (e *Envelope) Merge(other *Envelope) *Envelope {
	if other == nil {
		return e
	}
	merged := &Envelope{ResponseTimestamp: e.ResponseTimestamp}
	merged.Deliveries = append(merged.Deliveries, other.Deliveries...)
	merged.Deliveries = append(merged.Deliveries, e.Deliveries...)
	return merged
}
