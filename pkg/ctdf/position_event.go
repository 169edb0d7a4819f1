package ctdf

import (
	"time"
)

const JourneyTypeJourney = "journey"

// PositionEvent is a single telemetry sample of a vehicle. Treated as immutable once created.
type PositionEvent struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty" groups:"detailed"`

	JourneyType string `json:"journeyType" yaml:"journeyType" groups:"basic"`

	Lat *float64 `json:"lat" yaml:"lat" groups:"basic"`
	Lng *float64 `json:"lng" yaml:"lng" groups:"basic"`

	RecordedAt     string `json:"recordedAt" yaml:"recordedAt" groups:"basic"`
	RecordedAtUnix int64  `json:"recordedAtUnix" yaml:"recordedAtUnix" groups:"basic"`

	// Delay is the schedule deviation in seconds as reported by the vehicle
	Delay int `json:"delay" yaml:"delay" groups:"basic"`

	DoorsOpened bool    `json:"doorsOpened" yaml:"doorsOpened" groups:"basic"`
	Speed       float64 `json:"speed" yaml:"speed" groups:"basic"`

	NextStopID string `json:"nextStopId,omitempty" yaml:"nextStopId,omitempty" groups:"detailed"`
}

func (e *PositionEvent) IsSigned() bool {
	return e.JourneyType == JourneyTypeJourney
}

func (e *PositionEvent) Time() time.Time {
	return time.Unix(e.RecordedAtUnix, 0)
}

// Location returns the events location and whether it is usable
func (e *PositionEvent) Location() (Location, bool) {
	if e.Lat == nil || e.Lng == nil {
		return Location{}, false
	}

	location := NewPointLocation(*e.Lat, *e.Lng)

	return location, location.IsValid()
}

func (e *PositionEvent) HasValidLocation() bool {
	_, valid := e.Location()

	return valid
}

// SecondsFrom returns the absolute difference in seconds between the event and a unix time
func (e *PositionEvent) SecondsFrom(unixTime int64) int64 {
	diff := unixTime - e.RecordedAtUnix
	if diff < 0 {
		return -diff
	}

	return diff
}
