// Package stationary finds periods where a vehicle stayed in roughly the same place
package stationary

import (
	"time"

	"github.com/travigo/transitlog/pkg/ctdf"
)

const (
	DefaultRadiusMeters = 10.0
	DefaultMinDuration  = 300 * time.Second
)

// Detector is a streaming dwell detector. Feed events in time order with Process.
type Detector struct {
	RadiusMeters float64
	MinDuration  time.Duration

	previous *ctdf.PositionEvent
	anchor   *ctdf.PositionEvent
	duration int64
}

func NewDetector(radiusMeters float64, minDuration time.Duration) *Detector {
	return &Detector{
		RadiusMeters: radiusMeters,
		MinDuration:  minDuration,
	}
}

// Process consumes one event and returns a period when the event ends a long enough dwell.
// Events without a usable location are ignored.
func (d *Detector) Process(event *ctdf.PositionEvent) *ctdf.StationaryPeriod {
	if event == nil {
		return nil
	}

	location, valid := event.Location()
	if !valid {
		return nil
	}

	var period *ctdf.StationaryPeriod

	if d.previous != nil {
		reference := d.anchor
		if reference == nil {
			reference = d.previous
		}

		referenceLocation, _ := reference.Location()

		if location.Distance(&referenceLocation) <= d.RadiusMeters {
			// The dwell starts at the last event before the vehicle stopped moving
			if d.anchor == nil {
				d.anchor = d.previous
			}

			d.duration = event.SecondsFrom(d.anchor.RecordedAtUnix)
		} else {
			period = d.current()

			d.anchor = nil
			d.duration = 0
		}
	}

	d.previous = event

	return period
}

// Open returns the dwell in progress if it is already long enough, without ending it
func (d *Detector) Open() *ctdf.StationaryPeriod {
	return d.current()
}

func (d *Detector) Reset() {
	d.previous = nil
	d.anchor = nil
	d.duration = 0
}

func (d *Detector) current() *ctdf.StationaryPeriod {
	if d.anchor == nil || d.duration < int64(d.MinDuration/time.Second) {
		return nil
	}

	return &ctdf.StationaryPeriod{
		Event:           d.anchor,
		DurationSeconds: d.duration,
	}
}

// Detect runs a fresh detector over the events and returns the periods in discovery order.
// A dwell still in progress at the end of the stream is not reported.
func (d *Detector) Detect(events []*ctdf.PositionEvent) []*ctdf.StationaryPeriod {
	detector := NewDetector(d.RadiusMeters, d.MinDuration)

	var periods []*ctdf.StationaryPeriod
	for _, event := range events {
		if period := detector.Process(event); period != nil {
			periods = append(periods, period)
		}
	}

	return periods
}

// Detect with the default radius and minimum duration
func Detect(events []*ctdf.PositionEvent) []*ctdf.StationaryPeriod {
	return NewDetector(DefaultRadiusMeters, DefaultMinDuration).Detect(events)
}
