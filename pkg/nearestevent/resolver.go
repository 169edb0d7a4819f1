// Package nearestevent finds the position event that best represents a point in time.
//
// The scan is linear over a time ordered stream. It keeps the closest event seen so far
// and stops as soon as the current best is within the early exit window, so callers that
// move forward through a long journey should hold a ScanState (or a Tracker) and resume
// from the previous match instead of starting over.
package nearestevent

import (
	"time"

	"github.com/travigo/transitlog/pkg/ctdf"
)

// Profile is a tolerance / early exit pair. Events further than Tolerance from the query
// are never returned, a best match closer than EarlyExit ends the scan.
type Profile struct {
	Tolerance time.Duration
	EarlyExit time.Duration
}

var (
	// Strict is used for placing the vehicle marker
	Strict = Profile{Tolerance: 30 * time.Second, EarlyExit: 5 * time.Second}
	// Loose is used for coarse event selection
	Loose = Profile{Tolerance: 60 * time.Second, EarlyExit: 5 * time.Second}
)

func (p Profile) toleranceSeconds() int64 {
	return int64(p.Tolerance / time.Second)
}

func (p Profile) earlyExitSeconds() int64 {
	return int64(p.EarlyExit / time.Second)
}

// Resolve returns the event closest to at within the profile tolerance, or nil.
// A zero at is treated as no query.
func Resolve(events []*ctdf.PositionEvent, at time.Time, profile Profile) *ctdf.PositionEvent {
	if len(events) == 0 || at.IsZero() {
		return nil
	}

	event, _ := scan(events, 0, at.Unix(), profile)

	return event
}

// scan walks events from start and returns the best match and its index (-1 when none)
func scan(events []*ctdf.PositionEvent, start int, queryUnix int64, profile Profile) (*ctdf.PositionEvent, int) {
	var best *ctdf.PositionEvent
	bestIndex := -1
	bestDiff := profile.toleranceSeconds()
	earlyExit := profile.earlyExitSeconds()

	for i := start; i < len(events); i++ {
		event := events[i]
		if event == nil {
			continue
		}

		diff := event.SecondsFrom(queryUnix)

		if diff < bestDiff {
			best = event
			bestIndex = i
			bestDiff = diff

			continue
		}

		// The stream is time ordered, once an event is no better than a best match
		// inside the early exit window nothing further along will be either
		if best != nil && bestDiff < earlyExit {
			break
		}
	}

	return best, bestIndex
}
