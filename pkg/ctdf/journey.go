package ctdf

import (
	"encoding/json"
	"fmt"
)

// JourneyIdentity holds the fields that identify a logical trip regardless of which producer supplied it
type JourneyIdentity struct {
	JourneyType     string `json:"journeyType" yaml:"journeyType" groups:"basic"`
	RouteID         string `json:"routeId" yaml:"routeId" groups:"basic"`
	Direction       string `json:"direction" yaml:"direction" groups:"basic"`
	DepartureDate   string `json:"departureDate" yaml:"departureDate" groups:"basic"`
	DepartureTime   string `json:"departureTime" yaml:"departureTime" groups:"basic"`
	UniqueVehicleID string `json:"uniqueVehicleId" yaml:"uniqueVehicleId" groups:"basic"`
}

func (i JourneyIdentity) IsSigned() bool {
	return i.JourneyType == JourneyTypeJourney
}

// Key is the reconciliation key. Unsigned vehicles have no route or departure so they
// are keyed by their journey type, vehicle and operating day instead.
func (i JourneyIdentity) Key() string {
	if !i.IsSigned() {
		return fmt.Sprintf("%s:%s:%s", i.JourneyType, i.UniqueVehicleID, i.DepartureDate)
	}

	return fmt.Sprintf("%s:%s:%s:%s:%s", i.RouteID, i.Direction, i.DepartureDate, i.DepartureTime, i.UniqueVehicleID)
}

type Journey struct {
	ID string `json:"id,omitempty" yaml:"id,omitempty" groups:"detailed"`

	JourneyIdentity `yaml:",inline"`

	PositionEvents []*PositionEvent `json:"vehiclePositions" yaml:"vehiclePositions" groups:"detailed"`
	Events         []*JourneyEvent  `json:"events,omitempty" yaml:"events,omitempty" groups:"detailed"`
}

func (j *Journey) HasEvents() bool {
	return len(j.Events) > 0
}

func (j *Journey) PositionCount() int {
	return len(j.PositionEvents)
}

func (j Journey) MarshalBinary() ([]byte, error) {
	return json.Marshal(j)
}

// outranks reports whether candidate should replace selected as the representative
// of a duplicate group. A candidate with discrete events always replaces the selected
// journey, even one that also has events. A journey with events is never replaced by
// one without. Otherwise more position samples win and exact ties keep the first seen.
func outranks(candidate *Journey, selected *Journey) bool {
	if candidate.HasEvents() {
		return true
	}
	if selected.HasEvents() {
		return false
	}

	return candidate.PositionCount() > selected.PositionCount()
}

// MergeDuplicateJourneys returns one journey per identity key, in the order the keys
// were first seen. It never builds new journeys, it only picks one of the inputs.
func MergeDuplicateJourneys(journeys []*Journey) []*Journey {
	var keys []string
	selected := map[string]*Journey{}

	for _, journey := range journeys {
		if journey == nil {
			continue
		}

		key := journey.Key()
		current, seen := selected[key]

		if !seen {
			keys = append(keys, key)
			selected[key] = journey
		} else if outranks(journey, current) {
			selected[key] = journey
		}
	}

	merged := make([]*Journey, 0, len(keys))
	for _, key := range keys {
		merged = append(merged, selected[key])
	}

	return merged
}
