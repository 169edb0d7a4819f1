package ctdf

import "time"

// JourneyEvent is a discrete event on a journey such as a stop arrival or a cancellation.
// The reconciliation engine only cares whether a journey has any of them.
type JourneyEvent struct {
	Type           JourneyEventType `json:"type" yaml:"type" groups:"basic"`
	RecordedAt     string           `json:"recordedAt" yaml:"recordedAt" groups:"basic"`
	RecordedAtUnix int64            `json:"recordedAtUnix" yaml:"recordedAtUnix" groups:"basic"`

	StopID string `json:"stopId,omitempty" yaml:"stopId,omitempty" groups:"basic"`

	Body map[string]interface{} `json:"body,omitempty" yaml:"body,omitempty" groups:"detailed"`
}

type JourneyEventType string

const (
	JourneyEventTypeArrival      JourneyEventType = "ARR"
	JourneyEventTypeDeparture    JourneyEventType = "DEP"
	JourneyEventTypeCancellation JourneyEventType = "CANCELLATION"
	JourneyEventTypeDoorOpen     JourneyEventType = "DOO"
	JourneyEventTypeDoorClose    JourneyEventType = "DOC"
)

func (e *JourneyEvent) Time() time.Time {
	return time.Unix(e.RecordedAtUnix, 0)
}
