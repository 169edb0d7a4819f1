package ctdf

// DelayChunk is a contiguous run of position events that share a delay category
type DelayChunk struct {
	Label  string           `json:"label" groups:"basic"`
	Events []*PositionEvent `json:"events" groups:"basic"`
}

func (c *DelayChunk) Last() *PositionEvent {
	return c.Events[len(c.Events)-1]
}

// StationaryPeriod is a detected dwell, anchored at the first event of the dwell
type StationaryPeriod struct {
	Event           *PositionEvent `json:"event" groups:"basic"`
	DurationSeconds int64          `json:"durationSeconds" groups:"basic"`
}
