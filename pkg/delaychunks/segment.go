// Package delaychunks splits a journeys track into runs of events sharing a delay category
package delaychunks

import (
	"time"

	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/util"
)

const DefaultGapThreshold = 60 * time.Second

type Segmenter struct {
	Categorizer  Categorizer
	GapThreshold time.Duration
}

func NewSegmenter(categorizer Categorizer, gapThreshold time.Duration) *Segmenter {
	return &Segmenter{
		Categorizer:  categorizer,
		GapThreshold: gapThreshold,
	}
}

// Label is unsigned for events without a matched journey, otherwise the category of the negated delay
func (s *Segmenter) Label(event *ctdf.PositionEvent) string {
	if !event.IsSigned() {
		return LabelUnsigned
	}

	return s.Categorizer.Categorize(-event.Delay)
}

// Segment drops events without a usable location and groups the rest into chunks.
//
// A new chunk starts on a label change or when more than GapThreshold passed since the
// previous event. A label change without a gap also carries the previous event into the
// new chunk so the drawn line stays connected; a gap starts clean.
func (s *Segmenter) Segment(events []*ctdf.PositionEvent) []*ctdf.DelayChunk {
	validEvents := util.Filter(events, func(event *ctdf.PositionEvent) bool {
		return event != nil && event.HasValidLocation()
	})

	var chunks []*ctdf.DelayChunk
	var current *ctdf.DelayChunk
	gapSeconds := int64(s.GapThreshold / time.Second)

	for _, event := range validEvents {
		label := s.Label(event)

		if current == nil {
			current = &ctdf.DelayChunk{Label: label, Events: []*ctdf.PositionEvent{event}}
			chunks = append(chunks, current)

			continue
		}

		previous := current.Last()
		isSeparate := event.SecondsFrom(previous.RecordedAtUnix) > gapSeconds

		if label == current.Label && !isSeparate {
			current.Events = append(current.Events, event)

			continue
		}

		seed := []*ctdf.PositionEvent{event}
		if !isSeparate {
			seed = []*ctdf.PositionEvent{previous, event}
		}

		current = &ctdf.DelayChunk{Label: label, Events: seed}
		chunks = append(chunks, current)
	}

	return chunks
}

// Segment with the default gap threshold
func Segment(events []*ctdf.PositionEvent, categorizer Categorizer) []*ctdf.DelayChunk {
	return NewSegmenter(categorizer, DefaultGapThreshold).Segment(events)
}
