// Package journeystore keeps the journeys supplied by each producer and serves one
// reconciled journey per identity key.
package journeystore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/metrics"
	"golang.org/x/exp/slices"
)

type Producer string

const (
	// ProducerSelected holds journeys the user explicitly asked for
	ProducerSelected Producer = "selected"
	// ProducerArea holds journeys found by an area search
	ProducerArea Producer = "area"
	// ProducerIngest holds journeys assembled from the position event queue
	ProducerIngest Producer = "ingest"
)

// ProducerOrder is the order producers are merged in, so ties go to the earlier producer
var ProducerOrder = []Producer{ProducerSelected, ProducerArea, ProducerIngest}

var ErrUnknownProducer = errors.New("unknown producer")

func ParseProducer(value string) (Producer, error) {
	producer := Producer(value)
	if !slices.Contains(ProducerOrder, producer) {
		return "", fmt.Errorf("%w: %s", ErrUnknownProducer, value)
	}

	return producer, nil
}

// PositionUpdate is a single event for the journey with the given identity
type PositionUpdate struct {
	Journey ctdf.JourneyIdentity
	Event   *ctdf.PositionEvent
}

// Store journeys are never modified once stored, updates replace them. Readers can
// hold on to returned journeys without locking.
type Store struct {
	mu        sync.RWMutex
	producers map[Producer][]*ctdf.Journey
	merged    []*ctdf.Journey
	byKey     map[string]*ctdf.Journey

	cache   *cache.Cache[string]
	metrics *metrics.Collector
}

func NewStore() *Store {
	return &Store{
		producers: map[Producer][]*ctdf.Journey{},
		byKey:     map[string]*ctdf.Journey{},
	}
}

// WithCache mirrors every reconciled journey into the cache
func (s *Store) WithCache(journeyCache *cache.Cache[string]) *Store {
	s.cache = journeyCache
	return s
}

func (s *Store) WithMetrics(collector *metrics.Collector) *Store {
	s.metrics = collector
	return s
}

// Replace swaps the full journey set of a producer
func (s *Store) Replace(ctx context.Context, producer Producer, journeys []*ctdf.Journey) error {
	if _, err := ParseProducer(string(producer)); err != nil {
		return err
	}

	stored := slices.Clone(journeys)

	s.mu.Lock()
	s.producers[producer] = stored
	merged := s.remergeLocked()
	s.mu.Unlock()

	log.Debug().Str("producer", string(producer)).Int("journeys", len(stored)).Int("merged", len(merged)).Msg("Replaced producer journeys")

	return s.mirror(ctx, merged)
}

// AppendPositionEvents adds the events to the ingest producers journeys, creating
// journeys as needed. Events are inserted in time order.
func (s *Store) AppendPositionEvents(ctx context.Context, updates []PositionUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	s.mu.Lock()

	journeys := slices.Clone(s.producers[ProducerIngest])
	index := map[string]int{}
	for i, journey := range journeys {
		index[journey.Key()] = i
	}

	changed := map[string]bool{}

	for _, update := range updates {
		if update.Event == nil {
			continue
		}

		key := update.Journey.Key()

		position, exists := index[key]
		if !exists {
			journeys = append(journeys, &ctdf.Journey{
				ID:              key,
				JourneyIdentity: update.Journey,
			})
			position = len(journeys) - 1
			index[key] = position
		}

		journeys[position] = withPositionEvent(journeys[position], update.Event)
		changed[key] = true
	}

	s.producers[ProducerIngest] = journeys
	merged := s.remergeLocked()
	s.mu.Unlock()

	updated := make([]*ctdf.Journey, 0, len(changed))
	for _, journey := range merged {
		if changed[journey.Key()] {
			updated = append(updated, journey)
		}
	}

	return s.mirror(ctx, updated)
}

func (s *Store) Journeys() []*ctdf.Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.merged)
}

func (s *Store) Journey(key string) (*ctdf.Journey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	journey, exists := s.byKey[key]
	return journey, exists
}

func (s *Store) ProducerJourneys(producer Producer) []*ctdf.Journey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.producers[producer])
}

func (s *Store) remergeLocked() []*ctdf.Journey {
	var all []*ctdf.Journey
	for _, producer := range ProducerOrder {
		all = append(all, s.producers[producer]...)
	}

	s.merged = ctdf.MergeDuplicateJourneys(all)

	s.byKey = make(map[string]*ctdf.Journey, len(s.merged))
	for _, journey := range s.merged {
		s.byKey[journey.Key()] = journey
	}

	s.metrics.SetJourneys(len(s.merged))

	return s.merged
}

// withPositionEvent returns a copy of journey with event inserted after any events
// recorded at or before the same time
func withPositionEvent(journey *ctdf.Journey, event *ctdf.PositionEvent) *ctdf.Journey {
	updated := *journey

	insertAt := slices.IndexFunc(journey.PositionEvents, func(existing *ctdf.PositionEvent) bool {
		return existing.RecordedAtUnix > event.RecordedAtUnix
	})
	if insertAt < 0 {
		insertAt = len(journey.PositionEvents)
	}

	updated.PositionEvents = slices.Insert(slices.Clone(journey.PositionEvents), insertAt, event)

	return &updated
}
