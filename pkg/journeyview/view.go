// Package journeyview builds the render ready state of journeys at a point in time
package journeyview

import (
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/transitlog/pkg/config"
	"github.com/travigo/transitlog/pkg/ctdf"
	"github.com/travigo/transitlog/pkg/delaychunks"
	"github.com/travigo/transitlog/pkg/nearestevent"
	"github.com/travigo/transitlog/pkg/stationary"
	"golang.org/x/exp/slices"
)

type View struct {
	Key string `json:"key" groups:"basic"`
	ID  string `json:"id,omitempty" groups:"detailed"`

	JourneyType     string `json:"journeyType" groups:"basic"`
	RouteID         string `json:"routeId" groups:"basic"`
	Direction       string `json:"direction" groups:"basic"`
	DepartureDate   string `json:"departureDate" groups:"basic"`
	DepartureTime   string `json:"departureTime" groups:"basic"`
	UniqueVehicleID string `json:"uniqueVehicleId" groups:"basic"`

	QueryTime     time.Time `json:"queryTime" groups:"basic"`
	PositionCount int       `json:"positionCount" groups:"basic"`
	HasEvents     bool      `json:"hasEvents" groups:"basic"`

	// MarkerEvent is where the vehicle marker is drawn, resolved with the strict profile
	MarkerEvent *ctdf.PositionEvent `json:"markerEvent" groups:"basic"`
	// CurrentEvent is the coarse "now" event, resolved with the loose profile
	CurrentEvent *ctdf.PositionEvent `json:"currentEvent" groups:"basic"`

	DelayChunks       []*ctdf.DelayChunk       `json:"delayChunks" groups:"detailed"`
	StationaryPeriods []*ctdf.StationaryPeriod `json:"stationaryPeriods" groups:"detailed"`
}

type trackers struct {
	strict *nearestevent.Tracker
	loose  *nearestevent.Tracker
}

// Builder builds views and keeps a nearest event tracker per journey so repeated
// queries with a moving clock resume their scans
type Builder struct {
	Strict    nearestevent.Profile
	Loose     nearestevent.Profile
	Segmenter *delaychunks.Segmenter

	RadiusMeters float64
	MinDwell     time.Duration

	MaxConcurrency int

	mu       sync.Mutex
	trackers map[string]*trackers
}

func NewBuilder() *Builder {
	return &Builder{
		Strict:         nearestevent.Strict,
		Loose:          nearestevent.Loose,
		Segmenter:      delaychunks.NewSegmenter(delaychunks.ThresholdCategorizer{Early: time.Minute, Late: 3 * time.Minute}, delaychunks.DefaultGapThreshold),
		RadiusMeters:   stationary.DefaultRadiusMeters,
		MinDwell:       stationary.DefaultMinDuration,
		MaxConcurrency: 32,
		trackers:       map[string]*trackers{},
	}
}

func NewBuilderFromConfig(cfg *config.Config) (*Builder, error) {
	categorizer, err := delaychunks.NewCategorizer(cfg.Delay)
	if err != nil {
		return nil, err
	}

	builder := NewBuilder()
	builder.Strict = nearestevent.Profile{
		Tolerance: cfg.Resolver.Strict.Tolerance.Duration(),
		EarlyExit: cfg.Resolver.Strict.EarlyExit.Duration(),
	}
	builder.Loose = nearestevent.Profile{
		Tolerance: cfg.Resolver.Loose.Tolerance.Duration(),
		EarlyExit: cfg.Resolver.Loose.EarlyExit.Duration(),
	}
	builder.Segmenter = delaychunks.NewSegmenter(categorizer, cfg.Segmentation.GapThreshold.Duration())
	builder.RadiusMeters = cfg.Stationary.RadiusMeters
	builder.MinDwell = cfg.Stationary.MinDuration.Duration()

	return builder, nil
}

func (b *Builder) trackersFor(key string) *trackers {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, exists := b.trackers[key]
	if !exists {
		existing = &trackers{
			strict: nearestevent.NewTracker(b.Strict),
			loose:  nearestevent.NewTracker(b.Loose),
		}
		b.trackers[key] = existing
	}

	return existing
}

// Forget drops the trackers of journeys not in keep
func (b *Builder) Forget(keep map[string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key := range b.trackers {
		if !keep[key] {
			delete(b.trackers, key)
		}
	}
}

func (b *Builder) Build(journey *ctdf.Journey, at time.Time) (*View, error) {
	if journey == nil {
		return nil, fmt.Errorf("no journey")
	}

	view := &View{}
	if err := copier.Copy(view, journey); err != nil {
		return nil, err
	}

	key := journey.Key()
	journeyTrackers := b.trackersFor(key)

	view.Key = key
	view.QueryTime = at
	view.PositionCount = journey.PositionCount()
	view.HasEvents = journey.HasEvents()
	view.MarkerEvent = journeyTrackers.strict.Resolve(journey.PositionEvents, at)
	view.CurrentEvent = journeyTrackers.loose.Resolve(journey.PositionEvents, at)
	view.DelayChunks = b.Segmenter.Segment(journey.PositionEvents)
	view.StationaryPeriods = stationary.NewDetector(b.RadiusMeters, b.MinDwell).Detect(journey.PositionEvents)

	return view, nil
}

type indexedView struct {
	index int
	view  *View
}

// BuildAll builds the views concurrently. Views come back in journey order.
func (b *Builder) BuildAll(journeys []*ctdf.Journey, at time.Time) ([]*View, error) {
	p := pool.NewWithResults[indexedView]().WithErrors().WithMaxGoroutines(b.maxConcurrency())

	keep := map[string]bool{}

	for i, journey := range journeys {
		if journey == nil {
			continue
		}
		keep[journey.Key()] = true

		i, journey := i, journey
		p.Go(func() (indexedView, error) {
			view, err := b.Build(journey, at)
			return indexedView{index: i, view: view}, err
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	b.Forget(keep)

	slices.SortFunc(results, func(a, b indexedView) int {
		return a.index - b.index
	})

	views := make([]*View, 0, len(results))
	for _, result := range results {
		views = append(views, result.view)
	}

	return views, nil
}

func (b *Builder) maxConcurrency() int {
	if b.MaxConcurrency <= 0 {
		return 1
	}
	return b.MaxConcurrency
}
