package nearestevent

import (
	"sync"
	"time"

	"github.com/travigo/transitlog/pkg/ctdf"
)

// ScanState remembers the previous query so the next scan can resume where it left off
type ScanState struct {
	HasQuery   bool
	LastQuery  int64
	LastResult *ctdf.PositionEvent
	LastIndex  int
}

// ResolveFrom is Resolve with memoisation. The returned state should be handed back on
// the next call.
//
//   - same query time as last call: the cached result is returned without a scan
//   - later query time: the scan resumes at the previous match
//   - earlier query time or a remembered index past the end of the stream: the scan restarts at 0
//   - zero query time: the cached result is returned
//   - empty stream: nil
func ResolveFrom(state ScanState, events []*ctdf.PositionEvent, at time.Time, profile Profile) (*ctdf.PositionEvent, ScanState) {
	if len(events) == 0 {
		return nil, ScanState{}
	}

	if at.IsZero() {
		return state.LastResult, state
	}

	queryUnix := at.Unix()

	if state.HasQuery && state.LastQuery == queryUnix && state.LastIndex < len(events) {
		return state.LastResult, state
	}

	start := state.LastIndex
	if !state.HasQuery || queryUnix < state.LastQuery || start >= len(events) || start < 0 {
		start = 0
	}

	event, index := scan(events, start, queryUnix, profile)

	next := ScanState{
		HasQuery:   true,
		LastQuery:  queryUnix,
		LastResult: event,
		LastIndex:  start,
	}
	if index >= 0 {
		next.LastIndex = index
	}

	return event, next
}

// Tracker holds a ScanState for a single stream, eg. one journeys position events
type Tracker struct {
	profile Profile

	mu    sync.Mutex
	state ScanState
}

func NewTracker(profile Profile) *Tracker {
	return &Tracker{profile: profile}
}

func (t *Tracker) Resolve(events []*ctdf.PositionEvent, at time.Time) *ctdf.PositionEvent {
	t.mu.Lock()
	defer t.mu.Unlock()

	var event *ctdf.PositionEvent
	event, t.state = ResolveFrom(t.state, events, at, t.profile)

	return event
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = ScanState{}
}
