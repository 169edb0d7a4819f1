// Package clock owns the virtual "now" that journey views are resolved against and
// notifies listeners whenever it moves.
package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/transitlog/pkg/config"
	"github.com/travigo/transitlog/pkg/metrics"
)

type Mode string

const (
	ModeManual Mode = "manual"
	ModeLive   Mode = "live"
)

const (
	DefaultTickInterval  = time.Second
	DefaultTimeIncrement = 5 * time.Second
	DefaultLiveTimeout   = 300 * time.Second
)

// State is a snapshot of the clock
type State struct {
	CurrentTime time.Time `json:"currentTime"`
	Mode        Mode      `json:"mode"`
	// IsCurrent is set while CurrentTime tracks wall-clock now
	IsCurrent  bool      `json:"isCurrent"`
	Foreground bool      `json:"foreground"`
	LiveSince  time.Time `json:"liveSince,omitempty"`
}

// Options for NewScheduler. Zero durations use the defaults.
type Options struct {
	TickInterval  time.Duration
	TimeIncrement time.Duration
	LiveTimeout   time.Duration

	TimeSource TimeSource
	Metrics    *metrics.Collector

	// OnListenerError is called after a listener returned an error or panicked
	OnListenerError func(name string, err error)
}

func OptionsFromConfig(schedulerConfig config.SchedulerConfig) Options {
	return Options{
		TickInterval:  schedulerConfig.TickInterval.Duration(),
		TimeIncrement: schedulerConfig.TimeIncrement.Duration(),
		LiveTimeout:   schedulerConfig.LiveTimeout.Duration(),
	}
}

// Scheduler is the virtual clock. It starts in manual mode at wall-clock now.
//
// In live mode every tick either resyncs to now (when the clock is current) or steps
// forward by TimeIncrement, then runs an auto pass. Auto passes only notify
// auto eligible listeners and only while the clock is current. Live mode ends by
// itself once LiveTimeout has passed since it was enabled.
//
// Passes never overlap. Listeners are called outside the state lock so they may read
// State or (un)register, but must not trigger a pass themselves.
type Scheduler struct {
	options Options

	mu       sync.Mutex
	state    State
	registry *registry

	passMu sync.Mutex

	changed chan struct{}
}

func NewScheduler(options Options) *Scheduler {
	if options.TickInterval <= 0 {
		options.TickInterval = DefaultTickInterval
	}
	if options.TimeIncrement <= 0 {
		options.TimeIncrement = DefaultTimeIncrement
	}
	if options.LiveTimeout <= 0 {
		options.LiveTimeout = DefaultLiveTimeout
	}
	if options.TimeSource == nil {
		options.TimeSource = RealClock{}
	}

	return &Scheduler{
		options: options,
		state: State{
			CurrentTime: options.TimeSource.Now(),
			Mode:        ModeManual,
			IsCurrent:   true,
			Foreground:  true,
		},
		registry: newRegistry(),
		changed:  make(chan struct{}, 1),
	}
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Scheduler) Now() time.Time {
	return s.State().CurrentTime
}

// SetTime scrubs the clock. Times at or after wall-clock now snap to now and make the clock current.
func (s *Scheduler) SetTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.options.TimeSource.Now()
	if !t.Before(now) {
		s.state.CurrentTime = now
		s.state.IsCurrent = true

		return
	}

	s.state.CurrentTime = t
	s.state.IsCurrent = false
}

func (s *Scheduler) SetNow() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.CurrentTime = s.options.TimeSource.Now()
	s.state.IsCurrent = true
}

func (s *Scheduler) EnableLive() {
	s.mu.Lock()
	now := s.options.TimeSource.Now()
	s.state.Mode = ModeLive
	s.state.LiveSince = now
	s.state.CurrentTime = now
	s.state.IsCurrent = true
	s.mu.Unlock()

	s.options.Metrics.SetLive(true)
	log.Info().Time("time", now).Msg("Live mode enabled")

	s.notifyChanged()
}

func (s *Scheduler) DisableLive() {
	s.mu.Lock()
	wasLive := s.setManualLocked()
	s.mu.Unlock()

	if wasLive {
		log.Info().Msg("Live mode disabled")
		s.notifyChanged()
	}
}

// SetForeground pauses ticking while the host is in the background
func (s *Scheduler) SetForeground(foreground bool) {
	s.mu.Lock()
	changed := s.state.Foreground != foreground
	s.state.Foreground = foreground
	s.mu.Unlock()

	if changed {
		log.Debug().Bool("foreground", foreground).Msg("Clock visibility changed")
		s.notifyChanged()
	}
}

// ManualUpdate leaves live mode, advances the clock once and notifies every listener
func (s *Scheduler) ManualUpdate() {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	s.mu.Lock()
	wasLive := s.setManualLocked()
	s.advanceLocked()
	s.mu.Unlock()

	if wasLive {
		s.notifyChanged()
	}

	s.runPass(false)
}

// Tick handles one live mode tick. It does nothing outside live mode or in the background.
func (s *Scheduler) Tick() {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	s.mu.Lock()
	if s.state.Mode != ModeLive || !s.state.Foreground {
		s.mu.Unlock()
		return
	}

	now := s.options.TimeSource.Now()
	if now.Sub(s.state.LiveSince) >= s.options.LiveTimeout {
		s.setManualLocked()
		s.mu.Unlock()

		s.options.Metrics.ObserveLiveTimeout()
		log.Info().Dur("timeout", s.options.LiveTimeout).Msg("Live mode timed out")
		s.notifyChanged()

		return
	}

	s.advanceLocked()
	s.mu.Unlock()

	s.options.Metrics.ObserveTick()
	s.runPass(true)
}

// Run drives Tick from a ticker until the context is cancelled.
// The ticker only runs while in live mode and in the foreground.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := NewPausableTicker(s.options.TickInterval)
	defer ticker.Stop()

	updateTicker := func() {
		state := s.State()
		ticker.Set(state.Mode == ModeLive && state.Foreground)
	}
	updateTicker()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.changed:
			updateTicker()
		case <-ticker.C():
			s.Tick()
			updateTicker()
		}
	}
}

// Register adds or replaces the listener under name
func (s *Scheduler) Register(name string, listener UpdateListener, autoEligible bool) {
	s.mu.Lock()
	s.registry.register(Registration{
		Name:         name,
		Listener:     listener,
		AutoEligible: autoEligible,
	})
	count := s.registry.len()
	s.mu.Unlock()

	s.options.Metrics.SetListeners(count)
}

func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	s.registry.unregister(name)
	count := s.registry.len()
	s.mu.Unlock()

	s.options.Metrics.SetListeners(count)
}

// Listeners returns the registered names in notification order
func (s *Scheduler) Listeners() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.names()
}

func (s *Scheduler) setManualLocked() bool {
	wasLive := s.state.Mode == ModeLive

	s.state.Mode = ModeManual
	s.state.LiveSince = time.Time{}

	if wasLive {
		s.options.Metrics.SetLive(false)
	}

	return wasLive
}

// advanceLocked resyncs a current clock to now, otherwise steps it forward by
// TimeIncrement. A step reaching now makes the clock current again.
func (s *Scheduler) advanceLocked() {
	now := s.options.TimeSource.Now()

	if s.state.IsCurrent {
		s.state.CurrentTime = now
		return
	}

	next := s.state.CurrentTime.Add(s.options.TimeIncrement)
	if !next.Before(now) {
		s.state.CurrentTime = now
		s.state.IsCurrent = true

		return
	}

	s.state.CurrentTime = next
}

func (s *Scheduler) runPass(auto bool) {
	s.mu.Lock()
	if auto && !s.state.IsCurrent {
		s.mu.Unlock()
		s.options.Metrics.ObserveSkippedPass()

		return
	}
	registrations := s.registry.snapshot(auto)
	s.mu.Unlock()

	kind := metrics.PassManual
	if auto {
		kind = metrics.PassAuto
	}

	start := time.Now()
	for _, registration := range registrations {
		s.invoke(registration, auto)
	}

	s.options.Metrics.ObservePass(kind, time.Since(start).Seconds())
	log.Debug().Str("kind", kind).Int("listeners", len(registrations)).Msg("Update pass complete")
}

func (s *Scheduler) invoke(registration Registration, auto bool) {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.listenerFailed(registration.Name, auto, fmt.Errorf("listener panicked: %v", recovered))
		}
	}()

	if err := registration.Listener(auto); err != nil {
		s.listenerFailed(registration.Name, auto, err)
	}
}

func (s *Scheduler) listenerFailed(name string, auto bool, err error) {
	log.Error().Err(err).Str("listener", name).Bool("auto", auto).Msg("Update listener failed")

	s.options.Metrics.ObserveListenerFailure(name)

	if s.options.OnListenerError != nil {
		s.options.OnListenerError(name, err)
	}
}

func (s *Scheduler) notifyChanged() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
