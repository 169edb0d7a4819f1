package clock

import "time"

// PausableTicker is a time.Ticker that can be paused and resumed.
// While paused C returns a nil channel so a select on it never fires.
type PausableTicker struct {
	interval time.Duration
	ticker   *time.Ticker
	running  bool
}

func NewPausableTicker(interval time.Duration) *PausableTicker {
	return &PausableTicker{interval: interval}
}

func (t *PausableTicker) Resume() {
	if t.running {
		return
	}

	if t.ticker == nil {
		t.ticker = time.NewTicker(t.interval)
	} else {
		t.ticker.Reset(t.interval)
	}

	t.running = true
}

func (t *PausableTicker) Pause() {
	if !t.running {
		return
	}

	t.ticker.Stop()
	t.running = false
}

// Set resumes or pauses the ticker
func (t *PausableTicker) Set(running bool) {
	if running {
		t.Resume()
	} else {
		t.Pause()
	}
}

func (t *PausableTicker) Running() bool {
	return t.running
}

func (t *PausableTicker) C() <-chan time.Time {
	if !t.running {
		return nil
	}

	return t.ticker.C
}

func (t *PausableTicker) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
	}
	t.running = false
}
