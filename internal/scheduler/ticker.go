package scheduler

import "time"

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every d.
type TickerFactory func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

// NewTimeTicker wraps time.Ticker. Ticks missed by a slow receiver are dropped.
func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// ManualTicker fires only when Tick is called. The channel is unbuffered,
// so Tick returns once the scheduler has taken the tick and a following
// Tick returns only after the previous one was fully handled.
type ManualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	now     time.Time
}

// NewManualTicker creates a ticker whose clock starts at start.
func NewManualTicker(start time.Time) *ManualTicker {
	return &ManualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
		now:     start,
	}
}

// Factory returns a TickerFactory handing out this ticker.
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker { return m }
}

func (m *ManualTicker) C() <-chan time.Time { return m.c }

// Stop marks the ticker released. Pending and later Tick calls return false.
func (m *ManualTicker) Stop() {
	select {
	case <-m.stopped:
	default:
		close(m.stopped)
	}
}

// Stopped reports whether the scheduler released the ticker.
func (m *ManualTicker) Stopped() bool {
	select {
	case <-m.stopped:
		return true
	default:
		return false
	}
}

// Tick advances the clock by d and delivers one tick. It returns false if
// the ticker was stopped before the tick was taken.
func (m *ManualTicker) Tick(d time.Duration) bool {
	m.now = m.now.Add(d)
	select {
	case m.c <- m.now:
		return true
	case <-m.stopped:
		return false
	}
}
