// Package scheduler samples the emitter transform at a fixed interval and
// triggers a repaint pass whenever it moved or the light settings changed.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/logger"
	"github.com/Faultbox/vertexlight/internal/paint"
	"github.com/Faultbox/vertexlight/pkg/math"
)

const (
	// MinInterval is the shortest allowed tick interval.
	MinInterval = 50 * time.Millisecond
	// DefaultInterval is the tick interval used when none is configured.
	DefaultInterval = 200 * time.Millisecond

	DefaultPositionThreshold float32 = 1e-4
	DefaultRotationThreshold float32 = 1e-4 // radians
)

// State is the scheduler lifecycle state.
type State int32

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Repainter runs one repaint pass. *paint.Session implements it.
type Repainter interface {
	Repaint(settings lighting.Settings, pos math.Vec3, rot math.Quat) error
}

// Emitter reports the live emitter transform.
type Emitter interface {
	Transform() (math.Vec3, math.Quat, error)
}

// Config controls tick rate and change detection.
type Config struct {
	Interval          time.Duration
	PositionThreshold float32 // World units
	RotationThreshold float32 // Radians
	PaintOnStart      bool    // Repaint on the first tick even if nothing moved
}

// DefaultConfig returns a 200ms interval with 1e-4 thresholds.
func DefaultConfig() Config {
	return Config{
		Interval:          DefaultInterval,
		PositionThreshold: DefaultPositionThreshold,
		RotationThreshold: DefaultRotationThreshold,
	}
}

// Validate checks the interval and thresholds.
func (c Config) Validate() error {
	if c.Interval < MinInterval {
		return fmt.Errorf("%w: interval %v below minimum %v", paint.ErrInvalidConfiguration, c.Interval, MinInterval)
	}
	if !(c.PositionThreshold >= 0 && c.RotationThreshold >= 0) {
		return fmt.Errorf("%w: negative change threshold", paint.ErrInvalidConfiguration)
	}
	return nil
}

// Stats counts scheduler activity since creation.
type Stats struct {
	Ticks    uint64 // Ticks handled
	Repaints uint64 // Repaint passes invoked
	Failures uint64 // Ticks with a transform error or a failed pass
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRedraw sets a hint called after every repaint pass.
func WithRedraw(fn func()) Option {
	return func(s *Scheduler) { s.redraw = fn }
}

// WithTickerFactory replaces the time.Ticker based default.
func WithTickerFactory(f TickerFactory) Option {
	return func(s *Scheduler) { s.newTicker = f }
}

// WithLogger sets the scheduler logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// Scheduler drives repaint passes from emitter movement.
// Ticks run on a single goroutine and never overlap.
type Scheduler struct {
	painter   Repainter
	emitter   Emitter
	cfg       Config
	newTicker TickerFactory
	redraw    func()
	log       *zap.Logger

	mu       sync.Mutex
	settings lighting.Settings
	dirty    bool
	done     chan struct{}

	state atomic.Int32

	// Owned by the loop goroutine once started
	lastPos math.Vec3
	lastRot math.Quat

	ticks    atomic.Uint64
	repaints atomic.Uint64
	failures atomic.Uint64
}

// New creates an idle scheduler.
func New(painter Repainter, emitter Emitter, settings lighting.Settings, cfg Config, opts ...Option) (*Scheduler, error) {
	if painter == nil {
		return nil, fmt.Errorf("%w: no paint session", paint.ErrInvalidConfiguration)
	}
	if emitter == nil {
		return nil, fmt.Errorf("%w: no emitter", paint.ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", paint.ErrInvalidConfiguration, err)
	}

	s := &Scheduler{
		painter:   painter,
		emitter:   emitter,
		cfg:       cfg,
		settings:  settings,
		newTicker: NewTimeTicker,
		log:       logger.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Settings returns the light settings used for the next pass.
func (s *Scheduler) Settings() lighting.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:    s.ticks.Load(),
		Repaints: s.repaints.Load(),
		Failures: s.failures.Load(),
	}
}

// Start records the current emitter transform and begins ticking.
// Cancelling ctx has the same effect as Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return fmt.Errorf("%w: scheduler is %s", paint.ErrInvalidConfiguration, s.State())
	}

	pos, rot, err := s.emitter.Transform()
	if err != nil {
		s.state.Store(int32(Idle))
		return fmt.Errorf("%w: emitter transform: %v", paint.ErrInvalidConfiguration, err)
	}
	s.lastPos, s.lastRot = pos, rot.Normalize()

	done := make(chan struct{})
	s.mu.Lock()
	s.done = done
	if s.cfg.PaintOnStart {
		s.dirty = true
	}
	s.mu.Unlock()

	ticker := s.newTicker(s.cfg.Interval)
	go s.loop(ctx, ticker, done)

	s.log.Info("scheduler started", zap.Duration("interval", s.cfg.Interval))
	return nil
}

// Stop asks the loop to finish. It returns immediately; the next tick
// releases the ticker. Colors are not restored here, see paint.Session.End.
func (s *Scheduler) Stop() {
	if s.state.CompareAndSwap(int32(Running), int32(Stopping)) {
		s.log.Debug("stop requested")
	}
}

// Wait blocks until the scheduler is idle.
func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Apply changes the light settings. The next tick repaints even if the
// emitter has not moved. An invalid delta leaves the settings unchanged.
func (s *Scheduler) Apply(d lighting.Delta) error {
	if d.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.settings.Apply(d)
	if err != nil {
		return fmt.Errorf("%w: %v", paint.ErrInvalidConfiguration, err)
	}
	s.settings = next
	s.dirty = true
	return nil
}

func (s *Scheduler) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer func() {
		ticker.Stop()
		s.state.Store(int32(Idle))
		s.log.Info("scheduler stopped",
			zap.Uint64("ticks", s.ticks.Load()),
			zap.Uint64("repaints", s.repaints.Load()))
	}()

	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(Stopping))
			return
		case <-ticker.C():
			if s.State() == Stopping {
				return
			}
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	s.ticks.Add(1)

	pos, rot, err := s.emitter.Transform()
	if err != nil {
		s.failures.Add(1)
		s.log.Warn("emitter transform unavailable", zap.Error(err))
		return
	}
	rot = rot.Normalize()

	s.mu.Lock()
	settings, dirty := s.settings, s.dirty
	s.dirty = false
	s.mu.Unlock()

	moved := pos.Distance(s.lastPos) > s.cfg.PositionThreshold
	turned := rot.AngleTo(s.lastRot) > s.cfg.RotationThreshold
	if !moved && !turned && !dirty {
		return
	}
	s.lastPos, s.lastRot = pos, rot

	start := time.Now()
	s.repaints.Add(1)
	if err := s.painter.Repaint(settings, pos, rot); err != nil {
		s.failures.Add(1)
		s.log.Warn("repaint pass failed", zap.Error(err))
	}
	s.log.Debug("repaint",
		zap.Bool("moved", moved),
		zap.Bool("turned", turned),
		zap.Bool("settings_changed", dirty),
		zap.Duration("elapsed", time.Since(start)))

	if s.redraw != nil {
		s.redraw()
	}
}
