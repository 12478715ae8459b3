package paint

import (
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/logger"
	"github.com/Faultbox/vertexlight/internal/mesh"
	"github.com/Faultbox/vertexlight/pkg/kdtree"
	"github.com/Faultbox/vertexlight/pkg/math"
)

// SaveSuffix is appended to the attribute name to form the saved layer name.
const SaveSuffix = "Save"

// Surface is a paintable mesh provided by the host.
type Surface interface {
	MeshID() string
	PointCount() int
	WorldPoints() []math.Vec3
	Corners() []int
	SupportedDomains() []mesh.Domain
	ColorAttribute(name string) *mesh.ColorAttribute
	AddColorAttribute(name string, domain mesh.Domain) (*mesh.ColorAttribute, error)
}

// Emitter reports the live world transform of the light emitter.
type Emitter interface {
	Transform() (position math.Vec3, orientation math.Quat, err error)
}

// Painter allows a single active Session at a time.
type Painter struct {
	mu     sync.Mutex
	active *Session
}

// NewPainter creates a painter with no active session.
func NewPainter() *Painter {
	return &Painter{}
}

// Active returns the running session or nil.
func (p *Painter) Active() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *Painter) release(s *Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == s {
		p.active = nil
	}
}

// TargetInfo describes one registered target.
type TargetInfo struct {
	ID     string
	Domain mesh.Domain
	Points int
	Slots  int
	Saved  bool // Baseline comes from the saved layer
}

type target struct {
	id       string
	surface  Surface
	attr     *mesh.ColorAttribute
	domain   mesh.Domain
	index    *kdtree.Tree
	corners  *mesh.CornerMap // nil for point domain
	baseline []mesh.Color
	original []mesh.Color
	saved    bool
}

// Session is one painting run over a fixed set of targets.
type Session struct {
	mu        sync.Mutex
	painter   *Painter
	emitter   Emitter
	attribute string
	targets   []*target
	skipped   []*TargetError
	closed    bool
	log       *zap.Logger
}

// Begin starts a session painting the named attribute on targets.
//
// Targets keep their registration order. A target that cannot hold the
// attribute is skipped and reported by Skipped; it does not fail Begin.
func (p *Painter) Begin(emitter Emitter, targets []Surface, attribute string) (*Session, error) {
	if emitter == nil {
		return nil, fmt.Errorf("%w: no emitter", ErrInvalidConfiguration)
	}
	if _, _, err := emitter.Transform(); err != nil {
		return nil, fmt.Errorf("%w: emitter transform: %v", ErrInvalidConfiguration, err)
	}
	if attribute == "" {
		return nil, fmt.Errorf("%w: empty attribute name", ErrInvalidConfiguration)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil {
		return nil, fmt.Errorf("%w: a paint session is already active", ErrInvalidConfiguration)
	}

	s := &Session{
		painter:   p,
		emitter:   emitter,
		attribute: attribute,
		log:       logger.Named("paint"),
	}

	start := time.Now()
	for _, sf := range targets {
		if sf == nil {
			continue
		}
		t, err := prepareTarget(sf, attribute)
		if err != nil {
			te := &TargetError{TargetID: sf.MeshID(), Err: err}
			s.skipped = append(s.skipped, te)
			s.log.Warn("skipping target", zap.String("mesh", sf.MeshID()), zap.Error(err))
			continue
		}
		s.targets = append(s.targets, t)
		s.log.Debug("target ready",
			zap.String("mesh", t.id),
			zap.Stringer("domain", t.domain),
			zap.Int("points", t.index.Len()),
			zap.Int("slots", t.attr.Len()),
			zap.Bool("saved_baseline", t.saved))
	}

	p.active = s
	s.log.Info("paint session started",
		zap.String("attribute", attribute),
		zap.Int("targets", len(s.targets)),
		zap.Int("skipped", len(s.skipped)),
		zap.Duration("setup", time.Since(start)))
	return s, nil
}

func prepareTarget(sf Surface, attribute string) (*target, error) {
	attr := sf.ColorAttribute(attribute)
	domain, err := resolveDomain(sf, attr)
	if err != nil {
		return nil, err
	}

	points := sf.WorldPoints()
	var corners *mesh.CornerMap
	if domain == mesh.DomainCorner {
		cp := sf.Corners()
		if len(points) > 0 && len(cp) == 0 {
			return nil, fmt.Errorf("%w: corner domain without polygons", ErrUnsupportedTarget)
		}
		corners = mesh.NewCornerMap(len(points), cp)
	}

	if attr == nil {
		attr, err = sf.AddColorAttribute(attribute, domain)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedTarget, err)
		}
	}

	want := len(points)
	if domain == mesh.DomainCorner {
		want = len(sf.Corners())
	}
	if attr.Len() != want {
		return nil, fmt.Errorf("%w: attribute %q has %d slots, mesh needs %d", ErrUnsupportedTarget, attribute, attr.Len(), want)
	}

	t := &target{
		id:       sf.MeshID(),
		surface:  sf,
		attr:     attr,
		domain:   domain,
		index:    kdtree.Build(points),
		corners:  corners,
		original: attr.Snapshot(),
	}
	t.baseline, t.saved = captureBaseline(sf, attr, attribute+SaveSuffix)
	return t, nil
}

// resolveDomain picks the storage domain once per session. An existing
// attribute keeps its domain; a new one prefers points over corners.
func resolveDomain(sf Surface, existing *mesh.ColorAttribute) (mesh.Domain, error) {
	var hasPoint, hasCorner bool
	for _, d := range sf.SupportedDomains() {
		switch d {
		case mesh.DomainPoint:
			hasPoint = true
		case mesh.DomainCorner:
			hasCorner = true
		}
	}

	if existing != nil {
		if (existing.Domain == mesh.DomainPoint && hasPoint) || (existing.Domain == mesh.DomainCorner && hasCorner) {
			return existing.Domain, nil
		}
		return 0, fmt.Errorf("%w: attribute %q uses unsupported %s domain", ErrUnsupportedTarget, existing.Name, existing.Domain)
	}

	switch {
	case hasPoint:
		return mesh.DomainPoint, nil
	case hasCorner:
		return mesh.DomainCorner, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedTarget, mesh.ErrNoColorDomain)
	}
}

// captureBaseline copies the saved layer when it matches the live attribute,
// otherwise returns opaque black.
func captureBaseline(sf Surface, live *mesh.ColorAttribute, savedName string) ([]mesh.Color, bool) {
	base := make([]mesh.Color, live.Len())
	saved := sf.ColorAttribute(savedName)
	if saved != nil && saved.Domain == live.Domain && saved.Len() == live.Len() {
		for i, c := range saved.Data {
			base[i] = live.Stored(c)
		}
		return base, true
	}
	if saved != nil {
		logger.Named("paint").Warn("saved layer does not match live attribute, using black",
			zap.String("mesh", sf.MeshID()),
			zap.String("layer", savedName))
	}
	black := live.Stored(mesh.Black)
	for i := range base {
		base[i] = black
	}
	return base, false
}

// Emitter returns the emitter the session was started with.
func (s *Session) Emitter() Emitter {
	return s.emitter
}

// Attribute returns the painted attribute name.
func (s *Session) Attribute() string {
	return s.attribute
}

// Skipped returns the targets rejected by Begin.
func (s *Session) Skipped() []*TargetError {
	return s.skipped
}

// Targets describes the registered targets in pass order.
func (s *Session) Targets() []TargetInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TargetInfo, len(s.targets))
	for i, t := range s.targets {
		out[i] = TargetInfo{
			ID:     t.id,
			Domain: t.domain,
			Points: t.index.Len(),
			Slots:  t.attr.Len(),
			Saved:  t.saved,
		}
	}
	return out
}

// Repaint resets every target to its baseline and blends in the light of an
// emitter with the given settings at pos/rot. A failing target is left
// untouched and reported in the returned error; the others are still painted.
func (s *Session) Repaint(settings lighting.Settings, pos math.Vec3, rot math.Quat) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	start := time.Now()
	ev := lighting.NewEvaluator(settings, pos, rot)
	emission := mesh.RGB(settings.Color[0], settings.Color[1], settings.Color[2])

	var errs error
	for _, t := range s.targets {
		if err := t.repaint(ev, settings, pos, emission); err != nil {
			s.log.Warn("repaint failed", zap.String("mesh", t.id), zap.Error(err))
			errs = multierr.Append(errs, &TargetError{TargetID: t.id, Err: err})
		}
	}

	s.log.Debug("repaint pass",
		zap.Stringer("light", settings.Type),
		zap.Int("targets", len(s.targets)),
		zap.Duration("elapsed", time.Since(start)))
	return errs
}

func (t *target) repaint(ev *lighting.Evaluator, settings lighting.Settings, pos math.Vec3, emission mesh.Color) error {
	if n := t.surface.PointCount(); n != t.index.Len() {
		return fmt.Errorf("%w: index holds %d points, mesh has %d", ErrStaleIndex, t.index.Len(), n)
	}
	if t.attr.Len() != len(t.baseline) {
		return fmt.Errorf("%w: attribute has %d slots, baseline has %d", ErrStaleIndex, t.attr.Len(), len(t.baseline))
	}

	copy(t.attr.Data, t.baseline)

	visit := func(i int, dist float32) {
		f := ev.Intensity(t.index.Point(i), dist)
		if t.corners == nil {
			t.attr.Set(i, Composite(t.attr.Data[i], emission, f, settings.Darken))
			return
		}
		for _, c := range t.corners.CornersOf(i) {
			t.attr.Set(int(c), Composite(t.attr.Data[c], emission, f, settings.Darken))
		}
	}

	if settings.Type == lighting.Sun {
		for i := 0; i < t.index.Len(); i++ {
			visit(i, t.index.Point(i).Distance(pos))
		}
		return nil
	}

	t.index.Range(pos, settings.Range, func(i int, distSq float32) {
		visit(i, math32.Sqrt(distSq))
	})
	return nil
}

// SaveLayer copies the live attribute of every target into the saved layer
// and makes it the baseline for later passes.
func (s *Session) SaveLayer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	var errs error
	for _, t := range s.targets {
		if err := saveLayer(t.surface, t.attr, s.attribute+SaveSuffix); err != nil {
			errs = multierr.Append(errs, &TargetError{TargetID: t.id, Err: err})
			continue
		}
		t.baseline = t.attr.Snapshot()
		t.saved = true
	}
	s.log.Info("layer saved", zap.String("layer", s.attribute+SaveSuffix))
	return errs
}

// End finishes the session. Without commit every target is restored to the
// colors it had when the session began. Calling End twice is a no-op.
func (s *Session) End(commit bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.painter.release(s)

	var errs error
	if !commit {
		for _, t := range s.targets {
			if err := t.attr.Restore(t.original); err != nil {
				errs = multierr.Append(errs, &TargetError{TargetID: t.id, Err: err})
			}
		}
	}

	s.log.Info("paint session ended", zap.Bool("commit", commit), zap.Int("targets", len(s.targets)))
	s.targets = nil
	return errs
}

// Closed reports whether End has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// SaveLayer copies the named attribute into its saved layer on every surface
// that has it, outside of any session.
func SaveLayer(surfaces []Surface, attribute string) error {
	if attribute == "" {
		return fmt.Errorf("%w: empty attribute name", ErrInvalidConfiguration)
	}
	var errs error
	for _, sf := range surfaces {
		live := sf.ColorAttribute(attribute)
		if live == nil {
			continue
		}
		if err := saveLayer(sf, live, attribute+SaveSuffix); err != nil {
			errs = multierr.Append(errs, &TargetError{TargetID: sf.MeshID(), Err: err})
		}
	}
	return errs
}

func saveLayer(sf Surface, live *mesh.ColorAttribute, name string) error {
	saved := sf.ColorAttribute(name)
	if saved == nil {
		var err error
		saved, err = sf.AddColorAttribute(name, live.Domain)
		if err != nil {
			return err
		}
	}
	if saved.Domain != live.Domain {
		return fmt.Errorf("saved layer %q is %s domain, live is %s", name, saved.Domain, live.Domain)
	}
	return saved.Restore(live.Data)
}
