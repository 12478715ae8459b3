package lighting

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/vertexlight/pkg/math"
)

// LocalForward is the emitter-space axis a light points along before rotation.
var LocalForward = math.Vec3{Y: 1}

// Forward returns the world-space forward axis for an emitter orientation.
func Forward(rot math.Quat) math.Vec3 {
	return rot.Normalize().Rotate(LocalForward)
}

// Evaluator computes intensities for one emitter state. Build one per
// repaint pass; it is read-only afterwards.
type Evaluator struct {
	settings  Settings
	position  math.Vec3
	forward   math.Vec3
	inverse   math.Quat
	spotLimit float32 // Half-angle in radians
}

// NewEvaluator prepares the per-pass constants for s at the given transform.
func NewEvaluator(s Settings, pos math.Vec3, rot math.Quat) *Evaluator {
	r := rot.Normalize()
	return &Evaluator{
		settings:  s,
		position:  pos,
		forward:   r.Rotate(LocalForward),
		inverse:   r.Conjugate(),
		spotLimit: s.SpotAngle * math32.Pi / 180,
	}
}

// Intensity returns the shaped illumination of point in [0, 1].
// dist is the point's distance from the emitter.
func (e *Evaluator) Intensity(point math.Vec3, dist float32) float32 {
	return Shape(e.settings.Mode, e.Base(point, dist)*e.settings.Strength)
}

// Base returns the unshaped geometric falloff of point in [0, 1].
func (e *Evaluator) Base(point math.Vec3, dist float32) float32 {
	s := &e.settings
	switch s.Type {
	case Sun:
		dir, ok := point.Sub(e.position).TryNormalize()
		if !ok {
			return 0
		}
		return max(0, e.forward.Dot(dir))

	case Point:
		return radial(dist, s.Range)

	case Spot:
		dir, ok := point.Sub(e.position).TryNormalize()
		if !ok {
			return 0
		}
		angle := math32.Acos(min(1, max(-1, e.forward.Dot(dir))))
		if angle > e.spotLimit {
			return 0
		}
		return radial(dist, s.Range)

	case Area:
		if dist > s.Range {
			return 0
		}
		local := e.inverse.Rotate(point.Sub(e.position))
		depth := -local.Z
		if math32.Abs(local.X) > s.AreaWidth/2 || math32.Abs(local.Y) > s.AreaHeight/2 {
			return 0
		}
		if depth < 0 || depth > s.Range {
			return 0
		}
		return max(0, 1-depth/s.Range)
	}
	return 0
}

// Intensity evaluates a single point without reusing per-pass constants.
func Intensity(s Settings, pos math.Vec3, rot math.Quat, point math.Vec3, dist float32) float32 {
	return NewEvaluator(s, pos, rot).Intensity(point, dist)
}

// Shape applies the blend mode to a strength-scaled intensity and clamps to [0, 1].
func Shape(mode BlendMode, f float32) float32 {
	switch mode {
	case Sharp:
		f *= f
	case Dirty:
		f *= 0.5
	}
	if f != f || f < 0 {
		return 0
	}
	return min(f, 1)
}

// radial is the linear falloff shared by Point and Spot.
func radial(dist, rng float32) float32 {
	if rng <= 0 || dist > rng {
		return 0
	}
	return max(0, 1-dist/rng)
}
