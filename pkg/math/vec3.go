// Package math provides float32 vector, rotation and transform types used by
// the painting engine.
package math

import "github.com/chewxy/math32"

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-6

// Vec3 is a 3D vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

// LengthSq returns the squared magnitude.
func (v Vec3) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length returns the magnitude.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.LengthSq())
}

// Normalize returns a unit vector, or the zero vector if v is shorter than Epsilon.
func (v Vec3) Normalize() Vec3 {
	n, _ := v.TryNormalize()
	return n
}

// TryNormalize returns a unit vector and true, or the zero vector and false
// when v is too short to have a direction.
func (v Vec3) TryNormalize() (Vec3, bool) {
	l := v.Length()
	if l < Epsilon {
		return Vec3{}, false
	}
	return Vec3{v.X / l, v.Y / l, v.Z / l}, true
}

// Distance returns the distance to another point.
func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// DistanceSq returns the squared distance to another point.
func (v Vec3) DistanceSq(other Vec3) float32 {
	return v.Sub(other).LengthSq()
}

// Axis returns the component along axis 0 (X), 1 (Y) or 2 (Z).
func (v Vec3) Axis(axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// AngleTo returns the angle in radians between v and other.
// Returns 0 if either vector has no direction.
func (v Vec3) AngleTo(other Vec3) float32 {
	a, okA := v.TryNormalize()
	b, okB := other.TryNormalize()
	if !okA || !okB {
		return 0
	}
	return math32.Acos(clamp(a.Dot(b), -1, 1))
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
