// Package paint blends emitter light into mesh color attributes. A Painter
// owns at most one Session, which holds the per-mesh spatial index, corner
// map and baseline colors used to repaint from scratch on every pass.
package paint

import "github.com/Faultbox/vertexlight/internal/mesh"

// DarkenFactor scales the blend rate when darken is set.
const DarkenFactor = 0.5

// Composite moves existing toward emission by intensity, per channel.
// Alpha is always 1. With darken the blend rate is halved.
func Composite(existing, emission mesh.Color, intensity float32, darken bool) mesh.Color {
	k := intensity
	if darken {
		k *= DarkenFactor
	}
	k = clamp01(k)
	return mesh.Color{
		R: clamp01(lerp(existing.R, emission.R, k)),
		G: clamp01(lerp(existing.G, emission.G, k)),
		B: clamp01(lerp(existing.B, emission.B, k)),
		A: 1,
	}
}

// lerp is exact at both ends: k=0 yields a and k=1 yields b.
func lerp(a, b, k float32) float32 {
	return a*(1-k) + b*k
}

func clamp01(x float32) float32 {
	if x != x || x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
