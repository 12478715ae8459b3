package mesh

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/lucasb-eyer/go-colorful"
)

// ColorAttribute is a named color layer on a mesh.
type ColorAttribute struct {
	Name   string
	Domain Domain
	Type   DataType
	Data   []Color
}

// Len returns the number of color slots.
func (a *ColorAttribute) Len() int {
	return len(a.Data)
}

// Get returns the color at slot i.
func (a *ColorAttribute) Get(i int) Color {
	return a.Data[i]
}

// Set writes the color at slot i, quantizing byte attributes.
func (a *ColorAttribute) Set(i int, c Color) {
	a.Data[i] = a.Stored(c)
}

// Stored returns the value Set would write for c.
func (a *ColorAttribute) Stored(c Color) Color {
	if a.Type == ByteColor {
		return quantize(c)
	}
	return c
}

// Fill writes c to every slot.
func (a *ColorAttribute) Fill(c Color) {
	c = a.Stored(c)
	for i := range a.Data {
		a.Data[i] = c
	}
}

// Snapshot returns a copy of all slots.
func (a *ColorAttribute) Snapshot() []Color {
	return append([]Color(nil), a.Data...)
}

// Restore overwrites all slots with data captured by Snapshot.
// Values are copied as-is without quantization.
func (a *ColorAttribute) Restore(data []Color) error {
	if len(data) != len(a.Data) {
		return fmt.Errorf("attribute %q: restore size %d does not match %d slots", a.Name, len(data), len(a.Data))
	}
	copy(a.Data, data)
	return nil
}

// quantize rounds a linear color to the nearest 8-bit sRGB value.
func quantize(c Color) Color {
	srgb := colorful.LinearRgb(float64(c.R), float64(c.G), float64(c.B)).Clamped()
	r8, g8, b8 := srgb.RGB255()
	q := colorful.Color{R: float64(r8) / 255, G: float64(g8) / 255, B: float64(b8) / 255}
	r, g, b := q.LinearRgb()
	return Color{
		R: float32(r),
		G: float32(g),
		B: float32(b),
		A: math32.Round(clamp01(c.A)*255) / 255,
	}
}

func clamp01(x float32) float32 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
