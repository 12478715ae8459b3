// Package mesh provides the paintable mesh model: surface points, polygon
// corners and named color attributes stored per point or per corner.
package mesh

import (
	"fmt"
	"strings"
)

// Domain is where a color attribute stores its values.
type Domain uint8

const (
	// DomainPoint stores one color per surface point.
	DomainPoint Domain = iota
	// DomainCorner stores one color per polygon corner.
	DomainCorner
)

// String returns the lowercase domain name.
func (d Domain) String() string {
	switch d {
	case DomainPoint:
		return "point"
	case DomainCorner:
		return "corner"
	default:
		return fmt.Sprintf("domain(%d)", d)
	}
}

// ParseDomain converts a name to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "point", "vertex":
		return DomainPoint, nil
	case "corner", "face_corner", "loop":
		return DomainCorner, nil
	default:
		return 0, fmt.Errorf("unknown color domain %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Domain) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Domain) UnmarshalText(text []byte) error {
	v, err := ParseDomain(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// DataType is the storage precision of a color attribute.
type DataType uint8

const (
	// FloatColor stores full precision linear colors.
	FloatColor DataType = iota
	// ByteColor stores 8-bit sRGB colors; writes are quantized.
	ByteColor
)

// String returns the lowercase type name.
func (t DataType) String() string {
	if t == ByteColor {
		return "byte"
	}
	return "float"
}

// MarshalText implements encoding.TextMarshaler.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "float":
		*t = FloatColor
	case "byte":
		*t = ByteColor
	default:
		return fmt.Errorf("unknown color type %q", text)
	}
	return nil
}

// Color is a linear RGBA color with channels in [0, 1].
type Color struct {
	R, G, B, A float32
}

// Black is opaque black, the color of an unpainted slot.
var Black = Color{0, 0, 0, 1}

// RGB returns a Color with the given channels and full opacity.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}
