package mesh

import (
	"errors"
	"fmt"

	"github.com/Faultbox/vertexlight/pkg/math"
)

// ErrNoColorDomain is returned when a mesh cannot hold any color attribute.
var ErrNoColorDomain = errors.New("mesh supports no color domain")

// Mesh is a polygon mesh with named color attributes.
type Mesh struct {
	ID        string
	Points    []math.Vec3 // Local-space positions
	Faces     [][]int     // Point indices per polygon, in corner order
	Transform math.Mat4   // Local to world; zero value means identity

	// Domains lists the color domains this mesh can store.
	// Empty means the mesh cannot be painted.
	Domains []Domain

	// ColorType is the data type used for attributes created by AddColorAttribute.
	ColorType DataType

	attributes []*ColorAttribute
	corners    []int
}

// New creates a mesh supporting both color domains with an identity transform.
func New(id string, points []math.Vec3, faces [][]int) *Mesh {
	return &Mesh{
		ID:        id,
		Points:    points,
		Faces:     faces,
		Transform: math.Identity(),
		Domains:   []Domain{DomainPoint, DomainCorner},
	}
}

// MeshID returns the mesh identifier.
func (m *Mesh) MeshID() string {
	return m.ID
}

// PointCount returns the number of surface points.
func (m *Mesh) PointCount() int {
	return len(m.Points)
}

// WorldPoints returns every point transformed to world space.
func (m *Mesh) WorldPoints() []math.Vec3 {
	out := make([]math.Vec3, len(m.Points))
	if m.Transform.IsZero() {
		copy(out, m.Points)
		return out
	}
	for i, p := range m.Points {
		out[i] = m.Transform.TransformVec3(p)
	}
	return out
}

// Corners returns the point index of every corner, in face order.
func (m *Mesh) Corners() []int {
	if m.corners == nil {
		n := 0
		for _, f := range m.Faces {
			n += len(f)
		}
		m.corners = make([]int, 0, n)
		for _, f := range m.Faces {
			m.corners = append(m.corners, f...)
		}
	}
	return m.corners
}

// SupportedDomains returns the color domains this mesh can store.
func (m *Mesh) SupportedDomains() []Domain {
	return m.Domains
}

// Supports reports whether the mesh can store colors in domain d.
func (m *Mesh) Supports(d Domain) bool {
	for _, s := range m.Domains {
		if s == d {
			return true
		}
	}
	return false
}

// ColorAttribute returns the named attribute or nil.
func (m *Mesh) ColorAttribute(name string) *ColorAttribute {
	for _, a := range m.attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Attributes returns all color attributes in creation order.
func (m *Mesh) Attributes() []*ColorAttribute {
	return m.attributes
}

// AddColorAttribute creates a named attribute filled with opaque black.
func (m *Mesh) AddColorAttribute(name string, domain Domain) (*ColorAttribute, error) {
	if name == "" {
		return nil, errors.New("attribute name is empty")
	}
	if m.ColorAttribute(name) != nil {
		return nil, fmt.Errorf("mesh %s: attribute %q already exists", m.ID, name)
	}
	if len(m.Domains) == 0 {
		return nil, fmt.Errorf("mesh %s: %w", m.ID, ErrNoColorDomain)
	}
	if !m.Supports(domain) {
		return nil, fmt.Errorf("mesh %s: %s domain not supported", m.ID, domain)
	}

	size := len(m.Points)
	if domain == DomainCorner {
		size = len(m.Corners())
	}
	a := &ColorAttribute{
		Name:   name,
		Domain: domain,
		Type:   m.ColorType,
		Data:   make([]Color, size),
	}
	a.Fill(Black)
	m.attributes = append(m.attributes, a)
	return a, nil
}

// SlotCount returns how many color slots an attribute in domain d holds.
func (m *Mesh) SlotCount(d Domain) int {
	if d == DomainCorner {
		return len(m.Corners())
	}
	return len(m.Points)
}

// Validate checks face indices and attribute sizes.
func (m *Mesh) Validate() error {
	for fi, f := range m.Faces {
		if len(f) < 3 {
			return fmt.Errorf("mesh %s: face %d has %d corners", m.ID, fi, len(f))
		}
		for _, p := range f {
			if p < 0 || p >= len(m.Points) {
				return fmt.Errorf("mesh %s: face %d references point %d of %d", m.ID, fi, p, len(m.Points))
			}
		}
	}
	for _, a := range m.attributes {
		if want := m.SlotCount(a.Domain); a.Len() != want {
			return fmt.Errorf("mesh %s: attribute %q has %d slots, want %d", m.ID, a.Name, a.Len(), want)
		}
	}
	return nil
}

// SetFaces replaces the polygon list and clears cached topology.
// Existing corner attributes become invalid and are removed.
func (m *Mesh) SetFaces(faces [][]int) {
	m.Faces = faces
	m.corners = nil
	kept := m.attributes[:0]
	for _, a := range m.attributes {
		if a.Domain != DomainCorner {
			kept = append(kept, a)
		}
	}
	m.attributes = kept
}
