// Package scene loads paintable meshes from YAML files and writes painted
// results back in the same format.
package scene

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vertexlight/internal/logger"
	"github.com/Faultbox/vertexlight/internal/mesh"
	"github.com/Faultbox/vertexlight/internal/paint"
	"github.com/Faultbox/vertexlight/pkg/math"
)

// File is the on-disk scene document.
type File struct {
	Meshes []MeshSpec `yaml:"meshes"`
}

// MeshSpec describes one mesh.
type MeshSpec struct {
	ID         string          `yaml:"id"`
	Points     [][3]float32    `yaml:"points,flow"`
	Faces      [][]int         `yaml:"faces,flow,omitempty"`
	Transform  *TransformSpec  `yaml:"transform,omitempty"`
	Domains    []mesh.Domain   `yaml:"domains,omitempty"` // Omitted means both
	ColorType  mesh.DataType   `yaml:"color_type,omitempty"`
	Attributes []AttributeSpec `yaml:"attributes,omitempty"`
}

// TransformSpec is a translate-rotate-scale transform. Rotation is a
// quaternion in x, y, z, w order.
type TransformSpec struct {
	Translate [3]float32  `yaml:"translate,flow"`
	Rotate    *[4]float32 `yaml:"rotate,flow,omitempty"`
	Scale     *[3]float32 `yaml:"scale,flow,omitempty"`
}

// AttributeSpec is a stored color attribute. Colors are linear RGBA.
// A nil Type inherits the mesh color type.
type AttributeSpec struct {
	Name   string         `yaml:"name"`
	Domain mesh.Domain    `yaml:"domain"`
	Type   *mesh.DataType `yaml:"type,omitempty"`
	Colors [][4]float32   `yaml:"colors,flow"`
}

// Scene is a loaded set of meshes.
type Scene struct {
	Meshes []*mesh.Mesh

	file File
	log  *zap.Logger
}

// Load reads a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	s.log.Info("scene loaded", zap.String("path", path), zap.Int("meshes", len(s.Meshes)))
	return s, nil
}

// Parse decodes a scene document. Every invalid mesh is reported; the
// scene is only returned when all meshes are valid.
func Parse(data []byte) (*Scene, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	s := &Scene{file: f, log: logger.Named("scene")}
	seen := make(map[string]bool, len(f.Meshes))
	var errs error
	for i, ms := range f.Meshes {
		if ms.ID == "" {
			errs = multierr.Append(errs, fmt.Errorf("mesh %d: missing id", i))
			continue
		}
		if seen[ms.ID] {
			errs = multierr.Append(errs, fmt.Errorf("mesh %s: duplicate id", ms.ID))
			continue
		}
		seen[ms.ID] = true

		m, err := ms.build()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		s.Meshes = append(s.Meshes, m)
	}
	if errs != nil {
		return nil, errs
	}
	return s, nil
}

func (ms MeshSpec) build() (*mesh.Mesh, error) {
	points := make([]math.Vec3, len(ms.Points))
	for i, p := range ms.Points {
		points[i] = math.Vec3{X: p[0], Y: p[1], Z: p[2]}
	}

	m := mesh.New(ms.ID, points, ms.Faces)
	m.ColorType = ms.ColorType
	if ms.Domains != nil {
		m.Domains = ms.Domains
	}
	if ms.Transform != nil {
		m.Transform = ms.Transform.Matrix()
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	for _, as := range ms.Attributes {
		a, err := m.AddColorAttribute(as.Name, as.Domain)
		if err != nil {
			return nil, err
		}
		if len(as.Colors) != a.Len() {
			return nil, fmt.Errorf("mesh %s: attribute %q has %d colors, want %d", ms.ID, as.Name, len(as.Colors), a.Len())
		}
		if as.Type != nil {
			a.Type = *as.Type
		}
		for i, c := range as.Colors {
			a.Set(i, mesh.Color{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}
	return m, nil
}

// Matrix returns the local-to-world matrix.
func (t TransformSpec) Matrix() math.Mat4 {
	rot := math.QuatIdentity()
	if t.Rotate != nil {
		rot = math.Quat{X: t.Rotate[0], Y: t.Rotate[1], Z: t.Rotate[2], W: t.Rotate[3]}.Normalize()
	}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}
	if t.Scale != nil {
		scale = math.Vec3{X: t.Scale[0], Y: t.Scale[1], Z: t.Scale[2]}
	}
	return math.Compose(math.Vec3{X: t.Translate[0], Y: t.Translate[1], Z: t.Translate[2]}, rot, scale)
}

// Surfaces returns the meshes as paint targets in file order.
func (s *Scene) Surfaces() []paint.Surface {
	out := make([]paint.Surface, len(s.Meshes))
	for i, m := range s.Meshes {
		out[i] = m
	}
	return out
}

// ConvertAttribute moves the named attribute into domain to on every mesh
// that has it. Meshes without the attribute are left alone. Failures are
// collected per mesh and do not stop the others.
func (s *Scene) ConvertAttribute(name string, to mesh.Domain) error {
	var errs error
	converted := 0
	for _, m := range s.Meshes {
		a := m.ColorAttribute(name)
		if a == nil || a.Domain == to {
			continue
		}
		if err := mesh.ConvertDomain(m, name, to); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		converted++
	}
	s.log.Info("attribute converted",
		zap.String("attribute", name),
		zap.Stringer("domain", to),
		zap.Int("meshes", converted))
	return errs
}

// Mesh returns the mesh with the given id or nil.
func (s *Scene) Mesh(id string) *mesh.Mesh {
	for _, m := range s.Meshes {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Encode returns the scene document with the current color attributes.
func (s *Scene) Encode() ([]byte, error) {
	f := File{Meshes: make([]MeshSpec, len(s.file.Meshes))}
	copy(f.Meshes, s.file.Meshes)
	for i := range f.Meshes {
		m := s.Mesh(f.Meshes[i].ID)
		if m == nil {
			continue
		}
		f.Meshes[i].Attributes = encodeAttributes(m)
	}
	return yaml.Marshal(&f)
}

func encodeAttributes(m *mesh.Mesh) []AttributeSpec {
	attrs := m.Attributes()
	if len(attrs) == 0 {
		return nil
	}
	out := make([]AttributeSpec, len(attrs))
	for i, a := range attrs {
		colors := make([][4]float32, a.Len())
		for j, c := range a.Data {
			colors[j] = [4]float32{c.R, c.G, c.B, c.A}
		}
		typ := a.Type
		out[i] = AttributeSpec{Name: a.Name, Domain: a.Domain, Type: &typ, Colors: colors}
	}
	return out
}

// Export writes the scene with its current colors to path.
func (s *Scene) Export(path string) error {
	data, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encoding scene: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	s.log.Info("scene exported", zap.String("path", path), zap.Int("meshes", len(s.Meshes)))
	return nil
}
