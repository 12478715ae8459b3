package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/mesh"
	"github.com/Faultbox/vertexlight/internal/paint"
	"github.com/Faultbox/vertexlight/pkg/math"
)

const twoMeshes = `
meshes:
  - id: floor
    points: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
    faces: [[0, 1, 2, 3]]
    transform:
      translate: [10, 0, 0]
      scale: [2, 2, 2]
  - id: wall
    points: [[0, 0, 0], [0, 0, 1], [0, 1, 1]]
    faces: [[0, 1, 2]]
    domains: [corner]
    color_type: byte
    attributes:
      - name: VertexLight
        domain: corner
        colors: [[1, 0, 0, 1], [0, 1, 0, 1], [0, 0, 1, 1]]
`

func sessionSettings() lighting.Settings {
	s := lighting.DefaultSettings()
	s.Range = 1
	return s
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, t.TempDir(), "scene.yaml", twoMeshes)

	s, err := Load(path)
	require.NoError(t, err)
	require.Len(t, s.Meshes, 2)

	floor := s.Mesh("floor")
	require.NotNil(t, floor)
	assert.Equal(t, []mesh.Domain{mesh.DomainPoint, mesh.DomainCorner}, floor.SupportedDomains())
	world := floor.WorldPoints()
	assert.InDelta(t, 12, world[1].X, 1e-6)
	assert.InDelta(t, 2, world[2].Y, 1e-6)

	wall := s.Mesh("wall")
	require.NotNil(t, wall)
	assert.Equal(t, []mesh.Domain{mesh.DomainCorner}, wall.SupportedDomains())
	assert.Equal(t, mesh.ByteColor, wall.ColorType)
	attr := wall.ColorAttribute("VertexLight")
	require.NotNil(t, attr)
	assert.Equal(t, mesh.DomainCorner, attr.Domain)
	assert.Equal(t, mesh.ByteColor, attr.Type)
	assert.Equal(t, mesh.RGB(0, 1, 0), attr.Get(1))

	assert.Nil(t, s.Mesh("missing"))
	assert.Len(t, s.Surfaces(), 2)
}

func TestAttributeTypeInheritsMeshColorType(t *testing.T) {
	doc := `
meshes:
  - id: m
    points: [[0, 0, 0], [1, 0, 0]]
    domains: [point]
    color_type: byte
    attributes:
      - name: Inherited
        domain: point
        colors: [[0.5, 0.5, 0.5, 1], [0.5, 0.5, 0.5, 1]]
      - name: Explicit
        domain: point
        type: float
        colors: [[0.5, 0.5, 0.5, 1], [0.5, 0.5, 0.5, 1]]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)
	m := s.Mesh("m")
	require.NotNil(t, m)

	inherited := m.ColorAttribute("Inherited")
	require.NotNil(t, inherited)
	assert.Equal(t, mesh.ByteColor, inherited.Type)
	grey := mesh.RGB(0.5, 0.5, 0.5)
	assert.Equal(t, inherited.Stored(grey), inherited.Get(0))
	assert.NotEqual(t, grey, inherited.Get(0))

	explicit := m.ColorAttribute("Explicit")
	require.NotNil(t, explicit)
	assert.Equal(t, mesh.FloatColor, explicit.Type)
	assert.Equal(t, grey, explicit.Get(0))

	data, err := s.Encode()
	require.NoError(t, err)
	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, mesh.ByteColor, back.Mesh("m").ColorAttribute("Inherited").Type)
	assert.Equal(t, mesh.FloatColor, back.Mesh("m").ColorAttribute("Explicit").Type)
}

func TestConvertAttribute(t *testing.T) {
	doc := `
meshes:
  - id: quad
    points: [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]
    faces: [[0, 1, 2, 3]]
    attributes:
      - name: Col
        domain: point
        colors: [[1, 0, 0, 1], [0, 1, 0, 1], [0, 0, 1, 1], [1, 1, 1, 1]]
  - id: corners-only
    points: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
    faces: [[0, 1, 2]]
    domains: [corner]
    attributes:
      - name: Col
        domain: corner
        colors: [[1, 1, 1, 1], [1, 1, 1, 1], [1, 1, 1, 1]]
  - id: bare
    points: [[0, 0, 0]]
`
	s, err := Parse([]byte(doc))
	require.NoError(t, err)

	require.NoError(t, s.ConvertAttribute("Col", mesh.DomainCorner))
	quad := s.Mesh("quad").ColorAttribute("Col")
	assert.Equal(t, mesh.DomainCorner, quad.Domain)
	assert.Equal(t, 4, quad.Len())
	assert.Equal(t, mesh.RGB(0, 0, 1), quad.Get(2))
	assert.Nil(t, s.Mesh("bare").ColorAttribute("Col"))

	err = s.ConvertAttribute("Col", mesh.DomainPoint)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Contains(t, err.Error(), "corners-only")
	assert.Equal(t, mesh.DomainPoint, quad.Domain)
	assert.Equal(t, mesh.RGB(0, 1, 0), quad.Get(1))
	assert.Equal(t, mesh.DomainCorner, s.Mesh("corners-only").ColorAttribute("Col").Domain)
}

func TestParseReportsEveryBadMesh(t *testing.T) {
	doc := `
meshes:
  - points: [[0, 0, 0]]
  - id: a
    points: [[0, 0, 0]]
  - id: a
    points: [[0, 0, 0]]
  - id: bad-face
    points: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
    faces: [[0, 1, 7]]
  - id: short-attr
    points: [[0, 0, 0], [1, 0, 0]]
    attributes:
      - name: Col
        domain: point
        colors: [[1, 1, 1, 1]]
`
	_, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
	assert.Contains(t, err.Error(), "missing id")
	assert.Contains(t, err.Error(), "duplicate id")
	assert.Contains(t, err.Error(), "bad-face")
	assert.Contains(t, err.Error(), "short-attr")
}

func TestParseRejectsUnknownDomain(t *testing.T) {
	_, err := Parse([]byte("meshes:\n  - id: m\n    points: [[0, 0, 0]]\n    domains: [edge]\n"))
	assert.Error(t, err)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(writeFile(t, dir, "scene.yaml", twoMeshes))
	require.NoError(t, err)

	// Paint the floor through a session
	emitter := StaticEmitter{Position: math.Vec3{X: 10}, Orientation: math.QuatIdentity()}
	sess, err := paint.NewPainter().Begin(emitter, s.Surfaces(), "VertexLight")
	require.NoError(t, err)
	settings := sessionSettings()
	pos, rot, _ := emitter.Transform()
	require.NoError(t, sess.Repaint(settings, pos, rot))
	require.NoError(t, sess.SaveLayer())
	require.NoError(t, sess.End(true))

	out := filepath.Join(dir, "out", "painted.yaml")
	require.NoError(t, s.Export(out))

	back, err := Load(out)
	require.NoError(t, err)
	for _, m := range s.Meshes {
		other := back.Mesh(m.ID)
		require.NotNil(t, other, m.ID)
		assert.Equal(t, m.WorldPoints(), other.WorldPoints())
		require.Len(t, other.Attributes(), len(m.Attributes()))
		for _, a := range m.Attributes() {
			b := other.ColorAttribute(a.Name)
			require.NotNil(t, b, a.Name)
			assert.Equal(t, a.Domain, b.Domain)
			assert.Equal(t, a.Type, b.Type)
			assert.Equal(t, a.Data, b.Data, "%s/%s", m.ID, a.Name)
		}
	}

	// The floor point under the emitter is fully lit
	floor := back.Mesh("floor").ColorAttribute("VertexLight")
	assert.Equal(t, mesh.RGB(1, 1, 1), floor.Get(0))
	assert.NotNil(t, back.Mesh("floor").ColorAttribute("VertexLight"+paint.SaveSuffix))
}
