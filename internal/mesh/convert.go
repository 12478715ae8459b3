package mesh

import "fmt"

// ConvertDomain rewrites the named attribute into another domain.
// Point to corner copies each point color to all of its corners; corner to
// point averages the corners of each point.
func ConvertDomain(m *Mesh, name string, to Domain) error {
	a := m.ColorAttribute(name)
	if a == nil {
		return fmt.Errorf("mesh %s: no attribute %q", m.ID, name)
	}
	if a.Domain == to {
		return nil
	}
	if !m.Supports(to) {
		return fmt.Errorf("mesh %s: %s domain not supported", m.ID, to)
	}

	corners := m.Corners()
	var data []Color
	switch to {
	case DomainCorner:
		data = make([]Color, len(corners))
		for c, p := range corners {
			data[c] = a.Data[p]
		}
	case DomainPoint:
		data = make([]Color, len(m.Points))
		cm := NewCornerMap(len(m.Points), corners)
		for p := range data {
			cs := cm.CornersOf(p)
			if len(cs) == 0 {
				data[p] = Black
				continue
			}
			var sum Color
			for _, c := range cs {
				v := a.Data[c]
				sum.R += v.R
				sum.G += v.G
				sum.B += v.B
				sum.A += v.A
			}
			n := float32(len(cs))
			data[p] = Color{sum.R / n, sum.G / n, sum.B / n, sum.A / n}
		}
	}

	a.Domain = to
	a.Data = data
	if a.Type == ByteColor {
		for i, c := range a.Data {
			a.Data[i] = quantize(c)
		}
	}
	return nil
}
