package mesh

// CornerMap maps a point index to the corners that reference it.
type CornerMap struct {
	offsets []int32
	corners []int32
}

// NewCornerMap builds the point to corner mapping from a corner to point list.
// Corners referencing points outside [0, pointCount) are ignored.
func NewCornerMap(pointCount int, cornerPoints []int) *CornerMap {
	counts := make([]int32, pointCount+1)
	for _, p := range cornerPoints {
		if p >= 0 && p < pointCount {
			counts[p+1]++
		}
	}
	for i := 1; i <= pointCount; i++ {
		counts[i] += counts[i-1]
	}

	m := &CornerMap{
		offsets: counts,
		corners: make([]int32, counts[pointCount]),
	}
	fill := append([]int32(nil), counts[:pointCount]...)
	for c, p := range cornerPoints {
		if p >= 0 && p < pointCount {
			m.corners[fill[p]] = int32(c)
			fill[p]++
		}
	}
	return m
}

// CornersOf returns the corners sharing point p in ascending order.
// The slice aliases internal storage and must not be modified.
func (m *CornerMap) CornersOf(p int) []int32 {
	if p < 0 || p+1 >= len(m.offsets) {
		return nil
	}
	return m.corners[m.offsets[p]:m.offsets[p+1]]
}

// PointCount returns the number of points the map was built for.
func (m *CornerMap) PointCount() int {
	return len(m.offsets) - 1
}
