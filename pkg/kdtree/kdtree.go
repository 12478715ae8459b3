// Package kdtree provides an immutable 3-d tree over point coordinates for
// nearest and radius queries.
package kdtree

import (
	"github.com/Faultbox/vertexlight/pkg/math"
)

// Hit is a point found by a range query.
type Hit struct {
	Index  int     // Index into the slice passed to Build
	DistSq float32 // Squared distance to the query center
}

// Tree is a balanced k-d tree stored implicitly in a permutation array:
// the subtree spanning order[lo:hi] has its root at (lo+hi)/2.
// A Tree is read-only after Build and safe for concurrent queries.
type Tree struct {
	points []math.Vec3
	order  []int32
	axes   []uint8
}

// Build constructs a tree over points. The slice is copied.
func Build(points []math.Vec3) *Tree {
	n := len(points)
	t := &Tree{
		points: append([]math.Vec3(nil), points...),
		order:  make([]int32, n),
		axes:   make([]uint8, n),
	}
	for i := range t.order {
		t.order[i] = int32(i)
	}
	t.build(0, n)
	return t
}

// Len returns the number of indexed points.
func (t *Tree) Len() int {
	return len(t.points)
}

// Point returns the coordinate stored for index i.
func (t *Tree) Point(i int) math.Vec3 {
	return t.points[i]
}

func (t *Tree) build(lo, hi int) {
	if hi-lo <= 0 {
		return
	}
	mid := (lo + hi) / 2
	axis, spread := t.widestAxis(lo, hi)
	if spread > 0 {
		t.selectNth(lo, hi, mid, axis)
	}
	t.axes[mid] = uint8(axis)
	t.build(lo, mid)
	t.build(mid+1, hi)
}

// widestAxis returns the axis with the largest coordinate extent in order[lo:hi].
func (t *Tree) widestAxis(lo, hi int) (int, float32) {
	first := t.points[t.order[lo]]
	minV, maxV := first, first
	for _, idx := range t.order[lo+1 : hi] {
		p := t.points[idx]
		minV.X, maxV.X = min(minV.X, p.X), max(maxV.X, p.X)
		minV.Y, maxV.Y = min(minV.Y, p.Y), max(maxV.Y, p.Y)
		minV.Z, maxV.Z = min(minV.Z, p.Z), max(maxV.Z, p.Z)
	}
	ext := maxV.Sub(minV)
	axis, spread := 0, ext.X
	if ext.Y > spread {
		axis, spread = 1, ext.Y
	}
	if ext.Z > spread {
		axis, spread = 2, ext.Z
	}
	return axis, spread
}

// selectNth reorders order[lo:hi] so that position k holds the element that
// would be there if sorted along axis, with smaller coordinates before it and
// larger or equal ones after it.
func (t *Tree) selectNth(lo, hi, k, axis int) {
	for hi-lo > 1 {
		p := t.partition(lo, hi, axis)
		switch {
		case k < p:
			hi = p
		case k > p:
			lo = p + 1
		default:
			return
		}
	}
}

func (t *Tree) partition(lo, hi, axis int) int {
	o := t.order
	mid := lo + (hi-lo)/2
	last := hi - 1
	o[mid], o[last] = o[last], o[mid]
	pivot := t.points[o[last]].Axis(axis)

	store := lo
	for i := lo; i < last; i++ {
		if t.points[o[i]].Axis(axis) < pivot {
			o[i], o[store] = o[store], o[i]
			store++
		}
	}
	o[store], o[last] = o[last], o[store]
	return store
}

// Range calls fn for every point within radius of center, inclusive.
// Visit order is unspecified. A negative radius matches nothing.
func (t *Tree) Range(center math.Vec3, radius float32, fn func(index int, distSq float32)) {
	if radius < 0 || len(t.points) == 0 {
		return
	}
	t.rangeSearch(0, len(t.order), center, radius, radius*radius, fn)
}

func (t *Tree) rangeSearch(lo, hi int, c math.Vec3, r, r2 float32, fn func(int, float32)) {
	for lo < hi {
		mid := (lo + hi) / 2
		idx := t.order[mid]
		p := t.points[idx]
		if d2 := p.DistanceSq(c); d2 <= r2 {
			fn(int(idx), d2)
		}

		axis := int(t.axes[mid])
		diff := c.Axis(axis) - p.Axis(axis)
		goLeft := diff <= r
		goRight := diff >= -r

		switch {
		case goLeft && goRight:
			t.rangeSearch(lo, mid, c, r, r2, fn)
			lo = mid + 1
		case goLeft:
			hi = mid
		case goRight:
			lo = mid + 1
		default:
			return
		}
	}
}

// RangeSlice collects the results of Range.
func (t *Tree) RangeSlice(center math.Vec3, radius float32) []Hit {
	var hits []Hit
	t.Range(center, radius, func(index int, distSq float32) {
		hits = append(hits, Hit{Index: index, DistSq: distSq})
	})
	return hits
}

// Nearest returns the index of the point closest to q and its squared distance.
// ok is false for an empty tree.
func (t *Tree) Nearest(q math.Vec3) (index int, distSq float32, ok bool) {
	if len(t.points) == 0 {
		return 0, 0, false
	}
	best := int32(-1)
	var bestD2 float32
	t.nearest(0, len(t.order), q, &best, &bestD2)
	return int(best), bestD2, true
}

func (t *Tree) nearest(lo, hi int, q math.Vec3, best *int32, bestD2 *float32) {
	if lo >= hi {
		return
	}
	mid := (lo + hi) / 2
	idx := t.order[mid]
	p := t.points[idx]
	if d2 := p.DistanceSq(q); *best < 0 || d2 < *bestD2 {
		*best, *bestD2 = idx, d2
	}

	axis := int(t.axes[mid])
	diff := q.Axis(axis) - p.Axis(axis)
	nearLo, nearHi, farLo, farHi := lo, mid, mid+1, hi
	if diff > 0 {
		nearLo, nearHi, farLo, farHi = mid+1, hi, lo, mid
	}
	t.nearest(nearLo, nearHi, q, best, bestD2)
	if diff*diff <= *bestD2 {
		t.nearest(farLo, farHi, q, best, bestD2)
	}
}
