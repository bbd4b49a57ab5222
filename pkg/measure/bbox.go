package measure

import (
	"math"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min kernel.Point3 `json:"min"`
	Max kernel.Point3 `json:"max"`
}

// Size returns the extent along each axis.
func (b AABB) Size() kernel.Point3 {
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b AABB) Center() kernel.Point3 {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Volume returns the product of the extents.
func (b AABB) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Empty reports whether the box contains no points.
func (b AABB) Empty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// BoxAccumulator tracks per-axis vertex bounds. Use NewBoxAccumulator;
// the zero value is not empty.
type BoxAccumulator struct {
	min, max kernel.Point3
	count    int
}

// NewBoxAccumulator returns an accumulator whose bounds start at the
// +Inf/-Inf sentinels.
func NewBoxAccumulator() BoxAccumulator {
	inf := math.Inf(1)
	return BoxAccumulator{
		min: kernel.Point3{X: inf, Y: inf, Z: inf},
		max: kernel.Point3{X: -inf, Y: -inf, Z: -inf},
	}
}

// Add extends the bounds by the three vertices of t.
func (a *BoxAccumulator) Add(t kernel.Triangle) {
	for _, v := range t {
		a.include(v)
	}
	a.count++
}

func (a *BoxAccumulator) include(v kernel.Point3) {
	a.min.X = math.Min(a.min.X, v.X)
	a.min.Y = math.Min(a.min.Y, v.Y)
	a.min.Z = math.Min(a.min.Z, v.Z)
	a.max.X = math.Max(a.max.X, v.X)
	a.max.Y = math.Max(a.max.Y, v.Y)
	a.max.Z = math.Max(a.max.Z, v.Z)
}

// Merge folds bounds produced from another part of the mesh.
func (a *BoxAccumulator) Merge(o BoxAccumulator) {
	if o.count == 0 {
		return
	}
	a.include(o.min)
	a.include(o.max)
	a.count += o.count
}

// Count returns the number of triangles seen.
func (a BoxAccumulator) Count() int {
	return a.count
}

// Box returns the accumulated bounds. ok is false when no triangle was
// added, in which case the returned box is the zero AABB.
func (a BoxAccumulator) Box() (box AABB, ok bool) {
	if a.count == 0 {
		return AABB{}, false
	}
	return AABB{Min: a.min, Max: a.max}, true
}

// Volume returns the bounding box volume, or 0 for an empty accumulator.
func (a BoxAccumulator) Volume() float64 {
	box, ok := a.Box()
	if !ok {
		return 0
	}
	return box.Volume()
}

// BoundingBox returns the bounds of m and whether m has any triangles.
func BoundingBox(m *kernel.Mesh) (AABB, bool) {
	acc := NewBoxAccumulator()
	if m != nil {
		for _, t := range m.Triangles {
			acc.Add(t)
		}
	}
	return acc.Box()
}
