package measure

import (
	"errors"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

// ErrZeroNormal is returned when a projection plane normal has zero length.
var ErrZeroNormal = errors.New("measure: plane normal has zero length")

// Area returns the area of t.
func Area(t kernel.Triangle) float64 {
	return t.Normal().Length() / 2
}

// SurfaceArea returns the total area of all triangles in m.
func SurfaceArea(m *kernel.Mesh) float64 {
	var sum float64
	if m == nil {
		return 0
	}
	for _, t := range m.Triangles {
		sum += Area(t)
	}
	return sum
}

// projectOntoPlane projects p onto the plane through the origin with unit normal n.
func projectOntoPlane(p, n kernel.Point3) kernel.Point3 {
	return p.Sub(n.MulScalar(p.Dot(n)))
}

// FacingArea returns the summed area of every triangle of m projected onto
// the plane through the origin with the given normal. Front and back
// facing triangles both count, so a closed solid reports twice its
// silhouette area.
func FacingArea(m *kernel.Mesh, normal kernel.Point3) (float64, error) {
	l := normal.Length()
	if l == 0 {
		return 0, ErrZeroNormal
	}
	n := normal.MulScalar(1 / l)

	var sum float64
	if m == nil {
		return 0, nil
	}
	for _, t := range m.Triangles {
		p := kernel.Triangle{
			projectOntoPlane(t[0], n),
			projectOntoPlane(t[1], n),
			projectOntoPlane(t[2], n),
		}
		sum += Area(p)
	}
	return sum, nil
}
