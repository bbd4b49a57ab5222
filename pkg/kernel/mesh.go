package kernel

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Point3 is a vertex position in model units.
type Point3 = v3.Vec

// Triangle is an oriented facet. The vertex order defines the outward
// normal by the right-hand rule.
type Triangle [3]Point3

// Normal returns the unnormalized facet normal (v1-v0) x (v2-v0).
func (t Triangle) Normal() Point3 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
}

// Centroid returns the mean of the three vertices.
func (t Triangle) Centroid() Point3 {
	return t[0].Add(t[1]).Add(t[2]).MulScalar(1.0 / 3.0)
}

// Mesh is an ordered triangle soup as produced by a decoder.
// It is treated as read-only once built.
type Mesh struct {
	Name      string     `json:"name"`
	Triangles []Triangle `json:"triangles"`
}

// FromSDF converts sdfx triangles into a Mesh.
func FromSDF(name string, tris []*sdf.Triangle3) *Mesh {
	m := &Mesh{Name: name, Triangles: make([]Triangle, 0, len(tris))}
	for _, t := range tris {
		if t == nil {
			continue
		}
		m.Triangles = append(m.Triangles, Triangle(*t))
	}
	return m
}

// SDF returns the triangles as sdfx triangles sharing m's storage.
func (m *Mesh) SDF() []*sdf.Triangle3 {
	if m == nil {
		return nil
	}
	out := make([]*sdf.Triangle3, len(m.Triangles))
	for i := range m.Triangles {
		out[i] = (*sdf.Triangle3)(&m.Triangles[i])
	}
	return out
}

// VertexCount returns the number of (unshared) vertices.
func (m *Mesh) VertexCount() int {
	return m.TriangleCount() * 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Triangles)
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return m.TriangleCount() == 0
}

// Reversed returns a copy with the winding of every triangle flipped.
func (m *Mesh) Reversed() *Mesh {
	return m.mapTriangles(func(t Triangle) Triangle {
		return Triangle{t[0], t[2], t[1]}
	})
}

// Translated returns a copy with every vertex moved by off.
func (m *Mesh) Translated(off Point3) *Mesh {
	return m.mapTriangles(func(t Triangle) Triangle {
		return Triangle{t[0].Add(off), t[1].Add(off), t[2].Add(off)}
	})
}

// Scaled returns a copy with every vertex scaled uniformly about the origin.
func (m *Mesh) Scaled(k float64) *Mesh {
	return m.mapTriangles(func(t Triangle) Triangle {
		return Triangle{t[0].MulScalar(k), t[1].MulScalar(k), t[2].MulScalar(k)}
	})
}

func (m *Mesh) mapTriangles(f func(Triangle) Triangle) *Mesh {
	out := &Mesh{Name: m.Name, Triangles: make([]Triangle, len(m.Triangles))}
	for i, t := range m.Triangles {
		out.Triangles[i] = f(t)
	}
	return out
}
