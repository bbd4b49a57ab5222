package measure

import "github.com/pangeorg/rusty-stl/pkg/kernel"

// SignedVolume returns the signed volume of the tetrahedron spanned by t
// and the origin: dot(v0, cross(v1, v2)) / 6. Outward-wound triangles of a
// closed mesh sum to the enclosed volume.
func SignedVolume(t kernel.Triangle) float64 {
	return t[0].Dot(t[1].Cross(t[2])) / 6.0
}

// VolumeAccumulator sums signed tetrahedron volumes. The zero value is an
// empty accumulator with volume 0.
type VolumeAccumulator struct {
	sum   float64
	count int
}

// Add accumulates one triangle.
func (a *VolumeAccumulator) Add(t kernel.Triangle) {
	a.sum += SignedVolume(t)
	a.count++
}

// Merge folds a partial sum produced from another part of the mesh.
func (a *VolumeAccumulator) Merge(o VolumeAccumulator) {
	a.sum += o.sum
	a.count += o.count
}

// Volume returns the raw signed sum. It is negative for inward-wound meshes.
func (a VolumeAccumulator) Volume() float64 {
	return a.sum
}

// Count returns the number of triangles seen.
func (a VolumeAccumulator) Count() int {
	return a.count
}

// Volume returns the signed enclosed volume of m.
func Volume(m *kernel.Mesh) float64 {
	var acc VolumeAccumulator
	if m == nil {
		return 0
	}
	for _, t := range m.Triangles {
		acc.Add(t)
	}
	return acc.Volume()
}
