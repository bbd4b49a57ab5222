// Package meshtest provides small closed meshes with known volumes for tests.
package meshtest

import "github.com/pangeorg/rusty-stl/pkg/kernel"

func p(x, y, z float64) kernel.Point3 { return kernel.Point3{X: x, Y: y, Z: z} }

// Cuboid returns an outward-wound 12 triangle box spanning min to max.
func Cuboid(min, max kernel.Point3) *kernel.Mesh {
	x0, y0, z0 := min.X, min.Y, min.Z
	x1, y1, z1 := max.X, max.Y, max.Z
	v000, v100 := p(x0, y0, z0), p(x1, y0, z0)
	v010, v110 := p(x0, y1, z0), p(x1, y1, z0)
	v001, v101 := p(x0, y0, z1), p(x1, y0, z1)
	v011, v111 := p(x0, y1, z1), p(x1, y1, z1)
	return &kernel.Mesh{
		Name: "cuboid",
		Triangles: []kernel.Triangle{
			{v000, v010, v110}, {v000, v110, v100}, // -z
			{v001, v101, v111}, {v001, v111, v011}, // +z
			{v000, v100, v101}, {v000, v101, v001}, // -y
			{v010, v011, v111}, {v010, v111, v110}, // +y
			{v000, v001, v011}, {v000, v011, v010}, // -x
			{v100, v110, v111}, {v100, v111, v101}, // +x
		},
	}
}

// UnitCube spans (0,0,0) to (1,1,1).
func UnitCube() *kernel.Mesh {
	return Cuboid(p(0, 0, 0), p(1, 1, 1))
}

// Tetrahedron is the corner tetrahedron (0,0,0), (1,0,0), (0,1,0), (0,0,1)
// with volume 1/6.
func Tetrahedron() *kernel.Mesh {
	o, x, y, z := p(0, 0, 0), p(1, 0, 0), p(0, 1, 0), p(0, 0, 1)
	return &kernel.Mesh{
		Name: "tetrahedron",
		Triangles: []kernel.Triangle{
			{o, y, x},
			{o, x, z},
			{o, z, y},
			{x, y, z},
		},
	}
}

// Grid returns n*n*n disjoint unit cubes spaced two units apart, a mesh
// large enough to exercise parallel accumulation.
func Grid(n int) *kernel.Mesh {
	m := &kernel.Mesh{Name: "grid"}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				lo := p(float64(2*i), float64(2*j), float64(2*k))
				c := Cuboid(lo, lo.Add(p(1, 1, 1)))
				m.Triangles = append(m.Triangles, c.Triangles...)
			}
		}
	}
	return m
}
