package measure

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pangeorg/rusty-stl/internal/meshtest"
	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

const tol = 1e-12

func approx(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestAnalyzeKnownSolids(t *testing.T) {
	tests := []struct {
		name     string
		mesh     *kernel.Mesh
		wantMesh float64
		wantBox  float64
		wantTris int
	}{
		{"unit cube", meshtest.UnitCube(), 1, 1, 12},
		{"tetrahedron", meshtest.Tetrahedron(), 1.0 / 6.0, 1, 4},
		{"cuboid", meshtest.Cuboid(kernel.Point3{X: -1, Y: -2, Z: -3}, kernel.Point3{X: 1, Y: 2, Z: 3}), 48, 48, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Analyze(tt.mesh)
			if !approx(r.MeshVolume, tt.wantMesh, tol) {
				t.Errorf("MeshVolume = %v, want %v", r.MeshVolume, tt.wantMesh)
			}
			if !approx(r.BoxVolume, tt.wantBox, tol) {
				t.Errorf("BoxVolume = %v, want %v", r.BoxVolume, tt.wantBox)
			}
			if r.Triangles != tt.wantTris {
				t.Errorf("Triangles = %d, want %d", r.Triangles, tt.wantTris)
			}
			if r.BoxVolume < r.MeshVolume-tol {
				t.Errorf("box volume %v smaller than mesh volume %v", r.BoxVolume, r.MeshVolume)
			}
		})
	}
}

func TestTetrahedronBoxExceedsMesh(t *testing.T) {
	r := Analyze(meshtest.Tetrahedron())
	if !(r.BoxVolume > r.MeshVolume) {
		t.Errorf("expected box volume %v > mesh volume %v", r.BoxVolume, r.MeshVolume)
	}
	if !approx(r.Efficiency(), 1.0/6.0, tol) {
		t.Errorf("Efficiency() = %v, want 1/6", r.Efficiency())
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	for name, m := range map[string]*kernel.Mesh{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			r := Analyze(m)
			if r.MeshVolume != 0 || r.BoxVolume != 0 {
				t.Errorf("Analyze(empty) = %+v, want zero volumes", r)
			}
			if r.Triangles != 0 {
				t.Errorf("Triangles = %d, want 0", r.Triangles)
			}
			if !r.Valid() {
				t.Error("empty result should be valid")
			}
			if r.Efficiency() != 0 {
				t.Errorf("Efficiency() = %v, want 0", r.Efficiency())
			}
		})
	}
}

func TestReversedWindingNegates(t *testing.T) {
	for _, m := range []*kernel.Mesh{meshtest.UnitCube(), meshtest.Tetrahedron()} {
		fwd := Analyze(m)
		rev := Analyze(m.Reversed())
		if !approx(rev.MeshVolume, -fwd.MeshVolume, tol) {
			t.Errorf("%s: reversed volume = %v, want %v", m.Name, rev.MeshVolume, -fwd.MeshVolume)
		}
		if !rev.Inverted() || fwd.Inverted() {
			t.Errorf("%s: Inverted() fwd=%v rev=%v", m.Name, fwd.Inverted(), rev.Inverted())
		}
		if rev.BoxVolume != fwd.BoxVolume {
			t.Errorf("%s: box volume changed under reversal", m.Name)
		}
	}
}

func TestReorderInvariant(t *testing.T) {
	m := meshtest.Grid(3)
	want := Analyze(m)

	rng := rand.New(rand.NewSource(42))
	shuffled := &kernel.Mesh{Triangles: append([]kernel.Triangle(nil), m.Triangles...)}
	rng.Shuffle(len(shuffled.Triangles), func(i, j int) {
		shuffled.Triangles[i], shuffled.Triangles[j] = shuffled.Triangles[j], shuffled.Triangles[i]
	})

	got := Analyze(shuffled)
	if !approx(got.MeshVolume, want.MeshVolume, 1e-9) {
		t.Errorf("shuffled volume = %v, want %v", got.MeshVolume, want.MeshVolume)
	}
	if got.BoxVolume != want.BoxVolume {
		t.Errorf("shuffled box volume = %v, want %v", got.BoxVolume, want.BoxVolume)
	}
}

func TestTranslationInvariant(t *testing.T) {
	off := kernel.Point3{X: 3.5, Y: -2, Z: 10}
	for _, m := range []*kernel.Mesh{meshtest.UnitCube(), meshtest.Tetrahedron()} {
		a := Analyze(m)
		b := Analyze(m.Translated(off))
		if !approx(a.MeshVolume, b.MeshVolume, 1e-9) {
			t.Errorf("%s: translated volume = %v, want %v", m.Name, b.MeshVolume, a.MeshVolume)
		}
		if !approx(a.BoxVolume, b.BoxVolume, 1e-9) {
			t.Errorf("%s: translated box volume = %v, want %v", m.Name, b.BoxVolume, a.BoxVolume)
		}
		if b.Box.Min != a.Box.Min.Add(off) {
			t.Errorf("%s: box min = %v, want %v", m.Name, b.Box.Min, a.Box.Min.Add(off))
		}
	}
}

func TestUniformScaleCubes(t *testing.T) {
	for _, k := range []float64{0.5, 2, 3.7} {
		for _, m := range []*kernel.Mesh{meshtest.UnitCube(), meshtest.Tetrahedron()} {
			a := Analyze(m)
			b := Analyze(m.Scaled(k))
			k3 := k * k * k
			if !approx(b.MeshVolume, a.MeshVolume*k3, 1e-9) {
				t.Errorf("%s k=%v: volume = %v, want %v", m.Name, k, b.MeshVolume, a.MeshVolume*k3)
			}
			if !approx(b.BoxVolume, a.BoxVolume*k3, 1e-9) {
				t.Errorf("%s k=%v: box volume = %v, want %v", m.Name, k, b.BoxVolume, a.BoxVolume*k3)
			}
		}
	}
}

func TestFlatMeshHasZeroBoxVolume(t *testing.T) {
	m := &kernel.Mesh{Triangles: []kernel.Triangle{
		{{}, {X: 4}, {Y: 3}},
		{{X: 4}, {X: 4, Y: 3}, {Y: 3}},
	}}
	r := Analyze(m)
	if r.BoxVolume != 0 {
		t.Errorf("BoxVolume = %v, want 0", r.BoxVolume)
	}
	if r.MeshVolume != 0 {
		t.Errorf("MeshVolume = %v, want 0", r.MeshVolume)
	}
	if r.Box.Size() != (kernel.Point3{X: 4, Y: 3}) {
		t.Errorf("Box.Size() = %v", r.Box.Size())
	}
}

func TestNaNPropagates(t *testing.T) {
	m := meshtest.UnitCube()
	m.Triangles[0][0].X = math.NaN()
	r := Analyze(m)
	if !math.IsNaN(r.MeshVolume) {
		t.Errorf("MeshVolume = %v, want NaN", r.MeshVolume)
	}
	if r.Valid() {
		t.Error("Valid() = true for NaN input")
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	m := meshtest.Grid(4)
	a, b := Analyze(m), Analyze(m)
	if a != b {
		t.Errorf("Analyze not deterministic: %+v vs %+v", a, b)
	}
}

func TestAnalyzeParallel(t *testing.T) {
	m := meshtest.Grid(20) // 96000 triangles
	seq := Analyze(m)

	for _, workers := range []int{2, 4, 7} {
		par := AnalyzeParallel(m, workers)
		if !approx(par.MeshVolume, seq.MeshVolume, 1e-9) {
			t.Errorf("workers=%d: volume = %v, want %v", workers, par.MeshVolume, seq.MeshVolume)
		}
		if par.BoxVolume != seq.BoxVolume || par.Box != seq.Box {
			t.Errorf("workers=%d: box = %+v, want %+v", workers, par.Box, seq.Box)
		}
		if par.Triangles != seq.Triangles {
			t.Errorf("workers=%d: triangles = %d, want %d", workers, par.Triangles, seq.Triangles)
		}
		if again := AnalyzeParallel(m, workers); again != par {
			t.Errorf("workers=%d: not reproducible: %+v vs %+v", workers, again, par)
		}
	}
	if !approx(seq.MeshVolume, 8000, 1e-9) {
		t.Errorf("grid volume = %v, want 8000", seq.MeshVolume)
	}
}

func TestAnalyzeParallelFallsBack(t *testing.T) {
	m := meshtest.UnitCube()
	if got, want := AnalyzeParallel(m, 8), Analyze(m); got != want {
		t.Errorf("AnalyzeParallel(small) = %+v, want %+v", got, want)
	}
	if got := AnalyzeParallel(nil, 4); got != (Result{}) {
		t.Errorf("AnalyzeParallel(nil) = %+v, want zero", got)
	}
}
