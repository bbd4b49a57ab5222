package measure

import (
	"math"
	"sync"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

// minParallelChunk is the smallest per-worker slice worth a goroutine.
const minParallelChunk = 4096

// Result is the measurement of one mesh.
type Result struct {
	MeshVolume  float64 `json:"meshVolume"`
	BoxVolume   float64 `json:"boxVolume"`
	Box         AABB    `json:"box"`
	Triangles   int     `json:"triangles"`
	SurfaceArea float64 `json:"surfaceArea"`
}

// Inverted reports a negative enclosed volume, which indicates inward
// winding of the input mesh.
func (r Result) Inverted() bool {
	return r.MeshVolume < 0
}

// Valid reports whether both volumes are finite numbers.
func (r Result) Valid() bool {
	return isFinite(r.MeshVolume) && isFinite(r.BoxVolume)
}

// Efficiency returns MeshVolume / BoxVolume, or 0 for a zero box.
func (r Result) Efficiency() float64 {
	if r.BoxVolume == 0 {
		return 0
	}
	return r.MeshVolume / r.BoxVolume
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// partial holds the accumulators of one contiguous run of triangles.
type partial struct {
	vol  VolumeAccumulator
	box  BoxAccumulator
	area float64
}

func newPartial() partial {
	return partial{box: NewBoxAccumulator()}
}

func (p *partial) add(tris []kernel.Triangle) {
	for _, t := range tris {
		p.vol.Add(t)
		p.box.Add(t)
		p.area += Area(t)
	}
}

func (p *partial) merge(o partial) {
	p.vol.Merge(o.vol)
	p.box.Merge(o.box)
	p.area += o.area
}

func (p partial) result() Result {
	box, _ := p.box.Box()
	return Result{
		MeshVolume:  p.vol.Volume(),
		BoxVolume:   p.box.Volume(),
		Box:         box,
		Triangles:   p.vol.Count(),
		SurfaceArea: p.area,
	}
}

// Analyze measures m in a single pass over its triangles, in mesh order.
// Both volumes are computed from the identical triangle sequence. A nil or
// empty mesh yields a zero Result. Non-finite coordinates propagate into
// the result rather than failing.
func Analyze(m *kernel.Mesh) Result {
	p := newPartial()
	if m != nil {
		p.add(m.Triangles)
	}
	return p.result()
}

// AnalyzeParallel measures m using up to workers goroutines. The triangle
// list is split into contiguous chunks of equal size; each chunk is
// accumulated independently and the partials are merged in chunk order
// after all goroutines finish. For a fixed workers value the result is
// bit-identical across runs; it may differ from Analyze by rounding.
func AnalyzeParallel(m *kernel.Mesh, workers int) Result {
	n := m.TriangleCount()
	if workers > n/minParallelChunk {
		workers = n / minParallelChunk
	}
	if workers <= 1 {
		return Analyze(m)
	}

	chunk := (n + workers - 1) / workers
	parts := make([]partial, workers)

	var wg sync.WaitGroup
	for i := range parts {
		lo := i * chunk
		hi := min(lo+chunk, n)
		parts[i] = newPartial()
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(p *partial, tris []kernel.Triangle) {
			defer wg.Done()
			p.add(tris)
		}(&parts[i], m.Triangles[lo:hi])
	}
	wg.Wait()

	total := newPartial()
	for _, p := range parts {
		total.merge(p)
	}
	return total.result()
}
