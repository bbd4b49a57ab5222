package measure

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

// DefaultMaxDistance is the ray length used when ThicknessOptions leaves
// MaxDistance unset.
const DefaultMaxDistance = 100.0

// rayEpsilon rejects hits at the ray origin and near-parallel triangles.
const rayEpsilon = 1e-9

// ThicknessOptions controls Thickness.
type ThicknessOptions struct {
	// MaxDistance is the ray length. Zero means DefaultMaxDistance.
	MaxDistance float64
	// Min and Max exclude samples outside the open interval (Min, Max).
	// A zero Max means no upper bound.
	Min, Max float64
}

// Statistics summarizes wall thickness samples.
type Statistics struct {
	Avg     float64   `json:"avg"`
	Median  float64   `json:"median"`
	StdDev  float64   `json:"stdDev"`
	Samples []float64 `json:"-"`
}

// Thickness estimates local wall thickness. From the centroid of each
// triangle a ray is cast along the facet normal and against it; the
// thickness sample is the farthest of the nearest hits on other triangles.
// Avg is weighted by triangle area; Median is the empirical median and
// StdDev the population deviation around Avg.
//
// The search is brute force and quadratic in the triangle count.
func Thickness(m *kernel.Mesh, opts ThicknessOptions) Statistics {
	maxDist := opts.MaxDistance
	if maxDist <= 0 {
		maxDist = DefaultMaxDistance
	}
	upper := opts.Max
	if upper <= 0 {
		upper = math.Inf(1)
	}

	var samples, weights []float64
	if m == nil {
		return Statistics{}
	}
	for i, t := range m.Triangles {
		n := t.Normal()
		l := n.Length()
		if l == 0 {
			continue
		}
		n = n.MulScalar(1 / l)
		origin := t.Centroid()

		thick, hit := 0.0, false
		for _, dir := range [2]kernel.Point3{n, n.MulScalar(-1)} {
			if d, ok := nearestHit(m.Triangles, i, origin, dir, maxDist); ok {
				thick = math.Max(thick, d)
				hit = true
			}
		}
		if !hit || thick <= opts.Min || thick >= upper {
			continue
		}
		samples = append(samples, thick)
		weights = append(weights, l/2)
	}
	if len(samples) == 0 {
		return Statistics{}
	}

	avg := stat.Mean(samples, weights)
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	return Statistics{
		Avg:     avg,
		Median:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		StdDev:  math.Sqrt(stat.MomentAbout(2, samples, avg, nil)),
		Samples: samples,
	}
}

// nearestHit returns the distance to the closest triangle other than skip
// hit by the ray origin + s*dir, 0 < s <= maxDist.
func nearestHit(tris []kernel.Triangle, skip int, origin, dir kernel.Point3, maxDist float64) (float64, bool) {
	best, found := maxDist, false
	for j, t := range tris {
		if j == skip {
			continue
		}
		if s, ok := rayTriangle(origin, dir, t); ok && s <= best {
			best, found = s, true
		}
	}
	return best, found
}

// rayTriangle is the Moller-Trumbore ray/triangle intersection test.
func rayTriangle(origin, dir kernel.Point3, t kernel.Triangle) (float64, bool) {
	e1 := t[1].Sub(t[0])
	e2 := t[2].Sub(t[0])
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := origin.Sub(t[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	d := e2.Dot(q) * inv
	if d <= rayEpsilon {
		return 0, false
	}
	return d, true
}
