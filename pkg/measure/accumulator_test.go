package measure

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pangeorg/rusty-stl/internal/meshtest"
	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

func TestSignedVolume(t *testing.T) {
	tr := kernel.Triangle{{X: 1}, {Y: 1}, {Z: 1}}
	assert.InDelta(t, 1.0/6.0, SignedVolume(tr), tol)
	assert.InDelta(t, -1.0/6.0, SignedVolume(kernel.Triangle{tr[0], tr[2], tr[1]}), tol)
	assert.Equal(t, 0.0, SignedVolume(kernel.Triangle{}))
}

func TestVolumeAccumulatorMerge(t *testing.T) {
	m := meshtest.Grid(2)
	half := len(m.Triangles) / 2

	var whole, a, b VolumeAccumulator
	for i, tr := range m.Triangles {
		whole.Add(tr)
		if i < half {
			a.Add(tr)
		} else {
			b.Add(tr)
		}
	}
	a.Merge(b)
	assert.Equal(t, whole.Count(), a.Count())
	assert.InDelta(t, whole.Volume(), a.Volume(), 1e-12)
	assert.InDelta(t, 8.0, Volume(m), 1e-12)
}

func TestBoxAccumulatorEmpty(t *testing.T) {
	acc := NewBoxAccumulator()
	box, ok := acc.Box()
	assert.False(t, ok)
	assert.Equal(t, AABB{}, box)
	assert.Equal(t, 0.0, acc.Volume())
	assert.False(t, math.IsInf(acc.Volume(), 0))

	_, ok = BoundingBox(nil)
	assert.False(t, ok)
}

func TestBoxAccumulatorMerge(t *testing.T) {
	a := NewBoxAccumulator()
	b := NewBoxAccumulator()
	a.Add(kernel.Triangle{{X: -1}, {Y: 2}, {Z: 3}})
	b.Add(kernel.Triangle{{X: 5}, {Y: -4}, {Z: -6}})

	empty := NewBoxAccumulator()
	a.Merge(empty)
	assert.Equal(t, 1, a.Count())

	a.Merge(b)
	box, ok := a.Box()
	require.True(t, ok)
	assert.Equal(t, kernel.Point3{X: -1, Y: -4, Z: -6}, box.Min)
	assert.Equal(t, kernel.Point3{X: 5, Y: 2, Z: 3}, box.Max)
	assert.Equal(t, 6.0*6.0*9.0, a.Volume())
	assert.Equal(t, kernel.Point3{X: 2, Y: -1, Z: -1.5}, box.Center())
	assert.False(t, box.Empty())
}

func TestBoundingBoxOfTetrahedron(t *testing.T) {
	box, ok := BoundingBox(meshtest.Tetrahedron())
	require.True(t, ok)
	assert.Equal(t, kernel.Point3{}, box.Min)
	assert.Equal(t, kernel.Point3{X: 1, Y: 1, Z: 1}, box.Max)
	assert.Equal(t, 1.0, box.Volume())
}
