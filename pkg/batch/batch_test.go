package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pangeorg/rusty-stl/internal/meshtest"
	"github.com/pangeorg/rusty-stl/pkg/engine"
	"github.com/pangeorg/rusty-stl/pkg/kernel"
	"github.com/pangeorg/rusty-stl/pkg/measure"
	"github.com/pangeorg/rusty-stl/pkg/stl"
)

// memSource is an in-memory Source.
type memSource struct {
	files   map[string][]byte
	listErr error
}

func (s *memSource) List(context.Context) ([]string, error) {
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, s.listErr
}

func (s *memSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	b, ok := s.files[name]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func encode(t *testing.T, m *kernel.Mesh) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mesh.stl")
	require.NoError(t, stl.WriteFile(path, m))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun(t *testing.T) {
	src := &memSource{files: map[string][]byte{
		"a_cube.stl":   encode(t, meshtest.UnitCube().Scaled(10)),
		"b_tetra.stl":  encode(t, meshtest.Tetrahedron()),
		"c_broken.stl": []byte("not an stl"),
		"d_empty.stl":  encode(t, &kernel.Mesh{}),
		"e_inward.stl": encode(t, meshtest.UnitCube().Reversed()),
	}}
	r := &Runner{Workers: 2, Logger: quietLogger()}

	results, err := r.Run(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, "a_cube.stl", results[0].Name)
	assert.InDelta(t, 1000, results[0].MeshVolume, 1e-6)
	assert.InDelta(t, 1000, results[0].BoxVolume, 1e-6)
	assert.Equal(t, 12, results[0].Triangles)

	assert.InDelta(t, 1.0/6.0, results[1].MeshVolume, 1e-6)
	assert.InDelta(t, 1, results[1].BoxVolume, 1e-6)

	assert.True(t, results[2].Failed())
	assert.NotEmpty(t, results[2].Error)

	assert.False(t, results[3].Failed())
	assert.Zero(t, results[3].MeshVolume)
	assert.Zero(t, results[3].BoxVolume)

	assert.InDelta(t, -1, results[4].MeshVolume, 1e-6)
	assert.NotEmpty(t, results[4].Warnings)

	assert.Equal(t, 1, CountFailed(results))
}

func TestRunListError(t *testing.T) {
	listErr := errors.New("missing.stl: no such file")
	src := &memSource{
		files:   map[string][]byte{"ok.stl": encode(t, meshtest.UnitCube())},
		listErr: listErr,
	}
	results, err := (&Runner{Logger: quietLogger()}).Run(context.Background(), src)
	assert.ErrorIs(t, err, listErr)
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())
}

func TestRunCancelled(t *testing.T) {
	src := &memSource{files: map[string][]byte{"a.stl": encode(t, meshtest.UnitCube())}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := (&Runner{Logger: quietLogger()}).Run(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestAnalyzeColumnsAndThickness(t *testing.T) {
	r := &Runner{
		Engine: engine.NewEngine(),
		Columns: []engine.Column{
			{Name: "efficiency", Expr: "(ratio mesh-volume box-volume)"},
			{Name: "fill", Expr: "efficiency"},
			{Name: "footprint", Expr: "(/ facing-area-z 2.0)"},
			{Name: "mid-z", Expr: "center-z"},
			{Name: "bad", Expr: "(nope)"},
		},
		Thickness: &measure.ThicknessOptions{},
		Logger:    quietLogger(),
	}
	res := r.Analyze(meshtest.Tetrahedron())

	assert.InDelta(t, 1.0/6.0, res.Columns["efficiency"], 1e-9)
	assert.InDelta(t, 1.0/6.0, res.Columns["fill"], 1e-9)
	assert.InDelta(t, 0.5, res.Columns["footprint"], 1e-9)
	assert.InDelta(t, 0.5, res.Columns["mid-z"], 1e-9)
	assert.NotContains(t, res.Columns, "bad")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "column bad")
	require.NotNil(t, res.Thickness)
	assert.NotEmpty(t, res.Thickness.Samples)
}

func TestAnalyzeParallelMatches(t *testing.T) {
	m := meshtest.Grid(8)
	seq := (&Runner{Logger: quietLogger()}).Analyze(m)
	par := (&Runner{MeshWorkers: 4, Logger: quietLogger()}).Analyze(m)
	assert.InDelta(t, seq.MeshVolume, par.MeshVolume, 1e-9)
	assert.Equal(t, seq.BoxVolume, par.BoxVolume)
}

func TestFileResultJSON(t *testing.T) {
	r := (&Runner{Logger: quietLogger()}).Analyze(meshtest.UnitCube())
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "cuboid", got["name"])
	assert.InDelta(t, 1, got["meshVolume"], 1e-12)
	assert.InDelta(t, 1, got["boxVolume"], 1e-12)
	assert.NotContains(t, got, "error")
}
