package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
	"github.com/pangeorg/rusty-stl/pkg/measure"
)

// Vars are the numeric globals visible to an expression.
type Vars map[string]float64

// ResultVars exposes a measurement to expressions.
func ResultVars(r measure.Result) Vars {
	size := r.Box.Size()
	center := r.Box.Center()
	return Vars{
		"mesh-volume":  r.MeshVolume,
		"box-volume":   r.BoxVolume,
		"efficiency":   r.Efficiency(),
		"triangles":    float64(r.Triangles),
		"surface-area": r.SurfaceArea,
		"size-x":       size.X,
		"size-y":       size.Y,
		"size-z":       size.Z,
		"center-x":     center.X,
		"center-y":     center.Y,
		"center-z":     center.Z,
	}
}

// MeshVars extends ResultVars with the projected areas of m onto the
// planes normal to each axis.
func MeshVars(m *kernel.Mesh, r measure.Result) Vars {
	v := ResultVars(r)
	for name, n := range map[string]kernel.Point3{
		"facing-area-x": {X: 1},
		"facing-area-y": {Y: 1},
		"facing-area-z": {Z: 1},
	} {
		// unit axes never trip ErrZeroNormal
		v[name], _ = measure.FacingArea(m, n)
	}
	return v
}

// preamble renders the variables as one line of def forms. Names are
// sorted so the generated source is deterministic.
func (v Vars) preamble() (string, error) {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		val := v[name]
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return "", fmt.Errorf("variable %s is not a finite number", name)
		}
		fmt.Fprintf(&sb, "(def %s %s) ", identifier(name), floatLiteral(val))
	}
	return sb.String(), nil
}

// floatLiteral formats f so that zygomys reads it back as a float, never
// as an integer.
func floatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
