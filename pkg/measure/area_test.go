package measure

import (
	"errors"
	"math"
	"testing"

	"github.com/pangeorg/rusty-stl/internal/meshtest"
	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

func TestSurfaceArea(t *testing.T) {
	tests := []struct {
		name string
		mesh *kernel.Mesh
		want float64
	}{
		{"nil", nil, 0},
		{"unit cube", meshtest.UnitCube(), 6},
		{"tetrahedron", meshtest.Tetrahedron(), 1.5 + math.Sqrt(3)/2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SurfaceArea(tt.mesh); !approx(got, tt.want, tol) {
				t.Errorf("SurfaceArea() = %v, want %v", got, tt.want)
			}
		})
	}
	if got := Analyze(meshtest.UnitCube()).SurfaceArea; !approx(got, 6, tol) {
		t.Errorf("Analyze().SurfaceArea = %v, want 6", got)
	}
}

func TestFacingArea(t *testing.T) {
	cube := meshtest.Cuboid(kernel.Point3{}, kernel.Point3{X: 2, Y: 3, Z: 4})
	tests := []struct {
		normal kernel.Point3
		want   float64
	}{
		{kernel.Point3{Z: 1}, 2 * 6},
		{kernel.Point3{Z: -5}, 2 * 6},
		{kernel.Point3{X: 1}, 2 * 12},
		{kernel.Point3{Y: 1}, 2 * 8},
	}
	for _, tt := range tests {
		got, err := FacingArea(cube, tt.normal)
		if err != nil {
			t.Fatalf("FacingArea(%v) error = %v", tt.normal, err)
		}
		if !approx(got, tt.want, 1e-9) {
			t.Errorf("FacingArea(%v) = %v, want %v", tt.normal, got, tt.want)
		}
	}

	if _, err := FacingArea(cube, kernel.Point3{}); !errors.Is(err, ErrZeroNormal) {
		t.Errorf("FacingArea(zero normal) error = %v, want ErrZeroNormal", err)
	}
}

func TestThicknessCube(t *testing.T) {
	s := Thickness(meshtest.UnitCube(), ThicknessOptions{})
	if len(s.Samples) != 12 {
		t.Fatalf("got %d samples, want 12", len(s.Samples))
	}
	for _, v := range s.Samples {
		if !approx(v, 1, 1e-9) {
			t.Errorf("sample = %v, want 1", v)
		}
	}
	if !approx(s.Avg, 1, 1e-9) || !approx(s.Median, 1, 1e-9) {
		t.Errorf("Avg = %v, Median = %v, want 1", s.Avg, s.Median)
	}
	if s.StdDev > 1e-9 {
		t.Errorf("StdDev = %v, want 0", s.StdDev)
	}
}

func TestThicknessSlab(t *testing.T) {
	slab := meshtest.Cuboid(kernel.Point3{}, kernel.Point3{X: 10, Y: 10, Z: 1})
	s := Thickness(slab, ThicknessOptions{})

	// Four top/bottom samples of 1 (area 200) and eight side samples of
	// 10 (area 40): weighted mean (200 + 400) / 240.
	if !approx(s.Avg, 2.5, 1e-9) {
		t.Errorf("Avg = %v, want 2.5", s.Avg)
	}
	if !approx(s.Median, 10, 1e-9) {
		t.Errorf("Median = %v, want 10", s.Median)
	}
	if len(s.Samples) != 12 {
		t.Errorf("got %d samples, want 12", len(s.Samples))
	}

	filtered := Thickness(slab, ThicknessOptions{Max: 5})
	if len(filtered.Samples) != 4 {
		t.Errorf("filtered samples = %d, want 4 (top and bottom)", len(filtered.Samples))
	}
	if !approx(filtered.Avg, 1, 1e-9) {
		t.Errorf("filtered Avg = %v, want 1", filtered.Avg)
	}

	short := Thickness(slab, ThicknessOptions{MaxDistance: 0.5})
	if len(short.Samples) != 0 || short.Avg != 0 {
		t.Errorf("short rays should produce no samples, got %+v", short)
	}
}

func TestThicknessEmpty(t *testing.T) {
	if s := Thickness(nil, ThicknessOptions{}); s.Avg != 0 || len(s.Samples) != 0 {
		t.Errorf("Thickness(nil) = %+v", s)
	}
}
