package tessellate

import (
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Cylinder is centred on the origin with its axis along Z.
type Cylinder struct {
	Height float64 `yaml:"height"`
	Radius float64 `yaml:"radius"`
}

// Shape describes a solid or a group of solids. Exactly one of Box,
// Cylinder, Sphere, Union, Difference, Intersection or Group is set.
// Rotate (Euler angles in degrees) and then Translate are applied to the
// shape and, for groups, to every child.
type Shape struct {
	Name string `yaml:"name"`

	// Box has its minimum corner at the origin.
	Box      *[3]float64 `yaml:"box"`
	Cylinder *Cylinder   `yaml:"cylinder"`
	Sphere   *float64    `yaml:"sphere"`

	Union        []Shape `yaml:"union"`
	Difference   []Shape `yaml:"difference"`
	Intersection []Shape `yaml:"intersection"`
	Group        []Shape `yaml:"group"`

	Translate *[3]float64 `yaml:"translate"`
	Rotate    *[3]float64 `yaml:"rotate"`
}

// File is the YAML document read by [Decode].
type File struct {
	Shapes []Shape `yaml:"shapes"`
}

// Decode reads a shape file. Unknown keys are rejected.
func Decode(r io.Reader) ([]Shape, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("tessellate: decode shapes: %w", err)
	}
	return f.Shapes, nil
}

type booleanOp int

const (
	opUnion booleanOp = iota
	opDifference
	opIntersection
)

func (s *Shape) boolean() (booleanOp, []Shape) {
	switch {
	case s.Difference != nil:
		return opDifference, s.Difference
	case s.Intersection != nil:
		return opIntersection, s.Intersection
	}
	return opUnion, s.Union
}

func (s *Shape) label(path string) string {
	if s.Name != "" {
		return s.Name
	}
	return "shape-" + path
}

func (s *Shape) transform() transform {
	var t transform
	if s.Translate != nil {
		t.translate = *s.Translate
	}
	if s.Rotate != nil {
		t.rotate = *s.Rotate
	}
	return t
}

func positive(name string, v ...float64) error {
	for _, f := range v {
		if !(f > 0) || math.IsInf(f, 0) {
			return fmt.Errorf("%s dimensions must be positive and finite, got %v", name, v)
		}
	}
	return nil
}

func (s *Shape) validate() error {
	set := 0
	for _, ok := range []bool{
		s.Box != nil, s.Cylinder != nil, s.Sphere != nil,
		s.Union != nil, s.Difference != nil, s.Intersection != nil, s.Group != nil,
	} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("want exactly one of box, cylinder, sphere, union, difference, intersection or group, got %d", set)
	}
	switch {
	case s.Box != nil:
		return positive("box", s.Box[0], s.Box[1], s.Box[2])
	case s.Cylinder != nil:
		return positive("cylinder", s.Cylinder.Height, s.Cylinder.Radius)
	case s.Sphere != nil:
		return positive("sphere", *s.Sphere)
	case s.Union != nil, s.Difference != nil, s.Intersection != nil:
		if _, c := s.boolean(); len(c) == 0 {
			return errors.New("boolean operation without operands")
		}
	}
	return nil
}

// Volume returns the analytic volume of primitive shapes. Transforms do
// not change volume. ok is false for booleans and groups.
func (s *Shape) Volume() (v float64, ok bool) {
	switch {
	case s.Box != nil:
		return s.Box[0] * s.Box[1] * s.Box[2], true
	case s.Cylinder != nil:
		return math.Pi * s.Cylinder.Radius * s.Cylinder.Radius * s.Cylinder.Height, true
	case s.Sphere != nil:
		r := *s.Sphere
		return 4.0 / 3.0 * math.Pi * r * r * r, true
	}
	return 0, false
}
