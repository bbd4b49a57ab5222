// Package tessellate turns a tree of shape descriptions into triangle
// meshes using a geometry kernel. One mesh is produced per solid leaf.
package tessellate

import (
	"fmt"
	"strconv"

	"github.com/pangeorg/rusty-stl/pkg/kernel"
)

// transform is one frame of the transform stack.
type transform struct {
	translate [3]float64
	rotate    [3]float64
}

func (t transform) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	// Rotation first, then translation.
	if r := t.rotate; r != [3]float64{} {
		s = k.Rotate(s, r[0], r[1], r[2])
	}
	if v := t.translate; v != [3]float64{} {
		s = k.Translate(s, v[0], v[1], v[2])
	}
	return s
}

// transformStack accumulates spatial transforms during traversal.
type transformStack struct {
	frames []transform
}

func (ts *transformStack) push(t transform) { ts.frames = append(ts.frames, t) }

func (ts *transformStack) pop() {
	if len(ts.frames) > 0 {
		ts.frames = ts.frames[:len(ts.frames)-1]
	}
}

// apply places s in world space, innermost frame first.
func (ts *transformStack) apply(k kernel.Kernel, s kernel.Solid) kernel.Solid {
	for i := len(ts.frames) - 1; i >= 0; i-- {
		s = ts.frames[i].apply(k, s)
	}
	return s
}

// Tessellate produces one mesh per solid leaf of shapes. Groups are walked
// transparently and their transforms apply to every child. The tessellator
// never mutates shapes.
func Tessellate(shapes []Shape, k kernel.Kernel) ([]*kernel.Mesh, error) {
	ts := &transformStack{}
	var meshes []*kernel.Mesh
	for i := range shapes {
		collected, err := walk(k, &shapes[i], strconv.Itoa(i), ts)
		if err != nil {
			return nil, fmt.Errorf("tessellate: %w", err)
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

func walk(k kernel.Kernel, s *Shape, path string, ts *transformStack) ([]*kernel.Mesh, error) {
	if s.Group == nil {
		solid, err := build(k, s, path)
		if err != nil {
			return nil, err
		}
		mesh, err := k.ToMesh(ts.apply(k, solid))
		if err != nil {
			return nil, fmt.Errorf("ToMesh failed for shape %s: %w", s.label(path), err)
		}
		mesh.Name = s.label(path)
		return []*kernel.Mesh{mesh}, nil
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("shape %s: %w", s.label(path), err)
	}
	ts.push(s.transform())
	defer ts.pop()

	var meshes []*kernel.Mesh
	for i := range s.Group {
		collected, err := walk(k, &s.Group[i], path+"."+strconv.Itoa(i), ts)
		if err != nil {
			return nil, err
		}
		meshes = append(meshes, collected...)
	}
	return meshes, nil
}

// build creates the solid for s in its parent's frame. Children of boolean
// operations are built recursively with their own local transforms.
func build(k kernel.Kernel, s *Shape, path string) (kernel.Solid, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("shape %s: %w", s.label(path), err)
	}

	var solid kernel.Solid
	switch {
	case s.Box != nil:
		solid = k.Box(s.Box[0], s.Box[1], s.Box[2])
	case s.Cylinder != nil:
		solid = k.Cylinder(s.Cylinder.Height, s.Cylinder.Radius)
	case s.Sphere != nil:
		solid = k.Sphere(*s.Sphere)
	case s.Union != nil, s.Difference != nil, s.Intersection != nil:
		op, children := s.boolean()
		for i := range children {
			c, err := build(k, &children[i], path+"."+strconv.Itoa(i))
			if err != nil {
				return nil, err
			}
			if solid == nil {
				solid = c
				continue
			}
			switch op {
			case opUnion:
				solid = k.Union(solid, c)
			case opDifference:
				solid = k.Difference(solid, c)
			case opIntersection:
				solid = k.Intersection(solid, c)
			}
		}
	case s.Group != nil:
		return nil, fmt.Errorf("shape %s: group inside a boolean operation", s.label(path))
	}
	return s.transform().apply(k, solid), nil
}
