// Package measure computes volumetric measurements of closed triangle
// meshes: the enclosed volume by signed tetrahedron decomposition and the
// volume of the axis-aligned bounding box. All functions are pure and
// safe for concurrent use on a shared read-only mesh.
package measure
