package geometry

import "math/rand"

// Volume is a named solid placed in the world.
type Volume interface {
	Name() string
	// SurfaceArea returns the area of the volume's outer boundary.
	SurfaceArea() Real
	// Centroid returns the geometric centre.
	Centroid() Point3
	// Inside reports whether p lies inside or on the boundary.
	Inside(p Point3) bool
	// Intersect returns the parametric entry and exit distances of the ray O + t·D.
	// tNear may be negative when O is inside.
	Intersect(O Point3, D Vector3) (tNear, tFar Real, ok bool)
	// SampleSurface returns a uniform point on the boundary and the outward normal there.
	SampleSurface(rng *rand.Rand) (Point3, Vector3)
}

// Geometry looks volumes up by name.
type Geometry interface {
	Volume(name string) (Volume, bool)
}
