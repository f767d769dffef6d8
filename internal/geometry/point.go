package geometry

import "math"

// Point3 represents a point in 3D space.
type Point3 struct {
	X, Y, Z Real
}

// Add translates a Point3 by a Vector3.
func (p Point3) Add(v Vector3) Point3 {
	return Point3{p.X + v.X, p.Y + v.Y, p.Z + v.Z}
}

// Sub returns the displacement p - q.
func (p Point3) Sub(q Point3) Vector3 {
	return Vector3{p.X - q.X, p.Y - q.Y, p.Z - q.Z}
}

// Dist returns |p - q|.
func (p Point3) Dist(q Point3) Real { return p.Sub(q).Len() }

func isFinite(x Real) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }

// IsFinite reports whether all coordinates are finite.
func (p Point3) IsFinite() bool { return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z) }
