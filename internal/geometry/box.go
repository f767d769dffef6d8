package geometry

import (
	"fmt"
	"math"
	"math/rand"
)

// Box is an axis-aligned box volume.
type Box struct {
	name     string
	Min, Max Point3

	// cached
	area  Real
	faces [3]Real // area of one face normal to X, Y, Z
}

// NewBox builds a box from its centre and half-lengths.
func NewBox(name string, center Point3, half Vector3) (*Box, error) {
	if !(half.X > 0 && half.Y > 0 && half.Z > 0) {
		return nil, fmt.Errorf("box %q half-lengths must be >0 on all axes, got %+v", name, half)
	}
	b := &Box{
		name: name,
		Min:  Point3{center.X - half.X, center.Y - half.Y, center.Z - half.Z},
		Max:  Point3{center.X + half.X, center.Y + half.Y, center.Z + half.Z},
	}
	dx, dy, dz := 2*half.X, 2*half.Y, 2*half.Z
	b.faces = [3]Real{dy * dz, dx * dz, dx * dy}
	b.area = 2 * (b.faces[0] + b.faces[1] + b.faces[2])
	return b, nil
}

func (b *Box) Name() string      { return b.name }
func (b *Box) SurfaceArea() Real { return b.area }
func (b *Box) Centroid() Point3 {
	return Point3{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2, (b.Min.Z + b.Max.Z) / 2}
}

func (b *Box) Inside(p Point3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Intersect is the slab test.
func (b *Box) Intersect(O Point3, D Vector3) (Real, Real, bool) {
	const eps = 1e-12
	tmin, tmax := -1e300, 1e300

	slab := func(o, d, lo, hi Real) bool {
		if math.Abs(d) < eps {
			return o >= lo && o <= hi
		}
		inv := 1 / d
		t1 := (lo - o) * inv
		t2 := (hi - o) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		return true
	}
	if !slab(O.X, D.X, b.Min.X, b.Max.X) ||
		!slab(O.Y, D.Y, b.Min.Y, b.Max.Y) ||
		!slab(O.Z, D.Z, b.Min.Z, b.Max.Z) {
		return 0, 0, false
	}
	if tmax < 0 || tmin > tmax {
		return 0, 0, false
	}
	return tmin, tmax, true
}

// SampleSurface picks a face with probability proportional to its area,
// then a uniform point on it.
func (b *Box) SampleSurface(rng *rand.Rand) (Point3, Vector3) {
	u := rng.Float64() * b.area
	axis := 0
	for axis < 2 {
		if u < 2*b.faces[axis] {
			break
		}
		u -= 2 * b.faces[axis]
		axis++
	}
	hi := u >= b.faces[axis]
	p := Point3{
		b.Min.X + rng.Float64()*(b.Max.X-b.Min.X),
		b.Min.Y + rng.Float64()*(b.Max.Y-b.Min.Y),
		b.Min.Z + rng.Float64()*(b.Max.Z-b.Min.Z),
	}
	var n Vector3
	sign := Real(-1)
	if hi {
		sign = 1
	}
	switch axis {
	case 0:
		p.X = b.Min.X
		if hi {
			p.X = b.Max.X
		}
		n = Vector3{sign, 0, 0}
	case 1:
		p.Y = b.Min.Y
		if hi {
			p.Y = b.Max.Y
		}
		n = Vector3{0, sign, 0}
	default:
		p.Z = b.Min.Z
		if hi {
			p.Z = b.Max.Z
		}
		n = Vector3{0, 0, sign}
	}
	return p, n
}
