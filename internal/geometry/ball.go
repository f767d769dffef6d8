package geometry

import (
	"fmt"
	"math"
	"math/rand"
)

// Ball is a full sphere volume.
type Ball struct {
	name   string
	Center Point3
	Radius Real
}

func NewBall(name string, center Point3, radius Real) (*Ball, error) {
	if !(radius > 0) || !isFinite(radius) {
		return nil, fmt.Errorf("ball %q radius must be >0, got %.6g", name, radius)
	}
	return &Ball{name: name, Center: center, Radius: radius}, nil
}

func (b *Ball) Name() string      { return b.name }
func (b *Ball) SurfaceArea() Real { return SphereArea(b.Radius) }
func (b *Ball) Centroid() Point3  { return b.Center }

func (b *Ball) Inside(p Point3) bool { return p.Dist(b.Center) <= b.Radius }

// Intersect solves |O + tD - C|^2 = r^2.
func (b *Ball) Intersect(O Point3, D Vector3) (Real, Real, bool) {
	Oc := O.Sub(b.Center)
	a := D.Dot(D)
	if a == 0 {
		return 0, 0, false
	}
	hb := Oc.Dot(D)
	c := Oc.Dot(Oc) - b.Radius*b.Radius
	disc := hb*hb - a*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := math.Sqrt(disc)
	t0 := (-hb - sq) / a
	t1 := (-hb + sq) / a
	if t1 < 0 {
		return 0, 0, false
	}
	return t0, t1, true
}

func (b *Ball) SampleSurface(rng *rand.Rand) (Point3, Vector3) {
	n := SampleS2(rng).Norm()
	return b.Center.Add(n.Mul(b.Radius)), n
}

// SphereArea is 4πr².
func SphereArea(r Real) Real { return 4 * math.Pi * r * r }
