package geometry

import (
	"math"
	"math/rand"
)

// SampleS2 returns a uniform unit vector on S^2 (Marsaglia).
func SampleS2(rng *rand.Rand) Vector3 {
	for {
		u := 2*rng.Float64() - 1
		v := 2*rng.Float64() - 1
		s := u*u + v*v
		if s > 0 && s < 1 {
			f := 2 * math.Sqrt(1-s)
			return Vector3{u * f, v * f, 1 - 2*s} // already unit
		}
	}
}

// Orthonormal returns two unit vectors u, v so that (u, v, a) is a right-handed
// orthonormal basis. a must be unit length.
func Orthonormal(a Vector3) (u, v Vector3) {
	h := Vector3{1, 0, 0}
	if math.Abs(a.X) > 0.9 {
		h = Vector3{0, 1, 0}
	}
	u = h.Sub(a.Mul(h.Dot(a))).Norm()
	v = a.Cross(u)
	return u, v
}

// SampleHemisphere draws a direction in the hemisphere around the unit axis n.
// With cosine=true the polar angle follows Lambert's law (pdf cosθ/π),
// otherwise directions are uniform in solid angle (pdf 1/2π).
// The returned cosθ is always in (0, 1].
func SampleHemisphere(rng *rand.Rand, n Vector3, cosine bool) (Vector3, Real) {
	u1 := 1 - rng.Float64() // (0,1]
	u2 := rng.Float64()
	cosTheta := u1
	if cosine {
		cosTheta = math.Sqrt(u1)
	}
	s := 1 - cosTheta*cosTheta
	if s < 0 {
		s = 0
	}
	sinTheta := math.Sqrt(s)
	phi := 2 * math.Pi * u2
	a, b := Orthonormal(n)
	d := n.Mul(cosTheta).Add(a.Mul(sinTheta * math.Cos(phi))).Add(b.Mul(sinTheta * math.Sin(phi)))
	return d.Norm(), cosTheta
}
