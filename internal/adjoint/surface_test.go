package adjoint

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

func testWorld(t *testing.T) *geometry.World {
	t.Helper()
	w, err := geometry.NewWorld("world", geometry.Vector3{X: 1000, Y: 1000, Z: 1000})
	require.NoError(t, err)
	det, err := geometry.NewBox("detector", geometry.Point3{X: 100}, geometry.Vector3{X: 10, Y: 20, Z: 30})
	require.NoError(t, err)
	require.NoError(t, w.Add(det))
	return w
}

func TestSphereCrossing(t *testing.T) {
	r := NewSurfaceRegistry(nil)
	area, err := r.RegisterSphere("S", 10, geometry.Point3{})
	require.NoError(t, err)
	assert.InDelta(t, 4*math.Pi*100, area, 1e-9)

	cases := []struct {
		name          string
		before, after geometry.Point3
		crossed, out  bool
	}{
		{"inside to outside", geometry.Point3{Z: 5}, geometry.Point3{Z: 15}, true, true},
		{"inside to inside", geometry.Point3{Z: 5}, geometry.Point3{Z: 8}, false, false},
		{"outside to inside", geometry.Point3{Z: 15}, geometry.Point3{Z: 5}, true, false},
		{"outside to outside", geometry.Point3{X: 20}, geometry.Point3{Y: 30}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Crossed("S", tc.before, tc.after)
			require.NoError(t, err)
			assert.Equal(t, tc.crossed, got)
			out, err := r.Outgoing("S", tc.before, tc.after)
			require.NoError(t, err)
			assert.Equal(t, tc.out, out)
		})
	}

	_, err = r.Crossed("nope", geometry.Point3{}, geometry.Point3{})
	assert.ErrorIs(t, err, ErrUnknownSurface)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestSurfaceRegistryDuplicates(t *testing.T) {
	r := NewSurfaceRegistry(testWorld(t))

	_, err := r.RegisterSphere("S", 1, geometry.Point3{})
	require.NoError(t, err)
	_, err = r.RegisterSphere("S", 2, geometry.Point3{})
	assert.ErrorIs(t, err, ErrDuplicateName)
	_, err = r.RegisterVolumeBoundary("S", "detector")
	assert.ErrorIs(t, err, ErrDuplicateName)

	// purpose keys are replaced
	_, err = r.RegisterSphere(AdjointSource, 1, geometry.Point3{})
	require.NoError(t, err)
	area, err := r.RegisterVolumeBoundary(AdjointSource, "detector")
	require.NoError(t, err)
	assert.InDelta(t, 8*(20*30+10*30+10*20), area, 1e-9)
	s, err := r.Surface(AdjointSource)
	require.NoError(t, err)
	_, isVolume := s.(*VolumeSurface)
	assert.True(t, isVolume)

	assert.Equal(t, []string{AdjointSource, "S"}, r.Names())
}

func TestSurfaceRegistryErrors(t *testing.T) {
	r := NewSurfaceRegistry(testWorld(t))

	_, err := r.RegisterSphere("bad", 0, geometry.Point3{})
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = r.RegisterSphere("bad", math.NaN(), geometry.Point3{})
	assert.ErrorIs(t, err, ErrConfiguration)
	_, err = r.RegisterVolumeBoundary("x", "missing")
	assert.ErrorIs(t, err, ErrUnknownVolume)
	_, _, err = r.RegisterSphereCenteredOnVolume("x", 5, "missing")
	assert.True(t, errors.Is(err, ErrUnknownVolume))

	noGeo := NewSurfaceRegistry(nil)
	_, err = noGeo.RegisterVolumeBoundary("x", "detector")
	assert.ErrorIs(t, err, ErrUnknownVolume)
}

func TestSphereCenteredOnVolume(t *testing.T) {
	r := NewSurfaceRegistry(testWorld(t))
	c, area, err := r.RegisterSphereCenteredOnVolume(ExternalSource, 50, "detector")
	require.NoError(t, err)
	assert.Equal(t, geometry.Point3{X: 100}, c)
	assert.InDelta(t, geometry.SphereArea(50), area, 1e-9)

	crossed, err := r.Crossed(ExternalSource, geometry.Point3{X: 100}, geometry.Point3{X: 200})
	require.NoError(t, err)
	assert.True(t, crossed)
}

func TestVolumeSurface(t *testing.T) {
	r := NewSurfaceRegistry(testWorld(t))
	_, err := r.RegisterVolumeBoundary("det", "detector")
	require.NoError(t, err)
	s, err := r.Surface("det")
	require.NoError(t, err)

	in := geometry.Point3{X: 100}
	out := geometry.Point3{X: 200}
	assert.True(t, s.Crossed(in, out))
	assert.True(t, s.Outgoing(in, out))
	assert.False(t, s.Crossed(out, in), "entering a volume is not a boundary exit")
	assert.True(t, s.Incoming(out, in))

	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		p, n := s.Sample(rng)
		// a small step along the inward normal lands inside
		assert.True(t, s.(*VolumeSurface).Volume().Inside(p.Add(n.Mul(1e-6))), "sample %d: %+v", i, p)
	}
}

func TestSphereSample(t *testing.T) {
	r := NewSurfaceRegistry(nil)
	c := geometry.Point3{X: 1, Y: 2, Z: 3}
	_, err := r.RegisterSphere("S", 7, c)
	require.NoError(t, err)
	s, _ := r.Surface("S")
	sp, ok := s.(*SphereSurface)
	require.True(t, ok)
	assert.Equal(t, geometry.Real(7), sp.Radius())
	assert.Equal(t, c, sp.Center())
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 500; i++ {
		p, n := s.Sample(rng)
		assert.InDelta(t, 7, p.Dist(c), 1e-9)
		// inward normal points at the centre
		assert.InDelta(t, -1, n.Dot(p.Sub(c).Norm()), 1e-9)
	}
}
