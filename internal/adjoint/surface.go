package adjoint

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

// Purpose keys. Registering under one of them replaces the previous surface.
const (
	ExternalSource = "ExternalSource"
	AdjointSource  = "AdjointSource"
)

// Surface is a closed boundary used as a source or a sink.
type Surface interface {
	Name() string
	Area() geometry.Real
	Center() geometry.Point3
	// Crossed reports whether the segment before->after crosses the surface.
	Crossed(before, after geometry.Point3) bool
	// Outgoing reports a crossing from inside to outside.
	Outgoing(before, after geometry.Point3) bool
	// Incoming reports a crossing from outside to inside.
	Incoming(before, after geometry.Point3) bool
	// Sample returns a uniform point on the surface and the inward normal there.
	Sample(rng *rand.Rand) (geometry.Point3, geometry.Vector3)
}

type SphereSurface struct {
	name   string
	radius geometry.Real
	center geometry.Point3
	area   geometry.Real
}

func (s *SphereSurface) Name() string            { return s.name }
func (s *SphereSurface) Area() geometry.Real     { return s.area }
func (s *SphereSurface) Center() geometry.Point3 { return s.center }
func (s *SphereSurface) Radius() geometry.Real   { return s.radius }

func (s *SphereSurface) signedDist(p geometry.Point3) geometry.Real {
	return p.Dist(s.center) - s.radius
}

func (s *SphereSurface) Crossed(before, after geometry.Point3) bool {
	return (s.signedDist(before) < 0) != (s.signedDist(after) < 0)
}

func (s *SphereSurface) Outgoing(before, after geometry.Point3) bool {
	return s.signedDist(before) < 0 && s.signedDist(after) >= 0
}

func (s *SphereSurface) Incoming(before, after geometry.Point3) bool {
	return s.signedDist(before) >= 0 && s.signedDist(after) < 0
}

func (s *SphereSurface) Sample(rng *rand.Rand) (geometry.Point3, geometry.Vector3) {
	n := geometry.SampleS2(rng)
	return s.center.Add(n.Mul(s.radius)), n.Neg()
}

// VolumeSurface is the outer boundary of a geometry volume.
type VolumeSurface struct {
	name   string
	volume geometry.Volume
	area   geometry.Real
}

func (s *VolumeSurface) Name() string            { return s.name }
func (s *VolumeSurface) Area() geometry.Real     { return s.area }
func (s *VolumeSurface) Center() geometry.Point3 { return s.volume.Centroid() }
func (s *VolumeSurface) Volume() geometry.Volume { return s.volume }

// Crossed is true only when leaving the volume, entering does not count.
func (s *VolumeSurface) Crossed(before, after geometry.Point3) bool {
	return s.Outgoing(before, after)
}

func (s *VolumeSurface) Outgoing(before, after geometry.Point3) bool {
	return s.volume.Inside(before) && !s.volume.Inside(after)
}

func (s *VolumeSurface) Incoming(before, after geometry.Point3) bool {
	return !s.volume.Inside(before) && s.volume.Inside(after)
}

func (s *VolumeSurface) Sample(rng *rand.Rand) (geometry.Point3, geometry.Vector3) {
	p, n := s.volume.SampleSurface(rng)
	return p, n.Neg()
}

// shiftedSurface is a surface translated by a fixed offset.
type shiftedSurface struct {
	Surface
	shift geometry.Vector3
}

func (s *shiftedSurface) back(p geometry.Point3) geometry.Point3 { return p.Add(s.shift.Neg()) }

func (s *shiftedSurface) Center() geometry.Point3 { return s.Surface.Center().Add(s.shift) }

func (s *shiftedSurface) Crossed(before, after geometry.Point3) bool {
	return s.Surface.Crossed(s.back(before), s.back(after))
}

func (s *shiftedSurface) Outgoing(before, after geometry.Point3) bool {
	return s.Surface.Outgoing(s.back(before), s.back(after))
}

func (s *shiftedSurface) Incoming(before, after geometry.Point3) bool {
	return s.Surface.Incoming(s.back(before), s.back(after))
}

func (s *shiftedSurface) Sample(rng *rand.Rand) (geometry.Point3, geometry.Vector3) {
	p, n := s.Surface.Sample(rng)
	return p.Add(s.shift), n
}

// SurfaceRegistry owns the named surfaces of one manager.
type SurfaceRegistry struct {
	geo      geometry.Geometry
	surfaces map[string]Surface
}

func NewSurfaceRegistry(geo geometry.Geometry) *SurfaceRegistry {
	return &SurfaceRegistry{geo: geo, surfaces: make(map[string]Surface)}
}

func isPurposeKey(name string) bool { return name == ExternalSource || name == AdjointSource }

func (r *SurfaceRegistry) put(s Surface) error {
	if _, ok := r.surfaces[s.Name()]; ok && !isPurposeKey(s.Name()) {
		return fmt.Errorf("%w: %q", ErrDuplicateName, s.Name())
	}
	r.surfaces[s.Name()] = s
	return nil
}

func (r *SurfaceRegistry) volume(name string) (geometry.Volume, error) {
	if r.geo == nil {
		return nil, fmt.Errorf("%w: %q (no geometry)", ErrUnknownVolume, name)
	}
	v, ok := r.geo.Volume(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVolume, name)
	}
	return v, nil
}

// RegisterSphere registers a sphere and returns its area 4πr².
func (r *SurfaceRegistry) RegisterSphere(name string, radius geometry.Real, center geometry.Point3) (geometry.Real, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty surface name", ErrConfiguration)
	}
	if !(radius > 0) {
		return 0, fmt.Errorf("%w: sphere %q radius must be > 0, got %v", ErrConfiguration, name, radius)
	}
	if !center.IsFinite() {
		return 0, fmt.Errorf("%w: sphere %q center is not finite", ErrConfiguration, name)
	}
	s := &SphereSurface{name: name, radius: radius, center: center, area: geometry.SphereArea(radius)}
	if err := r.put(s); err != nil {
		return 0, err
	}
	return s.area, nil
}

// RegisterVolumeBoundary registers the outer surface of a named volume.
func (r *SurfaceRegistry) RegisterVolumeBoundary(name, volumeName string) (geometry.Real, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty surface name", ErrConfiguration)
	}
	v, err := r.volume(volumeName)
	if err != nil {
		return 0, err
	}
	s := &VolumeSurface{name: name, volume: v, area: v.SurfaceArea()}
	if err := r.put(s); err != nil {
		return 0, err
	}
	return s.area, nil
}

// RegisterSphereCenteredOnVolume registers a sphere at a volume's centroid.
func (r *SurfaceRegistry) RegisterSphereCenteredOnVolume(name string, radius geometry.Real, volumeName string) (geometry.Point3, geometry.Real, error) {
	v, err := r.volume(volumeName)
	if err != nil {
		return geometry.Point3{}, 0, err
	}
	c := v.Centroid()
	area, err := r.RegisterSphere(name, radius, c)
	if err != nil {
		return geometry.Point3{}, 0, err
	}
	return c, area, nil
}

func (r *SurfaceRegistry) Surface(name string) (Surface, error) {
	s, ok := r.surfaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
	}
	return s, nil
}

func (r *SurfaceRegistry) Crossed(name string, before, after geometry.Point3) (bool, error) {
	s, err := r.Surface(name)
	if err != nil {
		return false, err
	}
	return s.Crossed(before, after), nil
}

func (r *SurfaceRegistry) Outgoing(name string, before, after geometry.Point3) (bool, error) {
	s, err := r.Surface(name)
	if err != nil {
		return false, err
	}
	return s.Outgoing(before, after), nil
}

// Names returns the registered names, sorted.
func (r *SurfaceRegistry) Names() []string {
	out := make([]string, 0, len(r.surfaces))
	for n := range r.surfaces {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
