package adjoint

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
)

// IonKey selects the ion configured with SetPrimaryIon.
const IonKey = "ion"

// AngularPolicy is how primary directions are drawn at the source surface.
type AngularPolicy uint8

const (
	CosineInward    AngularPolicy = iota // Lambert law around the inward normal
	IsotropicInward                      // uniform over the inward hemisphere
)

func ParseAngularPolicy(s string) (AngularPolicy, error) {
	switch strings.ToLower(s) {
	case "cosine", "cosine_inward", "":
		return CosineInward, nil
	case "isotropic", "isotropic_inward":
		return IsotropicInward, nil
	}
	return 0, fmt.Errorf("%w: angular policy %q", ErrConfiguration, s)
}

func (a AngularPolicy) String() string {
	if a == IsotropicInward {
		return "isotropic"
	}
	return "cosine"
}

// Spectrum is how primary energies are drawn.
type Spectrum uint8

const (
	LogUniform Spectrum = iota // 1/E
	Flat
)

func ParseSpectrum(s string) (Spectrum, error) {
	switch strings.ToLower(s) {
	case "log", "loguniform", "log_uniform", "":
		return LogUniform, nil
	case "flat", "uniform":
		return Flat, nil
	}
	return 0, fmt.Errorf("%w: spectrum %q", ErrConfiguration, s)
}

func (s Spectrum) String() string {
	if s == Flat {
		return "flat"
	}
	return "log"
}

// Candidate is one entry of the primary list. Neglected entries keep their
// place with Considered=false.
type Candidate struct {
	Forward    *particles.Definition
	Adjoint    *particles.Definition
	Considered bool
	Weight     geometry.Real // relative selection probability
	PerEvent   int           // adjoint primaries emitted per event
}

// Primary is one generated adjoint primary.
type Primary struct {
	Adjoint   *particles.Definition
	Forward   *particles.Definition
	FwdIndex  int // index in ConsideredForward()
	PerEvent  int
	Position  geometry.Point3
	Direction geometry.Vector3
	Energy    geometry.Real
	Weight    geometry.Real
}

// PrimarySourceGenerator draws adjoint primaries on the adjoint source.
type PrimarySourceGenerator struct {
	table      particles.Table
	candidates []*Candidate
	weights    map[string]geometry.Real
	perEvent   map[string]int
	ionAdj     *particles.Definition
	ionFwd     *particles.Definition

	emin, emax geometry.Real
	source     Surface
	angular    AngularPolicy
	spectrum   Spectrum

	fwdGammasPerEvent int
	last              *particles.Definition
}

func NewPrimarySourceGenerator(table particles.Table) *PrimarySourceGenerator {
	return &PrimarySourceGenerator{
		table:    table,
		weights:  make(map[string]geometry.Real),
		perEvent: make(map[string]int),
	}
}

// SetPrimaryIon sets the species used for the "ion" candidate.
func (g *PrimarySourceGenerator) SetPrimaryIon(adjName, fwdName string) error {
	adj, ok := g.table.Find(adjName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParticle, adjName)
	}
	fwd, ok := g.table.Find(fwdName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownParticle, fwdName)
	}
	if !adj.IsAdjoint() {
		return fmt.Errorf("%w: %q is not an adjoint particle", ErrUnknownParticle, adjName)
	}
	g.ionAdj, g.ionFwd = adj, fwd
	return nil
}

func (g *PrimarySourceGenerator) resolve(name string) (fwd, adj *particles.Definition, err error) {
	if name == IonKey {
		if g.ionFwd == nil {
			return nil, nil, fmt.Errorf("%w: primary ion not set", ErrUnknownParticle)
		}
		return g.ionFwd, g.ionAdj, nil
	}
	fwd, ok := g.table.Find(name)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownParticle, name)
	}
	adj, ok = g.table.Find(particles.AdjointName(name))
	if !ok {
		return nil, nil, fmt.Errorf("%w: no adjoint counterpart for %q", ErrUnknownParticle, name)
	}
	return fwd, adj, nil
}

func (g *PrimarySourceGenerator) find(fwd string) *Candidate {
	for _, c := range g.candidates {
		if c.Forward.Name == fwd {
			return c
		}
	}
	return nil
}

// ConsiderAsPrimary adds a forward particle to the considered set.
func (g *PrimarySourceGenerator) ConsiderAsPrimary(name string) error {
	fwd, adj, err := g.resolve(name)
	if err != nil {
		return err
	}
	if c := g.find(fwd.Name); c != nil {
		c.Considered = true
		return nil
	}
	g.candidates = append(g.candidates, &Candidate{Forward: fwd, Adjoint: adj, Considered: true})
	return nil
}

// NeglectAsPrimary removes a particle from the considered set. Unknown or
// never considered names are a no-op.
func (g *PrimarySourceGenerator) NeglectAsPrimary(name string) {
	if name == IonKey {
		if g.ionFwd == nil {
			return
		}
		name = g.ionFwd.Name
	}
	if c := g.find(name); c != nil {
		c.Considered = false
	}
}

// Candidates returns the full candidate history with current weights.
func (g *PrimarySourceGenerator) Candidates() []Candidate {
	out := make([]Candidate, 0, len(g.candidates))
	for _, c := range g.candidates {
		cc := *c
		cc.Weight = g.weightOf(c.Forward.Name)
		cc.PerEvent = g.perEventOf(c.Forward.Name)
		out = append(out, cc)
	}
	return out
}

func (g *PrimarySourceGenerator) considered() []*Candidate {
	var out []*Candidate
	for _, c := range g.candidates {
		if c.Considered {
			out = append(out, c)
		}
	}
	return out
}

// ConsideredForward is the ordered list of considered forward species. Track
// records index into it.
func (g *PrimarySourceGenerator) ConsideredForward() []*particles.Definition {
	var out []*particles.Definition
	for _, c := range g.candidates {
		if c.Considered {
			out = append(out, c.Forward)
		}
	}
	return out
}

func (g *PrimarySourceGenerator) NbOfAdjointPrimaryTypes() int { return len(g.considered()) }

func (g *PrimarySourceGenerator) SetEnergyRange(min, max geometry.Real) error {
	if !(min > 0) || !(max >= min) {
		return fmt.Errorf("%w: energy range [%v, %v]", ErrConfiguration, min, max)
	}
	g.emin, g.emax = min, max
	return nil
}

// SetEmin and SetEmax are checked by Validate.
func (g *PrimarySourceGenerator) SetEmin(e geometry.Real) { g.emin = e }
func (g *PrimarySourceGenerator) SetEmax(e geometry.Real) { g.emax = e }

func (g *PrimarySourceGenerator) EnergyRange() (geometry.Real, geometry.Real) { return g.emin, g.emax }

// SetSource sets the emission surface. A non-nil centerOverride moves the
// surface so that its centre lands there. The move applies to sampling and
// to the crossing tests of Source alike.
func (g *PrimarySourceGenerator) SetSource(s Surface, centerOverride *geometry.Point3) {
	g.source = s
	if s != nil && centerOverride != nil {
		if sh, ok := s.(*shiftedSurface); ok {
			s = sh.Surface
		}
		g.source = &shiftedSurface{Surface: s, shift: centerOverride.Sub(s.Center())}
	}
}

func (g *PrimarySourceGenerator) Source() Surface { return g.source }

func (g *PrimarySourceGenerator) SetWeight(name string, w geometry.Real) error {
	if !(w >= 0) || math.IsInf(w, 0) {
		return fmt.Errorf("%w: weight of %q must be finite and >= 0", ErrConfiguration, name)
	}
	g.weights[name] = w
	return nil
}

func (g *PrimarySourceGenerator) SetPerEvent(name string, n int) error {
	if n < 1 {
		return fmt.Errorf("%w: %q per event must be >= 1", ErrConfiguration, name)
	}
	g.perEvent[name] = n
	return nil
}

func (g *PrimarySourceGenerator) SetFwdGammasPerEvent(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: forward gammas per event must be >= 0", ErrConfiguration)
	}
	g.fwdGammasPerEvent = n
	return nil
}

func (g *PrimarySourceGenerator) FwdGammasPerEvent() int { return g.fwdGammasPerEvent }

func (g *PrimarySourceGenerator) SetAngularPolicy(a AngularPolicy) { g.angular = a }
func (g *PrimarySourceGenerator) SetSpectrum(s Spectrum)           { g.spectrum = s }

// LastGeneratedFwdPrimary is the forward species of the last primary, nil
// before the first one.
func (g *PrimarySourceGenerator) LastGeneratedFwdPrimary() *particles.Definition { return g.last }

func (g *PrimarySourceGenerator) weightOf(name string) geometry.Real {
	if w, ok := g.weights[name]; ok {
		return w
	}
	return 1
}

func (g *PrimarySourceGenerator) perEventOf(name string) int {
	if n, ok := g.perEvent[name]; ok {
		return n
	}
	return 1
}

func (g *PrimarySourceGenerator) weightSum(cands []*Candidate) geometry.Real {
	sum := 0.0
	for _, c := range cands {
		sum += g.weightOf(c.Forward.Name)
	}
	return sum
}

// Validate reports whether GeneratePrimary can draw with the current
// settings.
func (g *PrimarySourceGenerator) Validate() error {
	cands := g.considered()
	if len(cands) == 0 {
		return ErrNoCandidateParticles
	}
	if g.source == nil {
		return fmt.Errorf("%w: adjoint source not defined", ErrUnknownSurface)
	}
	if !(g.emin > 0) || !(g.emax >= g.emin) || math.IsInf(g.emax, 0) {
		return fmt.Errorf("%w: energy range [%v, %v]", ErrConfiguration, g.emin, g.emax)
	}
	if !(g.weightSum(cands) > 0) {
		return fmt.Errorf("%w: all candidate weights are zero", ErrConfiguration)
	}
	return nil
}

// GeneratePrimary draws one adjoint primary. The weight corrects the biased
// draws towards uniform type selection, a flat energy spectrum and an
// isotropic inward direction. The draw order is fixed so a seeded rng
// reproduces the same sequence.
func (g *PrimarySourceGenerator) GeneratePrimary(rng *rand.Rand) (Primary, error) {
	if err := g.Validate(); err != nil {
		return Primary{}, err
	}
	cands := g.considered()
	sum := g.weightSum(cands)

	// type
	idx := len(cands) - 1
	u := rng.Float64() * sum
	acc := 0.0
	for i, c := range cands {
		acc += g.weightOf(c.Forward.Name)
		if u < acc {
			idx = i
			break
		}
	}
	c := cands[idx]
	pType := g.weightOf(c.Forward.Name) / sum
	wType := 1 / (geometry.Real(len(cands)) * pType)

	// position and direction
	pos, inward := g.source.Sample(rng)
	dir, cosTheta := geometry.SampleHemisphere(rng, inward, g.angular == CosineInward)
	wDir := 1.0
	if g.angular == CosineInward {
		wDir = 1 / (2 * cosTheta)
	}

	// energy
	e, wE := g.sampleEnergy(rng)

	g.last = c.Forward
	return Primary{
		Adjoint:   c.Adjoint,
		Forward:   c.Forward,
		FwdIndex:  idx,
		PerEvent:  g.perEventOf(c.Forward.Name),
		Position:  pos,
		Direction: dir,
		Energy:    e,
		Weight:    wType * wDir * wE,
	}, nil
}

func (g *PrimarySourceGenerator) sampleEnergy(rng *rand.Rand) (geometry.Real, geometry.Real) {
	u := rng.Float64()
	if g.emax == g.emin {
		return g.emin, 1
	}
	if g.spectrum == Flat {
		return g.emin + u*(g.emax-g.emin), 1
	}
	lr := math.Log(g.emax / g.emin)
	e := g.emin * math.Exp(u*lr)
	if e < g.emin {
		e = g.emin
	} else if e > g.emax {
		e = g.emax
	}
	return e, e * lr / (g.emax - g.emin)
}
