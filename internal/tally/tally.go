// Package tally accumulates weighted energy spectra of adjoint records.
package tally

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
)

// NumShards must be a power of two.
const NumShards = 256

type shardLocks struct{ mu [NumShards]sync.Mutex }

func (sl *shardLocks) lock(idx int)   { sl.mu[idx&(NumShards-1)].Lock() }
func (sl *shardLocks) unlock(idx int) { sl.mu[idx&(NumShards-1)].Unlock() }

// Spectrum is the log-binned spectrum of one forward particle. Sum holds the
// summed weights, SumSq the summed squared weights.
type Spectrum struct {
	Particle  string
	Edges     []float64 // len(Sum)+1
	Sum       []float64
	SumSq     []float64
	Entries   []int
	Underflow float64
	Overflow  float64
}

// Total returns the summed in-range weight and its relative statistical error.
func (s Spectrum) Total() (sum, relErr float64) {
	var sq float64
	for i := range s.Sum {
		sum += s.Sum[i]
		sq += s.SumSq[i]
	}
	if sum == 0 {
		return 0, 0
	}
	return sum, math.Sqrt(sq) / sum
}

type spectrum struct {
	slot      int
	sum       []float64
	sumSq     []float64
	entries   []int
	underflow float64
	overflow  float64
}

// Tally is safe for concurrent Add.
type Tally struct {
	emin, emax float64
	nbins      int
	logMin     float64
	logStep    float64

	mu      sync.RWMutex
	spectra map[string]*spectrum
	locks   shardLocks
}

func New(emin, emax float64, nbins int) (*Tally, error) {
	if !(emin > 0) || !(emax > emin) || math.IsInf(emax, 0) {
		return nil, fmt.Errorf("tally: need 0 < emin < emax, got [%g, %g]", emin, emax)
	}
	if nbins < 1 {
		return nil, fmt.Errorf("tally: bins must be >= 1, got %d", nbins)
	}
	return &Tally{
		emin:    emin,
		emax:    emax,
		nbins:   nbins,
		logMin:  math.Log(emin),
		logStep: math.Log(emax/emin) / float64(nbins),
		spectra: map[string]*spectrum{},
	}, nil
}

func (t *Tally) Bins() int { return t.nbins }

// Edges returns the nbins+1 bin edges.
func (t *Tally) Edges() []float64 {
	e := make([]float64, t.nbins+1)
	for i := range e {
		e[i] = math.Exp(t.logMin + float64(i)*t.logStep)
	}
	e[0], e[t.nbins] = t.emin, t.emax
	return e
}

// bin returns -1 below range and nbins at or above it.
func (t *Tally) bin(e float64) int {
	if e < t.emin {
		return -1
	}
	if e >= t.emax {
		return t.nbins
	}
	b := int((math.Log(e) - t.logMin) / t.logStep)
	if b >= t.nbins {
		b = t.nbins - 1
	}
	return b
}

func (t *Tally) get(particle string) *spectrum {
	t.mu.RLock()
	s := t.spectra[particle]
	t.mu.RUnlock()
	if s != nil {
		return s
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if s = t.spectra[particle]; s == nil {
		s = &spectrum{
			slot:    len(t.spectra),
			sum:     make([]float64, t.nbins),
			sumSq:   make([]float64, t.nbins),
			entries: make([]int, t.nbins),
		}
		t.spectra[particle] = s
	}
	return s
}

// Add deposits weight w at kinetic energy e. NaN energies are dropped.
func (t *Tally) Add(particle string, e, w float64) {
	if math.IsNaN(e) || math.IsNaN(w) {
		return
	}
	s := t.get(particle)
	b := t.bin(e)
	// one lock index per (particle, bin); under and overflow share index nbins
	k := b
	if k < 0 {
		k = t.nbins
	}
	idx := s.slot*(t.nbins+1) + k
	t.locks.lock(idx)
	switch {
	case b < 0:
		s.underflow += w
	case b >= t.nbins:
		s.overflow += w
	default:
		s.sum[b] += w
		s.sumSq[b] += w * w
		s.entries[b]++
	}
	t.locks.unlock(idx)
}

// AddRecord deposits a record at its kinetic energy per nucleon.
func (t *Tally) AddRecord(r adjoint.TrackRecord) {
	t.Add(r.FwdName, r.EkinPerNucleon, r.Weight)
}

// Particles returns the tallied particle names, sorted.
func (t *Tally) Particles() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.spectra))
	for n := range t.spectra {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Spectrum returns a copy of the particle's spectrum. Call it once all Adds
// are done.
func (t *Tally) Spectrum(particle string) (Spectrum, bool) {
	t.mu.RLock()
	s := t.spectra[particle]
	t.mu.RUnlock()
	if s == nil {
		return Spectrum{}, false
	}
	return Spectrum{
		Particle:  particle,
		Edges:     t.Edges(),
		Sum:       append([]float64(nil), s.sum...),
		SumSq:     append([]float64(nil), s.sumSq...),
		Entries:   append([]int(nil), s.entries...),
		Underflow: s.underflow,
		Overflow:  s.overflow,
	}, true
}
