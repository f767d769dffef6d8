package tally

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
)

func TestNewRejectsBadRange(t *testing.T) {
	for _, c := range []struct {
		emin, emax float64
		bins       int
	}{{0, 1, 10}, {1, 1, 10}, {2, 1, 10}, {1, math.Inf(1), 10}, {1, 10, 0}} {
		if _, err := New(c.emin, c.emax, c.bins); err == nil {
			t.Fatalf("New(%g, %g, %d) should fail", c.emin, c.emax, c.bins)
		}
	}
}

func TestEdgesAndBins(t *testing.T) {
	tl, err := New(1, 1000, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{1, 10, 100, 1000}
	for i, e := range tl.Edges() {
		if math.Abs(e-want[i]) > 1e-9*want[i] {
			t.Fatalf("edge %d = %g, want %g", i, e, want[i])
		}
	}
	cases := map[float64]int{0.5: -1, 1: 0, 9.99: 0, 10.01: 1, 999: 2, 1000: 3, 5000: 3}
	for e, b := range cases {
		if got := tl.bin(e); got != b {
			t.Fatalf("bin(%g) = %d, want %d", e, got, b)
		}
	}
}

func TestAddAndTotal(t *testing.T) {
	tl, _ := New(1, 100, 2)
	tl.Add("gamma", 2, 1)
	tl.Add("gamma", 3, 3)
	tl.Add("gamma", 50, 4)
	tl.Add("gamma", 0.1, 7)
	tl.Add("gamma", 200, 9)
	tl.Add("gamma", math.NaN(), 100)
	tl.AddRecord(adjoint.TrackRecord{FwdName: "alpha", Ekin: 80, EkinPerNucleon: 20, Weight: 2})

	s, ok := tl.Spectrum("gamma")
	if !ok {
		t.Fatal("gamma missing")
	}
	if s.Sum[0] != 4 || s.Sum[1] != 4 || s.Entries[0] != 2 || s.Entries[1] != 1 {
		t.Fatalf("unexpected bins %+v", s)
	}
	if s.Underflow != 7 || s.Overflow != 9 {
		t.Fatalf("flows %g %g", s.Underflow, s.Overflow)
	}
	sum, rel := s.Total()
	if sum != 8 || math.Abs(rel-math.Sqrt(1+9+16)/8) > 1e-12 {
		t.Fatalf("total %g ± %g", sum, rel)
	}

	a, ok := tl.Spectrum("alpha")
	if !ok || a.Sum[1] != 2 {
		t.Fatalf("alpha is tallied per nucleon: %+v", a)
	}
	if got := tl.Particles(); len(got) != 2 || got[0] != "alpha" || got[1] != "gamma" {
		t.Fatalf("particles %v", got)
	}
	if _, ok := tl.Spectrum("e-"); ok {
		t.Fatal("e- should be absent")
	}
}

func TestConcurrentAdd(t *testing.T) {
	tl, _ := New(1, 1e6, 60)
	const workers, per = 8, 5000
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			name := []string{"e-", "gamma"}[w%2]
			for i := 0; i < per; i++ {
				tl.Add(name, 1+float64(i*37%999983), 1)
			}
		}(w)
	}
	wg.Wait()
	for _, n := range []string{"e-", "gamma"} {
		s, _ := tl.Spectrum(n)
		sum, _ := s.Total()
		if sum+s.Overflow+s.Underflow != workers/2*per {
			t.Fatalf("%s: lost deposits, got %g", n, sum+s.Overflow+s.Underflow)
		}
	}
}

func TestSaveRaw(t *testing.T) {
	tl, _ := New(1, 100, 2)
	tl.Add("e-", 5, 0.5)
	path := filepath.Join(t.TempDir(), "out", "spectra.raw")
	if err := tl.SaveRaw(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	r := bytes.NewReader(data)
	var nb, np, nl int32
	_ = binary.Read(r, binary.LittleEndian, &nb)
	_ = binary.Read(r, binary.LittleEndian, &np)
	edges := make([]float64, nb+1)
	_ = binary.Read(r, binary.LittleEndian, edges)
	_ = binary.Read(r, binary.LittleEndian, &nl)
	name := make([]byte, nl)
	_, _ = r.Read(name)
	sum := make([]float64, nb)
	_ = binary.Read(r, binary.LittleEndian, sum)
	if nb != 2 || np != 1 || string(name) != "e-" || sum[0] != 0.5 || edges[2] != 100 {
		t.Fatalf("bad header or body: nb=%d np=%d name=%q sum=%v", nb, np, name, sum)
	}
	// edges + (len, name, sum, sumsq)
	if want := 8 + 3*8 + 4 + 2 + 2*2*8; len(data) != want {
		t.Fatalf("size %d, want %d", len(data), want)
	}
}
