package tally

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// SaveRaw writes every spectrum as little-endian binary:
//
//	int32 nbins, int32 nparticles, float64 edges[nbins+1]
//	per particle: int32 len, name bytes, float64 sum[nbins], float64 sumsq[nbins]
func (t *Tally) SaveRaw(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	names := t.Particles()
	for _, v := range []int32{int32(t.nbins), int32(len(names))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, t.Edges()); err != nil {
		return err
	}
	for _, n := range names {
		s, _ := t.Spectrum(n)
		if err := binary.Write(w, binary.LittleEndian, int32(len(n))); err != nil {
			return err
		}
		if _, err := w.WriteString(n); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.Sum); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, s.SumSq); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Sync()
}
