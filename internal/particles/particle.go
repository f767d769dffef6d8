// Package particles is a small particle table with forward species and their
// adjoint counterparts.
package particles

import (
	"fmt"
	"sort"
	"strings"
)

// AdjointPrefix marks adjoint species: "adj_" + forward name.
const AdjointPrefix = "adj_"

// Particle type tags.
const (
	TypeGamma          = "gamma"
	TypeLepton         = "lepton"
	TypeBaryon         = "baryon"
	TypeMeson          = "meson"
	TypeNucleus        = "nucleus"
	TypeAdjoint        = "adjoint"
	TypeAdjointNucleus = "adjoint_nucleus"
)

// Definition describes one particle species.
type Definition struct {
	Name         string
	PDG          int
	BaryonNumber int
	Charge       float64 // in units of e
	Type         string
}

// IsAdjoint reports whether d is an adjoint species.
func (d *Definition) IsAdjoint() bool {
	return d != nil && (d.Type == TypeAdjoint || d.Type == TypeAdjointNucleus)
}

// IsNucleus reports whether d is a composite nucleus (forward or adjoint).
func (d *Definition) IsNucleus() bool {
	return d != nil && (d.Type == TypeNucleus || d.Type == TypeAdjointNucleus) && d.BaryonNumber > 0
}

// ForwardName strips the adjoint prefix.
func ForwardName(name string) string { return strings.TrimPrefix(name, AdjointPrefix) }

// AdjointName adds the adjoint prefix.
func AdjointName(name string) string { return AdjointPrefix + name }

// Table looks particle definitions up by name.
type Table interface {
	Find(name string) (*Definition, bool)
}

// StaticTable is an in-memory Table.
type StaticTable struct {
	byName map[string]*Definition
}

func NewTable() *StaticTable {
	return &StaticTable{byName: make(map[string]*Definition)}
}

// Insert adds a definition; names are unique.
func (t *StaticTable) Insert(d *Definition) error {
	if d == nil || d.Name == "" {
		return fmt.Errorf("particle definition must have a name")
	}
	if _, ok := t.byName[d.Name]; ok {
		return fmt.Errorf("particle %q already defined", d.Name)
	}
	t.byName[d.Name] = d
	return nil
}

// InsertWithAdjoint adds d and its adjoint counterpart. The adjoint copy keeps
// PDG code and baryon number; its type tag becomes adjoint / adjoint_nucleus.
func (t *StaticTable) InsertWithAdjoint(d *Definition) error {
	if err := t.Insert(d); err != nil {
		return err
	}
	adj := *d
	adj.Name = AdjointName(d.Name)
	adj.Type = TypeAdjoint
	if d.Type == TypeNucleus {
		adj.Type = TypeAdjointNucleus
	}
	return t.Insert(&adj)
}

func (t *StaticTable) Find(name string) (*Definition, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// Names lists all particle names, sorted.
func (t *StaticTable) Names() []string {
	out := make([]string, 0, len(t.byName))
	for n := range t.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
