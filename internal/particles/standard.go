package particles

// Ion PDG codes follow 100ZZZAAAI.
func ionPDG(z, a int) int { return 1000000000 + z*10000 + a*10 }

var standard = []Definition{
	{Name: "gamma", PDG: 22, Type: TypeGamma},
	{Name: "e-", PDG: 11, Charge: -1, Type: TypeLepton},
	{Name: "e+", PDG: -11, Charge: 1, Type: TypeLepton},
	{Name: "mu-", PDG: 13, Charge: -1, Type: TypeLepton},
	{Name: "mu+", PDG: -13, Charge: 1, Type: TypeLepton},
	{Name: "pi+", PDG: 211, Charge: 1, Type: TypeMeson},
	{Name: "pi-", PDG: -211, Charge: -1, Type: TypeMeson},
	{Name: "proton", PDG: 2212, BaryonNumber: 1, Charge: 1, Type: TypeBaryon},
	{Name: "neutron", PDG: 2112, BaryonNumber: 1, Type: TypeBaryon},
	{Name: "deuteron", PDG: ionPDG(1, 2), BaryonNumber: 2, Charge: 1, Type: TypeNucleus},
	{Name: "triton", PDG: ionPDG(1, 3), BaryonNumber: 3, Charge: 1, Type: TypeNucleus},
	{Name: "He3", PDG: ionPDG(2, 3), BaryonNumber: 3, Charge: 2, Type: TypeNucleus},
	{Name: "alpha", PDG: ionPDG(2, 4), BaryonNumber: 4, Charge: 2, Type: TypeNucleus},
	{Name: "C12", PDG: ionPDG(6, 12), BaryonNumber: 12, Charge: 6, Type: TypeNucleus},
	{Name: "O16", PDG: ionPDG(8, 16), BaryonNumber: 16, Charge: 8, Type: TypeNucleus},
	{Name: "Fe56", PDG: ionPDG(26, 56), BaryonNumber: 56, Charge: 26, Type: TypeNucleus},
}

// NewStandardTable returns a table with common species and all their adjoint
// counterparts ("adj_gamma", "adj_e-", ...).
func NewStandardTable() *StaticTable {
	t := NewTable()
	for i := range standard {
		d := standard[i]
		// static data, names are unique
		_ = t.InsertWithAdjoint(&d)
	}
	return t
}
