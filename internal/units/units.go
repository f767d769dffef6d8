// Package units holds the internal unit system: lengths in mm, energies in MeV.
package units

const (
	Millimeter = 1.0
	Centimeter = 10 * Millimeter
	Meter      = 1000 * Millimeter
	Kilometer  = 1000 * Meter

	MeV = 1.0
	EV  = 1e-6 * MeV
	KeV = 1e-3 * MeV
	GeV = 1e3 * MeV
	TeV = 1e6 * MeV
)
