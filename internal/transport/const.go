package transport

import "github.com/lukaszgryglicki/adjointmc/internal/units"

const (
	// bumpShift pushes an escaping track just past the world boundary.
	bumpShift = 1e-6

	DefaultMaxSteps      = 1000
	DefaultMeanFreePath  = 10 * units.Centimeter
	DefaultMaxStepLength = 1 * units.Meter
	DefaultAdjointGain   = 0.1
	DefaultForwardLoss   = 0.1
	DefaultForwardCut    = 1 * units.KeV

	// golden-ratio mix for per-thread seeds
	seedMix = 0x9e3779b97f4a7c15
)
