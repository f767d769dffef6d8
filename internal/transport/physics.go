package transport

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

// Physics is a toy interaction model: exponential free paths and isotropic
// scattering. Adjoint tracks gain energy at each interaction, forward tracks
// lose it.
type Physics struct {
	MaxSteps      int
	MeanFreePath  geometry.Real
	MaxStepLength geometry.Real
	AdjointGain   geometry.Real // max fractional gain per interaction
	ForwardLoss   geometry.Real // max fractional loss per interaction
	ForwardCut    geometry.Real // forward tracks below this stop
}

func DefaultPhysics() Physics {
	return Physics{
		MaxSteps:      DefaultMaxSteps,
		MeanFreePath:  DefaultMeanFreePath,
		MaxStepLength: DefaultMaxStepLength,
		AdjointGain:   DefaultAdjointGain,
		ForwardLoss:   DefaultForwardLoss,
		ForwardCut:    DefaultForwardCut,
	}
}

func (p Physics) Validate() error {
	if p.MaxSteps < 1 {
		return fmt.Errorf("max steps must be >= 1, got %d", p.MaxSteps)
	}
	if !(p.MeanFreePath > 0) || !(p.MaxStepLength > 0) {
		return fmt.Errorf("mean free path and max step length must be > 0")
	}
	if p.AdjointGain < 0 || p.ForwardLoss < 0 || p.ForwardLoss >= 1 {
		return fmt.Errorf("adjoint gain must be >= 0 and forward loss in [0, 1)")
	}
	if p.ForwardCut < 0 {
		return fmt.Errorf("forward cut must be >= 0")
	}
	return nil
}

// step moves tr once and returns the step. Track fields hold the post-step
// state on return.
func (p Physics) step(world *geometry.World, tr *action.Track, rng *rand.Rand) *action.Step {
	pre := action.StepPoint{Position: tr.Position, Direction: tr.Direction, Ekin: tr.Ekin}

	dist := -p.MeanFreePath * math.Log(1-rng.Float64())
	interact := true
	if dist > p.MaxStepLength {
		dist = p.MaxStepLength
		interact = false
	}
	if tOut := world.DistanceToOut(tr.Position, tr.Direction); dist >= tOut {
		dist = tOut + bumpShift
		interact = false
		tr.Status = action.Escaped
	}

	tr.Position = tr.Position.Add(tr.Direction.Mul(dist))
	tr.Length += dist
	tr.StepCount++

	if interact {
		tr.Direction = geometry.SampleS2(rng)
		u := rng.Float64()
		if tr.IsAdjoint() {
			tr.Ekin *= 1 + p.AdjointGain*u
		} else {
			tr.Ekin *= 1 - p.ForwardLoss*u
			if tr.Ekin < p.ForwardCut {
				tr.Status = action.Stopped
			}
		}
	}

	return &action.Step{
		Track:  tr,
		Pre:    pre,
		Post:   action.StepPoint{Position: tr.Position, Direction: tr.Direction, Ekin: tr.Ekin},
		Length: dist,
	}
}
