package adjoint

import (
	"errors"
	"fmt"
)

// ErrConfiguration is the parent of every error caused by an invalid setup.
// The simulation does not start when one is returned.
var ErrConfiguration = errors.New("adjoint: configuration error")

var (
	ErrDuplicateName        = fmt.Errorf("%w: duplicate surface name", ErrConfiguration)
	ErrUnknownSurface       = fmt.Errorf("%w: unknown surface", ErrConfiguration)
	ErrUnknownVolume        = fmt.Errorf("%w: unknown volume", ErrConfiguration)
	ErrUnknownParticle      = fmt.Errorf("%w: unknown particle", ErrConfiguration)
	ErrNoCandidateParticles = fmt.Errorf("%w: no candidate primary particles", ErrConfiguration)
	ErrInvalidMode          = fmt.Errorf("%w: operation not allowed in current mode", ErrConfiguration)
)

// ErrLookup reports a forward particle missing from the particle table.
var ErrLookup = errors.New("adjoint: particle lookup failed")

// ErrIndexOutOfRange reports a result access outside [0, Count()).
var ErrIndexOutOfRange = errors.New("adjoint: index out of range")
