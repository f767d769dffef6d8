// Package action holds the user-hook interfaces of a run and the data they
// see: runs, events, tracks and steps.
package action

import (
	"math/rand"

	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
)

type Run struct {
	ID     int
	Events int // events requested for this thread
	Thread int
}

// Primary is a particle queued by the primary generator.
type Primary struct {
	Def       *particles.Definition
	Position  geometry.Point3
	Direction geometry.Vector3
	Ekin      geometry.Real
	Weight    geometry.Real
}

type Event struct {
	ID  int
	RNG *rand.Rand

	primaries []Primary
}

func (e *Event) AddPrimary(p Primary) { e.primaries = append(e.primaries, p) }

func (e *Event) Primaries() []Primary { return e.primaries }

type TrackStatus uint8

const (
	Alive   TrackStatus = iota
	Stopped             // stopped by a hook, track is complete
	Escaped             // left the world
	Killed              // killed by a hook or the stack
)

func (s TrackStatus) String() string {
	switch s {
	case Alive:
		return "alive"
	case Stopped:
		return "stopped"
	case Escaped:
		return "escaped"
	case Killed:
		return "killed"
	}
	return "unknown"
}

// Track is the live state of one particle.
type Track struct {
	ID        int
	ParentID  int
	Def       *particles.Definition
	Position  geometry.Point3
	Direction geometry.Vector3
	Ekin      geometry.Real
	Weight    geometry.Real
	Status    TrackStatus
	StepCount int
	Length    geometry.Real
}

// IsAdjoint reports whether the track carries an adjoint particle.
func (t *Track) IsAdjoint() bool { return t.Def.IsAdjoint() }

// Step is a straight segment of a track. Post is filled in by the engine
// before the stepping hook runs; hooks may change Track.Status.
type Step struct {
	Track  *Track
	Pre    StepPoint
	Post   StepPoint
	Length geometry.Real
}

type StepPoint struct {
	Position  geometry.Point3
	Direction geometry.Vector3
	Ekin      geometry.Real
}

// Classification is the stacking decision for a new track.
type Classification uint8

const (
	Urgent Classification = iota
	Waiting
	Kill
)
