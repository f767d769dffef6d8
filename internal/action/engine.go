package action

import "context"

// Role is the part a thread plays in a run.
type Role uint8

const (
	Sequential Role = iota // single thread, owns every slot
	Master                 // drives workers, owns only the run slot
	Worker                 // processes events
)

func (r Role) String() string {
	switch r {
	case Sequential:
		return "sequential"
	case Master:
		return "master"
	case Worker:
		return "worker"
	}
	return "unknown"
}

// Engine is one thread of a transport engine as seen by the actions it runs.
type Engine interface {
	Role() Role
	ThreadID() int
	UserAction(k Kind) Ref
	SetUserAction(r Ref)
	// BeamOn processes n events and blocks until they are done. Only a
	// Sequential or Master thread may start a batch.
	BeamOn(ctx context.Context, n int) error
}
