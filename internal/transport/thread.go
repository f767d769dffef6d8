package transport

import (
	"context"
	"math/rand"

	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

// Thread is one engine thread with its own action slots and rng.
type Thread struct {
	id      int
	role    action.Role
	actions [action.NumKinds]action.Ref
	adjoint *adjoint.Manager
	owner   *RunManager // set on the sequential or master thread

	world    *geometry.World
	physics  Physics
	rng      *rand.Rand
	trackLog *TrackLogCache
	log      *zap.Logger
}

func newThread(id int, role action.Role, world *geometry.World, physics Physics, seed int64, tl *TrackLogCache, log *zap.Logger) *Thread {
	t := &Thread{
		id:       id,
		role:     role,
		world:    world,
		physics:  physics,
		rng:      rand.New(rand.NewSource(seed ^ int64(uint64(id+1)*seedMix))),
		trackLog: tl,
		log:      log.With(zap.Stringer("role", role), zap.Int("thread", id)),
	}
	for k := action.Kind(0); k < action.NumKinds; k++ {
		t.actions[k] = action.None(k)
	}
	return t
}

func (t *Thread) Role() action.Role         { return t.role }
func (t *Thread) ThreadID() int             { return t.id }
func (t *Thread) World() *geometry.World    { return t.world }
func (t *Thread) Logger() *zap.Logger       { return t.log }
func (t *Thread) Adjoint() *adjoint.Manager { return t.adjoint }

// Engine is the engine to hand to per-thread managers: the RunManager for
// its own thread, the thread itself for workers.
func (t *Thread) Engine() action.Engine {
	if t.owner != nil {
		return t.owner
	}
	return t
}

// BindAdjoint attaches the thread's adjoint manager; broadcast commands and
// Close reach it through here.
func (t *Thread) BindAdjoint(m *adjoint.Manager) { t.adjoint = m }

func (t *Thread) hasSlot(k action.Kind) bool {
	return k < action.NumKinds && (t.role != action.Master || !k.PerWorker())
}

func (t *Thread) UserAction(k action.Kind) action.Ref {
	if !t.hasSlot(k) {
		return action.None(k)
	}
	return t.actions[k]
}

// SetUserAction installs r in its slot. Slots the thread does not have are
// ignored.
func (t *Thread) SetUserAction(r action.Ref) {
	if t.hasSlot(r.Kind()) {
		t.actions[r.Kind()] = r
	}
}

// BeamOn on a bare thread fails; batches are started by the RunManager.
func (t *Thread) BeamOn(context.Context, int) error { return ErrNotMaster }
