package adjoint

import (
	"context"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
)

// fakeEngine is a single thread whose BeamOn runs a test-supplied body.
type fakeEngine struct {
	role   action.Role
	slots  [action.NumKinds]action.Ref
	sets   [action.NumKinds]int
	beamOn func(ctx context.Context, n int) error
	calls  []int
}

func newFakeEngine(role action.Role) *fakeEngine {
	e := &fakeEngine{role: role}
	for k := action.Kind(0); k < action.NumKinds; k++ {
		e.slots[k] = action.None(k)
	}
	return e
}

func (e *fakeEngine) Role() action.Role                   { return e.role }
func (e *fakeEngine) ThreadID() int                       { return 0 }
func (e *fakeEngine) UserAction(k action.Kind) action.Ref { return e.slots[k] }
func (e *fakeEngine) SetUserAction(r action.Ref) {
	e.slots[r.Kind()] = r
	e.sets[r.Kind()]++
}

func (e *fakeEngine) BeamOn(ctx context.Context, n int) error {
	e.calls = append(e.calls, n)
	if e.beamOn != nil {
		return e.beamOn(ctx, n)
	}
	return nil
}

// fakeMaster also broadcasts to worker managers.
type fakeMaster struct {
	*fakeEngine
	cmds []func(*Manager) error
}

func (m *fakeMaster) BroadcastToWorkers(cmd func(*Manager) error) { m.cmds = append(m.cmds, cmd) }

// forwardActions is one recording implementation of every hook.
type forwardActions struct {
	runs, events, steps, tracks, stages, prepares, classified int
}

func (f *forwardActions) BeginOfRun(*action.Run)                { f.runs++ }
func (f *forwardActions) EndOfRun(*action.Run)                  {}
func (f *forwardActions) GeneratePrimaries(*action.Event) error { return nil }
func (f *forwardActions) BeginOfEvent(*action.Event)            { f.events++ }
func (f *forwardActions) EndOfEvent(*action.Event)              {}
func (f *forwardActions) UserStep(*action.Step)                 { f.steps++ }
func (f *forwardActions) PreTrack(*action.Track)                { f.tracks++ }
func (f *forwardActions) PostTrack(*action.Track)               {}
func (f *forwardActions) NewStage()                             { f.stages++ }
func (f *forwardActions) PrepareNewEvent()                      { f.prepares++ }
func (f *forwardActions) ClassifyNewTrack(*action.Track) action.Classification {
	f.classified++
	return action.Urgent
}

func installForward(e *fakeEngine, f *forwardActions) [action.NumKinds]action.Ref {
	refs := [action.NumKinds]action.Ref{
		action.OfRun(f),
		action.OfPrimary(f),
		action.OfEvent(f),
		action.OfStepping(f),
		action.OfTracking(f),
		action.OfStacking(f),
	}
	for _, r := range refs {
		e.SetUserAction(r)
	}
	e.sets = [action.NumKinds]int{}
	return refs
}
