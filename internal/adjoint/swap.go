package adjoint

import "github.com/lukaszgryglicki/adjointmc/internal/action"

// perTrackKinds are swapped on every switch of the tracking mode.
var perTrackKinds = [...]action.Kind{action.KindEvent, action.KindStepping, action.KindTracking}

// ActionSwapRegistry keeps, per slot, the captured forward action and the
// adjoint action to install in its place. Forward actions are borrowed:
// the registry never releases them.
type ActionSwapRegistry struct {
	forward  [action.NumKinds]action.Ref
	adjoint  [action.NumKinds]action.Ref
	captured bool
}

func NewActionSwapRegistry() *ActionSwapRegistry {
	r := &ActionSwapRegistry{}
	for k := action.Kind(0); k < action.NumKinds; k++ {
		r.forward[k] = action.None(k)
		r.adjoint[k] = action.None(k)
	}
	return r
}

// slotExists reports whether slot k lives on a thread with the given role.
func slotExists(role action.Role, k action.Kind) bool {
	return role != action.Master || !k.PerWorker()
}

// CaptureForward records the engine's installed actions. Only the first call
// has an effect.
func (r *ActionSwapRegistry) CaptureForward(e action.Engine) {
	if r.captured {
		return
	}
	role := e.Role()
	for k := action.Kind(0); k < action.NumKinds; k++ {
		if slotExists(role, k) {
			r.forward[k] = e.UserAction(k)
		}
	}
	r.captured = true
}

func (r *ActionSwapRegistry) Captured() bool { return r.captured }

// SetAdjoint sets the adjoint action of ref's slot.
func (r *ActionSwapRegistry) SetAdjoint(ref action.Ref) {
	if ref.Kind() < action.NumKinds {
		r.adjoint[ref.Kind()] = ref
	}
}

func (r *ActionSwapRegistry) Forward(k action.Kind) action.Ref { return r.forward[k] }
func (r *ActionSwapRegistry) Adjoint(k action.Kind) action.Ref { return r.adjoint[k] }

func (r *ActionSwapRegistry) install(e action.Engine, refs *[action.NumKinds]action.Ref, kinds []action.Kind) {
	role := e.Role()
	for _, k := range kinds {
		if slotExists(role, k) {
			e.SetUserAction(refs[k])
		}
	}
}

func allKinds() []action.Kind {
	ks := make([]action.Kind, 0, action.NumKinds)
	for k := action.Kind(0); k < action.NumKinds; k++ {
		ks = append(ks, k)
	}
	return ks
}

// InstallAdjoint installs every adjoint action the thread role allows: the
// run slot everywhere, the other slots only off the master.
func (r *ActionSwapRegistry) InstallAdjoint(e action.Engine) {
	r.install(e, &r.adjoint, allKinds())
}

// InstallPerTrack installs the adjoint event, stepping and tracking actions.
func (r *ActionSwapRegistry) InstallPerTrack(e action.Engine) {
	r.install(e, &r.adjoint, perTrackKinds[:])
}

// RestorePerTrack puts back the forward event, stepping and tracking actions.
func (r *ActionSwapRegistry) RestorePerTrack(e action.Engine) {
	r.install(e, &r.forward, perTrackKinds[:])
}

// RestoreForward reinstalls every captured forward action.
func (r *ActionSwapRegistry) RestoreForward(e action.Engine) {
	if !r.captured {
		return
	}
	r.install(e, &r.forward, allKinds())
}
