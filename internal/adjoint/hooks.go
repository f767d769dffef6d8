package adjoint

import (
	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
)

// endState is an adjoint track as it left through the external source.
type endState struct {
	pos    geometry.Point3
	dir    geometry.Vector3
	ekin   geometry.Real
	weight geometry.Real
	def    *particles.Definition
}

// adjointPrimary emits the adjoint primaries of one event.
type adjointPrimary struct {
	m *Manager
}

func (a *adjointPrimary) GeneratePrimaries(ev *action.Event) error {
	m := a.m
	p, err := m.source.GeneratePrimary(ev.RNG)
	if err != nil {
		return err
	}
	m.primaryWeight = p.Weight
	adjointPrimariesTotal.WithLabelValues(p.Forward.Name).Inc()
	adjointPrimaryWeight.Observe(p.Weight)

	n := p.PerEvent
	if n < 1 {
		n = 1
	}
	w := p.Weight / geometry.Real(n)
	for i := 0; i < n; i++ {
		ev.AddPrimary(action.Primary{
			Def:       p.Adjoint,
			Position:  p.Position,
			Direction: p.Direction,
			Ekin:      p.Energy,
			Weight:    w,
		})
	}

	// forward gamma seeds leave the adjoint source the way the adjoint gamma came in
	if nf := m.source.FwdGammasPerEvent(); nf > 0 && p.Forward.Name == "gamma" {
		gamma := p.Forward
		for i := 0; i < nf; i++ {
			ev.AddPrimary(action.Primary{
				Def:       gamma,
				Position:  p.Position,
				Direction: p.Direction.Neg(),
				Ekin:      p.Energy,
				Weight:    p.Weight / geometry.Real(nf),
			})
		}
	}
	return nil
}

// adjointStepping stops adjoint tracks at the external source and kills
// those that go above the source energy range.
type adjointStepping struct {
	m             *Manager
	user          action.SteppingAction
	extSourceEmax geometry.Real // per nucleon
	reached       []endState
}

func (s *adjointStepping) resetEvent() { s.reached = s.reached[:0] }

func (s *adjointStepping) takeReached() []endState {
	out := make([]endState, len(s.reached))
	copy(out, s.reached)
	s.reached = s.reached[:0]
	return out
}

func (s *adjointStepping) UserStep(st *action.Step) {
	tr := st.Track
	if !tr.IsAdjoint() {
		if fwd := s.m.swaps.Forward(action.KindStepping).Stepping(); fwd != nil {
			fwd.UserStep(st)
		}
		return
	}
	if s.user != nil {
		s.user.UserStep(st)
	}
	if tr.Status == action.Killed || tr.Status == action.Stopped {
		return
	}

	nbNuc := 1.0
	if tr.Def.IsNucleus() {
		nbNuc = geometry.Real(tr.Def.BaryonNumber)
	}
	if st.Post.Ekin >= s.extSourceEmax*nbNuc {
		tr.Status = action.Killed
		return
	}

	surfaces := s.m.surfaces
	if ext, err := surfaces.Surface(ExternalSource); err == nil {
		if ext.Outgoing(st.Pre.Position, st.Post.Position) {
			s.reach(st)
			return
		}
	} else if tr.Status == action.Escaped {
		// without an external source the world boundary plays its part
		s.reach(st)
		return
	}
	// back into the adjoint source after leaving it
	if tr.StepCount <= 1 {
		return
	}
	adj := s.m.source.Source()
	if adj == nil {
		var err error
		if adj, err = surfaces.Surface(AdjointSource); err != nil {
			return
		}
	}
	if adj.Incoming(st.Pre.Position, st.Post.Position) {
		tr.Status = action.Killed
	}
}

func (s *adjointStepping) reach(st *action.Step) {
	tr := st.Track
	tr.Status = action.Stopped
	s.reached = append(s.reached, endState{
		pos:    st.Post.Position,
		dir:    st.Post.Direction,
		ekin:   st.Post.Ekin,
		weight: tr.Weight,
		def:    tr.Def,
	})
}

// adjointTracking hides adjoint tracks from the forward tracking action.
type adjointTracking struct {
	m *Manager
}

func (t *adjointTracking) forward() action.TrackingAction {
	return t.m.swaps.Forward(action.KindTracking).Tracking()
}

func (t *adjointTracking) PreTrack(tr *action.Track) {
	if fwd := t.forward(); fwd != nil && !tr.IsAdjoint() {
		fwd.PreTrack(tr)
	}
}

func (t *adjointTracking) PostTrack(tr *action.Track) {
	if fwd := t.forward(); fwd != nil && !tr.IsAdjoint() {
		fwd.PostTrack(tr)
	}
}

// adjointStacking runs the adjoint tracks of an event first and parks the
// forward ones until the adjoint stage is over.
type adjointStacking struct {
	m           *Manager
	user        action.StackingAction
	adjointMode bool
	kill        bool
}

func (s *adjointStacking) reset() {
	s.adjointMode = false
	s.kill = false
}

func (s *adjointStacking) forward() action.StackingAction {
	return s.m.swaps.Forward(action.KindStacking).Stacking()
}

func (s *adjointStacking) ClassifyNewTrack(tr *action.Track) action.Classification {
	if s.adjointMode {
		if !tr.IsAdjoint() {
			return action.Waiting
		}
		if s.user != nil {
			return s.user.ClassifyNewTrack(tr)
		}
		return action.Urgent
	}
	if s.kill {
		return action.Kill
	}
	if fwd := s.forward(); fwd != nil {
		return fwd.ClassifyNewTrack(tr)
	}
	return action.Urgent
}

func (s *adjointStacking) NewStage() {
	if s.adjointMode {
		if s.user != nil {
			s.user.NewStage()
		}
		s.m.SetAdjointTrackingMode(false)
		return
	}
	if fwd := s.forward(); fwd != nil {
		fwd.NewStage()
	}
}

func (s *adjointStacking) PrepareNewEvent() {
	s.m.stepping.resetEvent()
	s.kill = false
	if s.user != nil {
		s.user.PrepareNewEvent()
	}
	if fwd := s.forward(); fwd != nil {
		fwd.PrepareNewEvent()
	}
	s.m.SetAdjointTrackingMode(true)
}
