package transport

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
)

// stack holds the urgent (LIFO) and waiting tracks of one event.
type stack struct {
	urgent  []*action.Track
	waiting []*action.Track
}

func (s *stack) pop() *action.Track {
	n := len(s.urgent) - 1
	tr := s.urgent[n]
	s.urgent = s.urgent[:n]
	return tr
}

// runEvents processes n events numbered from first, between the thread's
// BeginOfRun and EndOfRun. EndOfRun runs on every exit path.
func (t *Thread) runEvents(ctx context.Context, runID, first, n int, p *progress) error {
	run := &action.Run{ID: runID, Events: n, Thread: t.id}
	if ra := t.UserAction(action.KindRun).Run(); ra != nil {
		ra.BeginOfRun(run)
		defer ra.EndOfRun(run)
	}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.processEvent(first + i); err != nil {
			return fmt.Errorf("thread %d event %d: %w", t.id, first+i, err)
		}
		eventsTotal.WithLabelValues(t.role.String()).Inc()
		p.tick(t.log)
	}
	return nil
}

func (t *Thread) stacking() action.StackingAction {
	return t.UserAction(action.KindStacking).Stacking()
}

func (t *Thread) classify(s *stack, tr *action.Track) {
	cls := action.Urgent
	if st := t.stacking(); st != nil {
		cls = st.ClassifyNewTrack(tr)
	}
	switch cls {
	case action.Urgent:
		s.urgent = append(s.urgent, tr)
	case action.Waiting:
		s.waiting = append(s.waiting, tr)
	default:
		tr.Status = action.Killed
		tracksTotal.WithLabelValues(tr.Status.String()).Inc()
	}
}

func (t *Thread) processEvent(id int) error {
	pg := t.UserAction(action.KindPrimary).Primary()
	if pg == nil {
		return ErrNoPrimaryGenerator
	}
	ev := &action.Event{ID: id, RNG: t.rng}
	if err := pg.GeneratePrimaries(ev); err != nil {
		return fmt.Errorf("generate primaries: %w", err)
	}

	if st := t.stacking(); st != nil {
		st.PrepareNewEvent()
	}
	ea := t.UserAction(action.KindEvent).Event()
	if ea != nil {
		ea.BeginOfEvent(ev)
	}

	s := &stack{}
	nextID := 1
	for _, p := range ev.Primaries() {
		tr := &action.Track{
			ID:        nextID,
			Def:       p.Def,
			Position:  p.Position,
			Direction: p.Direction.Norm(),
			Ekin:      p.Ekin,
			Weight:    p.Weight,
		}
		nextID++
		t.classify(s, tr)
	}

	for {
		for len(s.urgent) > 0 {
			t.transport(ev.ID, s.pop())
		}
		if st := t.stacking(); st != nil {
			st.NewStage()
		}
		if len(s.waiting) == 0 {
			break
		}
		waiting := s.waiting
		s.waiting = nil
		for _, tr := range waiting {
			t.classify(s, tr)
		}
		if len(s.urgent) == 0 {
			t.log.Debug("waiting tracks never promoted",
				zap.Int("event", ev.ID),
				zap.Int("tracks", len(s.waiting)))
			break
		}
	}

	if ea != nil {
		ea.EndOfEvent(ev)
	}
	return nil
}

// transport steps tr until it is no longer alive.
func (t *Thread) transport(eventID int, tr *action.Track) {
	ta := t.UserAction(action.KindTracking).Tracking()
	if ta != nil {
		ta.PreTrack(tr)
	}
	for tr.Status == action.Alive {
		if tr.StepCount >= t.physics.MaxSteps {
			tr.Status = action.Killed
			t.trackLog.log(t.id, eventID, StepLimit, tr)
			break
		}
		step := t.physics.step(t.world, tr, t.rng)
		if sa := t.UserAction(action.KindStepping).Stepping(); sa != nil {
			sa.UserStep(step)
		}
		t.trackLog.log(t.id, eventID, categoryOf(tr), tr)
	}
	if ta != nil {
		ta.PostTrack(tr)
	}
	tracksTotal.WithLabelValues(tr.Status.String()).Inc()
	stepsPerTrack.Observe(float64(tr.StepCount))
}
