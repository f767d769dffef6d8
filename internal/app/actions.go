package app

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
	"github.com/lukaszgryglicki/adjointmc/internal/config"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
	"github.com/lukaszgryglicki/adjointmc/internal/transport"
)

// forwardCounter counts forward tracks per particle. It is the forward
// tracking action, so it only sees forward tracks during adjoint runs.
type forwardCounter struct {
	mu     sync.Mutex
	tracks map[string]int
}

func (c *forwardCounter) PreTrack(tr *action.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks[tr.Def.Name]++
}
func (c *forwardCounter) PostTrack(*action.Track) {}

func (c *forwardCounter) snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.tracks))
	for k, v := range c.tracks {
		out[k] = v
	}
	return out
}

// adjointStepCounter is the user adjoint stepping action.
type adjointStepCounter struct {
	steps atomic.Int64
}

func (s *adjointStepCounter) UserStep(*action.Step) { s.steps.Add(1) }

// runReporter is the user adjoint run action of the master thread.
type runReporter struct {
	log *zap.Logger
	m   *adjoint.Manager
}

func (r *runReporter) BeginOfRun(run *action.Run) {
	r.log.Info("adjoint run begins", zap.Int("run", run.ID), zap.Int("events", run.Events))
}

func (r *runReporter) EndOfRun(run *action.Run) {
	r.log.Info("adjoint run ends",
		zap.Int("run", run.ID),
		zap.Int("events_per_type", r.m.NbEvtOfLastRun()),
		zap.Float64("adjoint_source_area", r.m.AdjointSourceArea()))
}

// initializer builds one adjoint manager per thread from the adjoint section.
type initializer struct {
	cfg     config.AdjointConfig
	world   *geometry.World
	table   particles.Table
	log     *zap.Logger
	forward *forwardCounter
	steps   *adjointStepCounter
	master  *adjoint.Manager
}

var _ transport.ActionInitialization = (*initializer)(nil)

func (in *initializer) BuildForMaster(th *transport.Thread) error {
	m, err := in.manager(th)
	if err != nil {
		return err
	}
	in.master = m
	return m.SetAdjointRunAction(&runReporter{log: in.log, m: m})
}

func (in *initializer) Build(th *transport.Thread) error {
	th.SetUserAction(action.OfTracking(in.forward))
	m, err := in.manager(th)
	if err != nil {
		return err
	}
	if err := m.SetAdjointSteppingAction(in.steps); err != nil {
		return err
	}
	if th.Role() == action.Sequential {
		in.master = m
		return m.SetAdjointRunAction(&runReporter{log: in.log, m: m})
	}
	return nil
}

func (in *initializer) manager(th *transport.Thread) (*adjoint.Manager, error) {
	m, err := adjoint.NewManager(th.Engine(), in.world, in.table, adjoint.WithLogger(th.Logger().Named("adjoint")))
	if err != nil {
		return nil, err
	}
	if err := Configure(m, in.cfg); err != nil {
		return nil, fmt.Errorf("thread %d: %w", th.ThreadID(), err)
	}
	th.BindAdjoint(m)
	return m, nil
}

// Configure applies the adjoint section to m.
func Configure(m *adjoint.Manager, c config.AdjointConfig) error {
	if c.Ion.Adjoint != "" {
		if err := m.SetPrimaryIon(c.Ion.Adjoint, c.Ion.Forward); err != nil {
			return err
		}
	}
	for _, p := range c.Primaries {
		if err := m.ConsiderParticleAsPrimary(p); err != nil {
			return err
		}
	}
	if c.Ion.Adjoint != "" {
		if err := m.ConsiderParticleAsPrimary(adjoint.IonKey); err != nil {
			return err
		}
	}
	for _, w := range c.Weights {
		if err := m.SetPrimaryWeight(w.Particle, w.Weight); err != nil {
			return err
		}
	}
	if err := m.SetNbAdjointPrimaryGammasPerEvent(c.GammasPerEvent); err != nil {
		return err
	}
	if err := m.SetNbAdjointPrimaryElectronsPerEvent(c.ElectronsPerEvent); err != nil {
		return err
	}
	if err := m.SetNbOfPrimaryFwdGammasPerEvent(c.FwdGammasPerEvent); err != nil {
		return err
	}
	if err := m.SetAdjointSourceEmin(c.Emin); err != nil {
		return err
	}
	if err := m.SetAdjointSourceEmax(c.Emax); err != nil {
		return err
	}
	spectrum, err := adjoint.ParseSpectrum(c.Spectrum)
	if err != nil {
		return err
	}
	if err := m.SetSpectrum(spectrum); err != nil {
		return err
	}
	angular, err := adjoint.ParseAngularPolicy(c.Angular)
	if err != nil {
		return err
	}
	if err := m.SetAngularPolicy(angular); err != nil {
		return err
	}
	if c.ExtEmax > 0 {
		if err := m.SetExtSourceEmax(c.ExtEmax); err != nil {
			return err
		}
	}

	s := c.AdjointSource
	switch s.Kind {
	case config.SourceSphere:
		err = m.DefineSphericalAdjointSource(s.Radius, point(s.Center))
	case config.SourceSphereOnVolume:
		err = m.DefineSphericalAdjointSourceWithCentreAtTheCentreOfAVolume(s.Radius, s.Volume)
	case config.SourceVolume:
		err = m.DefineAdjointSourceOnTheExtSurfaceOfAVolume(s.Volume)
	default:
		err = fmt.Errorf("%w: adjoint source kind %q", adjoint.ErrConfiguration, s.Kind)
	}
	if err != nil {
		return err
	}

	s = c.ExternalSource
	switch s.Kind {
	case config.SourceSphere:
		err = m.DefineSphericalExtSource(s.Radius, point(s.Center))
	case config.SourceSphereOnVolume:
		err = m.DefineSphericalExtSourceWithCentreAtTheCentreOfAVolume(s.Radius, s.Volume)
	case config.SourceVolume:
		err = m.DefineExtSourceOnTheExtSurfaceOfAVolume(s.Volume)
	case config.SourceNone, "":
		// world boundary
	default:
		err = fmt.Errorf("%w: external source kind %q", adjoint.ErrConfiguration, s.Kind)
	}
	return err
}
