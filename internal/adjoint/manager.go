// Package adjoint turns a forward transport setup into a reverse (adjoint)
// one. A Manager swaps the engine's user actions for adjoint variants for
// the duration of a run, generates adjoint primaries on the adjoint source
// and records every adjoint track that escapes through the external source.
//
// One Manager belongs to one engine thread. In a multi-threaded run the
// master's Manager arms every worker's Manager through WorkerBroadcaster
// before the batch starts.
package adjoint

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
)

// Mode is the simulation mode of a Manager.
type Mode uint8

const (
	Forward         Mode = iota
	AdjointArmed         // adjoint actions installed, between tracks
	AdjointTracking      // adjoint tracks are being transported
)

func (m Mode) String() string {
	switch m {
	case Forward:
		return "forward"
	case AdjointArmed:
		return "adjoint-armed"
	case AdjointTracking:
		return "adjoint-tracking"
	}
	return "unknown"
}

// WorkerBroadcaster is implemented by master engines that can run a command
// against every worker thread's Manager before the next batch.
type WorkerBroadcaster interface {
	BroadcastToWorkers(cmd func(*Manager) error)
}

type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// Manager coordinates an adjoint simulation on one engine thread.
type Manager struct {
	engine action.Engine
	role   action.Role
	table  particles.Table
	log    *zap.Logger

	surfaces *SurfaceRegistry
	swaps    *ActionSwapRegistry
	source   *PrimarySourceGenerator
	tracker  *TrackProvenanceTracker

	stepping *adjointStepping
	tracking *adjointTracking
	stacking *adjointStacking
	primary  *adjointPrimary
	userRun  action.RunAction

	mode              Mode
	welcomed          bool
	closed            bool
	nbEvtOfLastRun    int
	adjointSourceArea geometry.Real
	primaryWeight     geometry.Real
}

// NewManager creates the Manager of one engine thread. The thread role is
// read once here.
func NewManager(engine action.Engine, geo geometry.Geometry, table particles.Table, opts ...Option) (*Manager, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", ErrConfiguration)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: nil particle table", ErrConfiguration)
	}
	m := &Manager{
		engine:   engine,
		role:     engine.Role(),
		table:    table,
		log:      zap.NewNop(),
		surfaces: NewSurfaceRegistry(geo),
		swaps:    NewActionSwapRegistry(),
		source:   NewPrimarySourceGenerator(table),
		tracker:  NewTrackProvenanceTracker(table),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With(zap.Stringer("role", m.role), zap.Int("thread", engine.ThreadID()))

	m.stepping = &adjointStepping{m: m, extSourceEmax: math.Inf(1)}
	m.tracking = &adjointTracking{m: m}
	m.stacking = &adjointStacking{m: m}
	m.primary = &adjointPrimary{m: m}

	m.swaps.SetAdjoint(action.OfRun(m))
	m.swaps.SetAdjoint(action.OfPrimary(m.primary))
	m.swaps.SetAdjoint(action.None(action.KindEvent))
	m.swaps.SetAdjoint(action.OfStepping(m.stepping))
	m.swaps.SetAdjoint(action.OfTracking(m.tracking))
	m.swaps.SetAdjoint(action.OfStacking(m.stacking))
	return m, nil
}

func (m *Manager) Mode() Mode                  { return m.mode }
func (m *Manager) Role() action.Role           { return m.role }
func (m *Manager) IsAdjointSimMode() bool      { return m.mode != Forward }
func (m *Manager) IsAdjointTrackingMode() bool { return m.mode == AdjointTracking }

func (m *Manager) Surfaces() *SurfaceRegistry       { return m.surfaces }
func (m *Manager) Source() *PrimarySourceGenerator  { return m.source }
func (m *Manager) Tracker() *TrackProvenanceTracker { return m.tracker }

// RunAdjointSimulation runs nbEvt events per considered primary type in
// adjoint mode and returns in Forward mode, also when the engine fails.
// On a worker thread it only arms the Manager; the master starts the batch.
func (m *Manager) RunAdjointSimulation(ctx context.Context, nbEvt int) error {
	role := m.role.String()
	if m.closed {
		return fmt.Errorf("%w: manager is closed", ErrInvalidMode)
	}
	if m.mode != Forward {
		return fmt.Errorf("%w: adjoint run requested in %s mode", ErrInvalidMode, m.mode)
	}
	if nbEvt < 0 {
		return fmt.Errorf("%w: negative event count %d", ErrConfiguration, nbEvt)
	}
	if !m.welcomed {
		m.log.Info("Reverse/adjoint Monte Carlo mode")
		m.welcomed = true
	}
	if err := m.switchToAdjoint(); err != nil {
		adjointRunsTotal.WithLabelValues(role, "error").Inc()
		return err
	}
	m.nbEvtOfLastRun = nbEvt
	if m.role == action.Worker {
		adjointRunsTotal.WithLabelValues(role, "armed").Inc()
		return nil
	}
	defer m.backToForward()

	if m.role == action.Master {
		if b, ok := m.engine.(WorkerBroadcaster); ok {
			b.BroadcastToWorkers(func(w *Manager) error {
				return w.RunAdjointSimulation(ctx, nbEvt)
			})
		}
	}

	total := nbEvt * m.source.NbOfAdjointPrimaryTypes()
	m.log.Debug("beam on",
		zap.Int("events_per_type", nbEvt),
		zap.Int("events", total))
	if err := m.engine.BeamOn(ctx, total); err != nil {
		adjointRunsTotal.WithLabelValues(role, "error").Inc()
		return fmt.Errorf("adjoint run of %d events: %w", total, err)
	}
	adjointRunsTotal.WithLabelValues(role, "ok").Inc()
	return nil
}

func (m *Manager) switchToAdjoint() error {
	if err := m.source.Validate(); err != nil {
		return err
	}
	m.swaps.CaptureForward(m.engine)
	m.swaps.InstallAdjoint(m.engine)
	m.stacking.reset()
	m.stepping.resetEvent()
	m.tracker.ResetSequence()
	m.mode = AdjointArmed
	return nil
}

func (m *Manager) backToForward() {
	if m.mode == Forward {
		return
	}
	m.swaps.RestoreForward(m.engine)
	m.stacking.reset()
	m.mode = Forward
}

// SetAdjointTrackingMode switches per-track adjoint transport on and off.
// Turning it off records the adjoint tracks that reached the external source
// during the event and tells the stacking stage to keep the forward tracks
// of the event, or to kill them when none did.
func (m *Manager) SetAdjointTrackingMode(on bool) {
	if on {
		if m.mode != AdjointArmed {
			return
		}
		m.swaps.InstallPerTrack(m.engine)
		m.stacking.adjointMode = true
		m.stacking.kill = false
		m.mode = AdjointTracking
		return
	}
	if m.mode != AdjointTracking {
		return
	}
	m.swaps.RestorePerTrack(m.engine)
	m.stacking.adjointMode = false
	m.mode = AdjointArmed

	reached := m.stepping.takeReached()
	if len(reached) == 0 {
		m.stacking.kill = true
		adjointTracksKilledTotal.Inc()
		return
	}
	m.stacking.kill = false
	for _, st := range reached {
		m.registerAtEndOfAdjointTrack(st)
	}
}

func (m *Manager) registerAtEndOfAdjointTrack(st endState) {
	rec, err := m.tracker.RegisterEndOfTrack(st.pos, st.dir, st.ekin, st.weight, st.def, m.source.ConsideredForward())
	adjointTracksRecordedTotal.Inc()
	if err != nil {
		adjointLookupFailuresTotal.Inc()
		m.log.Warn("adjoint track recorded without forward particle",
			zap.Int("id", rec.ID),
			zap.Error(err))
		return
	}
	if rec.FwdIndex < 0 {
		m.log.Warn("forward particle is not a primary candidate",
			zap.Int("id", rec.ID),
			zap.String("particle", rec.FwdName))
	}
}

// BeginOfRun makes the Manager the run action while in adjoint mode.
func (m *Manager) BeginOfRun(r *action.Run) {
	if m.mode == Forward {
		if fwd := m.swaps.Forward(action.KindRun).Run(); fwd != nil && fwd != action.RunAction(m) {
			fwd.BeginOfRun(r)
		}
		return
	}
	if m.userRun != nil {
		m.userRun.BeginOfRun(r)
	}
}

// EndOfRun dispatches to the active run action and returns to Forward mode.
func (m *Manager) EndOfRun(r *action.Run) {
	if m.mode == Forward {
		if fwd := m.swaps.Forward(action.KindRun).Run(); fwd != nil && fwd != action.RunAction(m) {
			fwd.EndOfRun(r)
		}
	} else if m.userRun != nil {
		m.userRun.EndOfRun(r)
	}
	m.backToForward()
}

// Close restores the forward actions and detaches the adjoint ones.
func (m *Manager) Close() error {
	if m.closed {
		return nil
	}
	m.backToForward()
	for k := action.Kind(0); k < action.NumKinds; k++ {
		m.swaps.SetAdjoint(action.None(k))
	}
	m.userRun = nil
	m.closed = true
	return nil
}

func (m *Manager) configurable() error {
	if m.closed {
		return fmt.Errorf("%w: manager is closed", ErrInvalidMode)
	}
	if m.mode != Forward {
		return fmt.Errorf("%w: configuration change in %s mode", ErrInvalidMode, m.mode)
	}
	return nil
}

// External source.

func (m *Manager) DefineSphericalExtSource(radius geometry.Real, center geometry.Point3) error {
	if err := m.configurable(); err != nil {
		return err
	}
	_, err := m.surfaces.RegisterSphere(ExternalSource, radius, center)
	return err
}

func (m *Manager) DefineSphericalExtSourceWithCentreAtTheCentreOfAVolume(radius geometry.Real, volume string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	_, _, err := m.surfaces.RegisterSphereCenteredOnVolume(ExternalSource, radius, volume)
	return err
}

func (m *Manager) DefineExtSourceOnTheExtSurfaceOfAVolume(volume string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	_, err := m.surfaces.RegisterVolumeBoundary(ExternalSource, volume)
	return err
}

// SetExtSourceEmax kills adjoint tracks whose energy per nucleon reaches e.
func (m *Manager) SetExtSourceEmax(e geometry.Real) error {
	if err := m.configurable(); err != nil {
		return err
	}
	if !(e > 0) {
		return fmt.Errorf("%w: external source emax must be > 0", ErrConfiguration)
	}
	m.stepping.extSourceEmax = e
	return nil
}

// Adjoint source.

func (m *Manager) DefineSphericalAdjointSource(radius geometry.Real, center geometry.Point3) error {
	if err := m.configurable(); err != nil {
		return err
	}
	area, err := m.surfaces.RegisterSphere(AdjointSource, radius, center)
	if err != nil {
		return err
	}
	return m.useAdjointSource(area)
}

func (m *Manager) DefineSphericalAdjointSourceWithCentreAtTheCentreOfAVolume(radius geometry.Real, volume string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	_, area, err := m.surfaces.RegisterSphereCenteredOnVolume(AdjointSource, radius, volume)
	if err != nil {
		return err
	}
	return m.useAdjointSource(area)
}

func (m *Manager) DefineAdjointSourceOnTheExtSurfaceOfAVolume(volume string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	area, err := m.surfaces.RegisterVolumeBoundary(AdjointSource, volume)
	if err != nil {
		return err
	}
	return m.useAdjointSource(area)
}

func (m *Manager) useAdjointSource(area geometry.Real) error {
	s, err := m.surfaces.Surface(AdjointSource)
	if err != nil {
		return err
	}
	m.source.SetSource(s, nil)
	m.adjointSourceArea = area
	return nil
}

func (m *Manager) AdjointSourceArea() geometry.Real { return m.adjointSourceArea }

func (m *Manager) SetAdjointSourceEmin(e geometry.Real) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.source.SetEmin(e)
	return nil
}

func (m *Manager) SetAdjointSourceEmax(e geometry.Real) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.source.SetEmax(e)
	return nil
}

// Primaries.

func (m *Manager) ConsiderParticleAsPrimary(name string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	return m.source.ConsiderAsPrimary(name)
}

func (m *Manager) NeglectParticleAsPrimary(name string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.source.NeglectAsPrimary(name)
	return nil
}

// SetPrimaryIon sets the ion used by ConsiderParticleAsPrimary("ion").
func (m *Manager) SetPrimaryIon(adjName, fwdName string) error {
	if err := m.configurable(); err != nil {
		return err
	}
	return m.source.SetPrimaryIon(adjName, fwdName)
}

func (m *Manager) PrimaryIonName() string {
	if m.source.ionFwd == nil {
		return ""
	}
	return m.source.ionFwd.Name
}

func (m *Manager) SetNbAdjointPrimaryGammasPerEvent(n int) error {
	if err := m.configurable(); err != nil {
		return err
	}
	return m.source.SetPerEvent("gamma", n)
}

func (m *Manager) SetNbAdjointPrimaryElectronsPerEvent(n int) error {
	if err := m.configurable(); err != nil {
		return err
	}
	return m.source.SetPerEvent("e-", n)
}

func (m *Manager) SetNbOfPrimaryFwdGammasPerEvent(n int) error {
	if err := m.configurable(); err != nil {
		return err
	}
	return m.source.SetFwdGammasPerEvent(n)
}

func (m *Manager) SetPrimaryWeight(name string, w geometry.Real) error {
	if err := m.configurable(); err != nil {
		return err
	}
	return m.source.SetWeight(name, w)
}

func (m *Manager) SetAngularPolicy(a AngularPolicy) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.source.SetAngularPolicy(a)
	return nil
}

func (m *Manager) SetSpectrum(s Spectrum) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.source.SetSpectrum(s)
	return nil
}

func (m *Manager) ListOfPrimaryFwdParticles() []*particles.Definition {
	return m.source.ConsideredForward()
}

func (m *Manager) NbOfPrimaryFwdParticles() int { return len(m.source.ConsideredForward()) }

func (m *Manager) NbOfAdjointPrimaryTypes() int { return m.source.NbOfAdjointPrimaryTypes() }

func (m *Manager) LastGeneratedFwdPrimary() *particles.Definition {
	return m.source.LastGeneratedFwdPrimary()
}

// AdjointPrimaryWeight is the weight of the last generated adjoint primary.
func (m *Manager) AdjointPrimaryWeight() geometry.Real { return m.primaryWeight }

func (m *Manager) NbEvtOfLastRun() int { return m.nbEvtOfLastRun }

// User adjoint actions. They take effect on the next adjoint run.

func (m *Manager) SetAdjointRunAction(a action.RunAction) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.userRun = a
	return nil
}

func (m *Manager) SetAdjointEventAction(a action.EventAction) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.swaps.SetAdjoint(action.OfEvent(a))
	return nil
}

func (m *Manager) SetAdjointSteppingAction(a action.SteppingAction) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.stepping.user = a
	return nil
}

func (m *Manager) SetAdjointStackingAction(a action.StackingAction) error {
	if err := m.configurable(); err != nil {
		return err
	}
	m.stacking.user = a
	return nil
}

func (m *Manager) ResetDidOneAdjPartReachExtSourceDuringEvent() { m.stepping.resetEvent() }

// Results of the last adjoint run on this thread.

func (m *Manager) NbOfAdjointTracksReachingExtSource() int { return m.tracker.Count() }

func (m *Manager) EndOfAdjointTrack(i int) (TrackRecord, error) { return m.tracker.Record(i) }

func (m *Manager) Records() []TrackRecord { return m.tracker.Records() }

func (m *Manager) ClearEndOfAdjointTrackInfoVectors() { m.tracker.Clear() }

func (m *Manager) PositionAtEndOfLastAdjointTrack(i int) (geometry.Point3, error) {
	return m.tracker.Position(i)
}

func (m *Manager) DirectionAtEndOfLastAdjointTrack(i int) (geometry.Vector3, error) {
	return m.tracker.Direction(i)
}

func (m *Manager) EkinAtEndOfLastAdjointTrack(i int) (geometry.Real, error) {
	return m.tracker.Ekin(i)
}

func (m *Manager) EkinNucAtEndOfLastAdjointTrack(i int) (geometry.Real, error) {
	return m.tracker.EkinPerNucleon(i)
}

func (m *Manager) WeightAtEndOfLastAdjointTrack(i int) (geometry.Real, error) {
	return m.tracker.Weight(i)
}

func (m *Manager) CosthAtEndOfLastAdjointTrack(i int) (geometry.Real, error) {
	return m.tracker.CosTheta(i)
}

func (m *Manager) FwdParticleNameAtEndOfLastAdjointTrack(i int) (string, error) {
	return m.tracker.FwdName(i)
}

func (m *Manager) FwdParticlePDGEncodingAtEndOfLastAdjointTrack(i int) (int, error) {
	return m.tracker.FwdPDG(i)
}

func (m *Manager) FwdParticleIndexAtEndOfLastAdjointTrack(i int) (int, error) {
	return m.tracker.FwdIndex(i)
}
