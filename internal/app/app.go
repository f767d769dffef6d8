// Package app runs a configured adjoint simulation end to end.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukaszgryglicki/adjointmc/internal/config"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
	"github.com/lukaszgryglicki/adjointmc/internal/store"
	"github.com/lukaszgryglicki/adjointmc/internal/tally"
	"github.com/lukaszgryglicki/adjointmc/internal/transport"
)

// Summary is the outcome of Run.
type Summary struct {
	RunID         string // set when the run was saved
	StartedAt     time.Time
	Duration      time.Duration
	EventsPerType int
	Primaries     []string
	Workers       int
	Records       []store.Record
	// WeightByParticle sums record weights per forward particle name.
	WeightByParticle map[string]float64
	ForwardTracks    map[string]int
	AdjointSteps     int64
	TrackStats       map[string]int
	Spectra          *tally.Tally
}

// Run builds the world and the run manager from cfg, runs
// cfg.Run.Events adjoint events per primary type and collects the records of
// every thread.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	world, err := BuildWorld(cfg.Geometry)
	if err != nil {
		return nil, fmt.Errorf("build world: %w", err)
	}
	rm, err := transport.NewRunManager(world, transport.Config{
		Workers:  cfg.Run.Workers,
		Seed:     cfg.Run.Seed,
		Physics:  Physics(cfg.Transport),
		TrackLog: cfg.Run.TrackLog,
	}, log.Named("transport"))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rm.Close() }()

	in := &initializer{
		cfg:     cfg.Adjoint,
		world:   world,
		table:   particles.NewStandardTable(),
		log:     log.Named("app"),
		forward: &forwardCounter{tracks: map[string]int{}},
		steps:   &adjointStepCounter{},
	}
	if err := rm.Initialize(in); err != nil {
		return nil, err
	}

	sum := &Summary{
		StartedAt:     time.Now(),
		EventsPerType: cfg.Run.Events,
		Workers:       cfg.Run.Workers,
	}
	for _, d := range in.master.ListOfPrimaryFwdParticles() {
		sum.Primaries = append(sum.Primaries, d.Name)
	}
	log.Info("starting adjoint run",
		zap.Int("events_per_type", cfg.Run.Events),
		zap.Strings("primaries", sum.Primaries),
		zap.Int("workers", cfg.Run.Workers))

	if err := in.master.RunAdjointSimulation(ctx, cfg.Run.Events); err != nil {
		return nil, err
	}
	sum.Duration = time.Since(sum.StartedAt)

	if err := sum.collect(ctx, rm.Threads(), cfg.Tally); err != nil {
		return nil, err
	}
	sum.ForwardTracks = in.forward.snapshot()
	sum.AdjointSteps = in.steps.steps.Load()
	if tl := rm.TrackLog(); tl != nil {
		sum.TrackStats = tl.Stats()
	}

	for _, n := range sum.Spectra.Particles() {
		sp, _ := sum.Spectra.Spectrum(n)
		total, rel := sp.Total()
		log.Info("reached external source",
			zap.String("particle", n),
			zap.Float64("weight", sum.WeightByParticle[n]),
			zap.Float64("binned_weight", total),
			zap.Float64("rel_error", rel))
	}
	if cfg.Tally.RawOut != "" {
		if err := sum.Spectra.SaveRaw(cfg.Tally.RawOut); err != nil {
			return sum, fmt.Errorf("save spectra: %w", err)
		}
	}
	log.Info("adjoint run done",
		zap.Int("records", len(sum.Records)),
		zap.Duration("elapsed", sum.Duration))

	if cfg.Output.Save {
		id, err := Save(ctx, cfg.Output.DB, sum, cfg.Run.Seed)
		if err != nil {
			return sum, err
		}
		sum.RunID = id
		log.Info("run saved", zap.String("run_id", id), zap.String("db", cfg.Output.DB))
	}
	return sum, nil
}

// collect gathers the records of every thread and bins them, one goroutine
// per thread.
func (sum *Summary) collect(ctx context.Context, threads []*transport.Thread, tc config.TallyConfig) error {
	t, err := tally.New(tc.Emin, tc.Emax, tc.Bins)
	if err != nil {
		return err
	}
	sum.Spectra = t
	perThread := make([][]store.Record, len(threads))
	g, _ := errgroup.WithContext(ctx)
	for i, th := range threads {
		i, th := i, th
		g.Go(func() error {
			m := th.Adjoint()
			if m == nil {
				return nil
			}
			for _, r := range m.Records() {
				perThread[i] = append(perThread[i], store.Record{Thread: th.ThreadID(), TrackRecord: r})
				t.AddRecord(r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	sum.WeightByParticle = map[string]float64{}
	for _, recs := range perThread {
		for _, r := range recs {
			sum.Records = append(sum.Records, r)
			sum.WeightByParticle[r.FwdName] += r.Weight
		}
	}
	return nil
}

// Save stores sum in the SQLite database at path.
func Save(ctx context.Context, path string, sum *Summary, seed int64) (string, error) {
	st, err := store.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()
	return st.SaveRun(ctx, store.RunInfo{
		ID:            sum.RunID,
		StartedAt:     sum.StartedAt,
		Duration:      sum.Duration,
		EventsPerType: sum.EventsPerType,
		Primaries:     sum.Primaries,
		Workers:       sum.Workers,
		Seed:          seed,
	}, sum.Records)
}
