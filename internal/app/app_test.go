package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
	"github.com/lukaszgryglicki/adjointmc/internal/config"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
	"github.com/lukaszgryglicki/adjointmc/internal/store"
)

func smallConfig(workers int) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Run.Events = 20
	cfg.Run.Workers = workers
	cfg.Run.Seed = 11
	cfg.Run.TrackLog = true
	cfg.Adjoint.FwdGammasPerEvent = 1
	return cfg
}

func checkRecords(t *testing.T, sum *Summary, threads map[int]bool) {
	t.Helper()
	require.NotEmpty(t, sum.Records)
	radius := smallConfig(0).Adjoint.ExternalSource.Radius
	total := map[string]float64{}
	for _, r := range sum.Records {
		assert.True(t, threads[r.Thread], "unexpected thread %d", r.Thread)
		assert.Contains(t, []string{"e-", "gamma"}, r.FwdName)
		assert.Contains(t, []int{0, 1}, r.FwdIndex)
		assert.Greater(t, r.Weight, 0.0)
		assert.GreaterOrEqual(t, r.Position.Dist(geometry.Point3{}), radius-1e-9)
		assert.InDelta(t, 1, r.Direction.Len(), 1e-9)
		assert.GreaterOrEqual(t, r.ID, 1)
		total[r.FwdName] += r.Weight
	}
	for k, v := range total {
		assert.InDelta(t, v, sum.WeightByParticle[k], 1e-9)
		sp, ok := sum.Spectra.Spectrum(k)
		require.True(t, ok, k)
		binned, _ := sp.Total()
		assert.InDelta(t, v, binned+sp.Underflow+sp.Overflow, 1e-9*v)
	}
}

func TestRunSequential(t *testing.T) {
	sum, err := Run(context.Background(), smallConfig(0), zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"e-", "gamma"}, sum.Primaries)
	assert.Equal(t, 20, sum.EventsPerType)
	assert.Empty(t, sum.RunID)
	checkRecords(t, sum, map[int]bool{-1: true})
	assert.Positive(t, sum.AdjointSteps)
	assert.LessOrEqual(t, sum.ForwardTracks["gamma"], 20, "one forward gamma per gamma event at most")
	assert.NotEmpty(t, sum.TrackStats)
}

func TestRunMultiThreadedAndSave(t *testing.T) {
	cfg := smallConfig(3)
	cfg.Output.Save = true
	cfg.Output.DB = filepath.Join(t.TempDir(), "out", "runs.db")
	cfg.Tally.RawOut = filepath.Join(t.TempDir(), "spectra.raw")

	sum, err := Run(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	checkRecords(t, sum, map[int]bool{0: true, 1: true, 2: true})
	require.NotEmpty(t, sum.RunID)

	st, err := store.Open(cfg.Output.DB)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	got, err := st.LoadRecords(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, sum.Records, got)
	runs, err := st.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Workers)
	assert.Equal(t, sum.Primaries, runs[0].Primaries)
	assert.FileExists(t, cfg.Tally.RawOut)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, smallConfig(2), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := smallConfig(0)
	cfg.Adjoint.AdjointSource.Volume = "nowhere"
	_, err := Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, adjoint.ErrUnknownVolume)

	cfg = smallConfig(0)
	cfg.Run.Events = -1
	_, err = Run(context.Background(), cfg, nil)
	assert.Error(t, err)
}

// seqEngine is the smallest Engine a Manager accepts.
type seqEngine struct{}

func (seqEngine) Role() action.Role                   { return action.Sequential }
func (seqEngine) ThreadID() int                       { return -1 }
func (seqEngine) UserAction(k action.Kind) action.Ref { return action.None(k) }
func (seqEngine) SetUserAction(action.Ref)            {}
func (seqEngine) BeamOn(context.Context, int) error   { return nil }

func TestConfigure(t *testing.T) {
	cfg := smallConfig(0)
	world, err := BuildWorld(cfg.Geometry)
	require.NoError(t, err)
	table := particles.NewStandardTable()

	t.Run("ion and weights", func(t *testing.T) {
		m, err := adjoint.NewManager(seqEngine{}, world, table)
		require.NoError(t, err)
		c := cfg.Adjoint
		c.Ion = config.IonConfig{Adjoint: "adj_alpha", Forward: "alpha"}
		c.Weights = []config.WeightConfig{{Particle: "gamma", Weight: 0}}
		c.ExternalSource = config.SourceConfig{Kind: config.SourceSphereOnVolume, Volume: "detector", Radius: 300}
		c.ExtEmax = 100
		require.NoError(t, Configure(m, c))

		var names []string
		for _, d := range m.ListOfPrimaryFwdParticles() {
			names = append(names, d.Name)
		}
		assert.Equal(t, []string{"e-", "gamma", "alpha"}, names)
		assert.Equal(t, "alpha", m.PrimaryIonName())
		// area of a 20 mm cube
		assert.InDelta(t, 2400, m.AdjointSourceArea(), 1e-9)
	})

	t.Run("unknown particle", func(t *testing.T) {
		m, err := adjoint.NewManager(seqEngine{}, world, table)
		require.NoError(t, err)
		c := cfg.Adjoint
		c.Primaries = []string{"graviton"}
		assert.ErrorIs(t, Configure(m, c), adjoint.ErrUnknownParticle)
	})

	t.Run("sphere sources", func(t *testing.T) {
		m, err := adjoint.NewManager(seqEngine{}, world, table)
		require.NoError(t, err)
		c := cfg.Adjoint
		c.AdjointSource = config.SourceConfig{Kind: config.SourceSphere, Radius: 5}
		c.ExternalSource = config.SourceConfig{Kind: config.SourceVolume, Volume: "detector"}
		require.NoError(t, Configure(m, c))
		assert.InDelta(t, geometry.SphereArea(5), m.AdjointSourceArea(), 1e-9)
	})
}

func TestBuildWorld(t *testing.T) {
	g := config.GeometryConfig{
		WorldName: "hall",
		WorldHalf: config.Vec3{X: 100, Y: 100, Z: 100},
		Volumes: []config.VolumeConfig{
			{Name: "shield", Shape: "ball", Center: config.Vec3{X: 10}, Radius: 5},
			{Name: "chip", Shape: "box", Half: config.Vec3{X: 1, Y: 1, Z: 1}},
		},
	}
	world, err := BuildWorld(g)
	require.NoError(t, err)
	assert.Equal(t, "shield", world.Locate(geometry.Point3{X: 12}))
	assert.Equal(t, "chip", world.Locate(geometry.Point3{}))
	assert.Equal(t, "hall", world.Locate(geometry.Point3{Y: 50}))

	g.Volumes = append(g.Volumes, config.VolumeConfig{Name: "chip", Shape: "box", Half: config.Vec3{X: 1, Y: 1, Z: 1}})
	_, err = BuildWorld(g)
	assert.Error(t, err)
}
