package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

func TestSaveAndLoadRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	recs := []Record{
		{Thread: 0, TrackRecord: adjoint.TrackRecord{
			ID: 1, Position: geometry.Point3{X: 1, Y: 2, Z: 3}, Direction: geometry.Vector3{Z: 1},
			Ekin: 0.5, EkinPerNucleon: 0.5, Weight: 1.25, CosTheta: 1, FwdName: "gamma", FwdPDG: 22, FwdIndex: 1,
		}},
		{Thread: 3, TrackRecord: adjoint.TrackRecord{
			ID: 1, Position: geometry.Point3{X: -4}, Direction: geometry.Vector3{X: -1},
			Ekin: 8, EkinPerNucleon: 2, Weight: 0.1, FwdName: "alpha", FwdPDG: 1000020040, FwdIndex: -1,
		}},
	}
	started := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	id, err := s.SaveRun(ctx, RunInfo{
		StartedAt: started, Duration: 3 * time.Second, EventsPerType: 10,
		Primaries: []string{"e-", "gamma"}, Workers: 4, Seed: 42,
	}, recs)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.LoadRecords(ctx, id)
	require.NoError(t, err)
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.True(t, started.Equal(runs[0].StartedAt))
	assert.Equal(t, 3*time.Second, runs[0].Duration)
	assert.Equal(t, []string{"e-", "gamma"}, runs[0].Primaries)
	assert.Equal(t, 2, runs[0].Records)
	assert.Equal(t, int64(42), runs[0].Seed)

	_, err = s.LoadRecords(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.SaveRun(context.Background(), RunInfo{ID: "fixed", StartedAt: time.Now()}, nil)
	require.NoError(t, err)
	// duplicate ids are rejected and leave nothing behind
	_, err = s.SaveRun(context.Background(), RunInfo{ID: "fixed", StartedAt: time.Now()}, nil)
	assert.Error(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	runs, err := s.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fixed", runs[0].ID)
	recs, err := s.LoadRecords(context.Background(), "fixed")
	require.NoError(t, err)
	assert.Empty(t, recs)
}
