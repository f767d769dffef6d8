// Package store persists adjoint runs and their track records in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("store: run not found")

// RunInfo describes one completed adjoint run.
type RunInfo struct {
	ID            string
	StartedAt     time.Time
	Duration      time.Duration
	EventsPerType int
	Primaries     []string // considered forward particles, in index order
	Workers       int
	Seed          int64
	Records       int
}

// Record is a TrackRecord tagged with the thread that produced it.
type Record struct {
	Thread int
	adjoint.TrackRecord
}

type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	duration_ns     INTEGER NOT NULL,
	events_per_type INTEGER NOT NULL,
	primaries       TEXT NOT NULL,
	workers         INTEGER NOT NULL,
	seed            INTEGER NOT NULL,
	records         INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	thread    INTEGER NOT NULL,
	id        INTEGER NOT NULL,
	px REAL NOT NULL, py REAL NOT NULL, pz REAL NOT NULL,
	dx REAL NOT NULL, dy REAL NOT NULL, dz REAL NOT NULL,
	ekin      REAL NOT NULL,
	ekin_nuc  REAL NOT NULL,
	weight    REAL NOT NULL,
	cos_th    REAL NOT NULL,
	fwd_name  TEXT NOT NULL,
	fwd_pdg   INTEGER NOT NULL,
	fwd_index INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);`

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "adjointmc.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error { return s.db.Close() }

// SaveRun stores a run and its records in one transaction and returns the
// run id. An empty info.ID gets a new UUID.
func (s *Store) SaveRun(ctx context.Context, info RunInfo, recs []Record) (id string, retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	prims, err := json.Marshal(info.Primaries)
	if err != nil {
		return "", fmt.Errorf("encode primaries: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id,started_at,duration_ns,events_per_type,primaries,workers,seed,records) VALUES(?,?,?,?,?,?,?,?)`,
		info.ID, info.StartedAt.UTC().Format(time.RFC3339Nano), int64(info.Duration), info.EventsPerType,
		string(prims), info.Workers, info.Seed, len(recs)); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO records(run_id,seq,thread,id,px,py,pz,dx,dy,dz,ekin,ekin_nuc,weight,cos_th,fwd_name,fwd_pdg,fwd_index)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return "", fmt.Errorf("prepare records: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for i, r := range recs {
		if _, err := stmt.ExecContext(ctx, info.ID, i, r.Thread, r.ID,
			r.Position.X, r.Position.Y, r.Position.Z,
			r.Direction.X, r.Direction.Y, r.Direction.Z,
			r.Ekin, r.EkinPerNucleon, r.Weight, r.CosTheta,
			r.FwdName, r.FwdPDG, r.FwdIndex); err != nil {
			return "", fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return info.ID, nil
}

func scanRun(sc interface{ Scan(...any) error }) (RunInfo, error) {
	var (
		ri      RunInfo
		started string
		dur     int64
		prims   string
	)
	if err := sc.Scan(&ri.ID, &started, &dur, &ri.EventsPerType, &prims, &ri.Workers, &ri.Seed, &ri.Records); err != nil {
		return RunInfo{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return RunInfo{}, fmt.Errorf("parse started_at: %w", err)
	}
	ri.StartedAt = t
	ri.Duration = time.Duration(dur)
	if err := json.Unmarshal([]byte(prims), &ri.Primaries); err != nil {
		return RunInfo{}, fmt.Errorf("decode primaries: %w", err)
	}
	return ri, nil
}

const runColumns = `id,started_at,duration_ns,events_per_type,primaries,workers,seed,records`

// Runs lists stored runs, oldest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []RunInfo
	for rows.Next() {
		ri, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, ri)
	}
	return out, rows.Err()
}

func (s *Store) Run(ctx context.Context, id string) (RunInfo, error) {
	ri, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return ri, err
}

// LoadRecords returns the records of a run in stored order.
func (s *Store) LoadRecords(ctx context.Context, runID string) ([]Record, error) {
	if _, err := s.Run(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT thread,id,px,py,pz,dx,dy,dz,ekin,ekin_nuc,weight,cos_th,fwd_name,fwd_pdg,fwd_index
		FROM records WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Thread, &r.ID,
			&r.Position.X, &r.Position.Y, &r.Position.Z,
			&r.Direction.X, &r.Direction.Y, &r.Direction.Z,
			&r.Ekin, &r.EkinPerNucleon, &r.Weight, &r.CosTheta,
			&r.FwdName, &r.FwdPDG, &r.FwdIndex); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
