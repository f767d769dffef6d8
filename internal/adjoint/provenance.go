package adjoint

import (
	"fmt"

	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/particles"
)

// TrackRecord is the state of an adjoint track when it reached the external
// source, expressed for the forward particle it stands for.
type TrackRecord struct {
	ID             int
	Position       geometry.Point3
	Direction      geometry.Vector3 // unit
	Ekin           geometry.Real
	EkinPerNucleon geometry.Real
	Weight         geometry.Real
	CosTheta       geometry.Real // Direction.Z
	FwdName        string
	FwdPDG         int
	FwdIndex       int // -1 when the forward particle is not a candidate
}

// TrackProvenanceTracker accumulates TrackRecords in completion order.
// Record IDs count from 1 and restart after Clear and ResetSequence.
type TrackProvenanceTracker struct {
	table   particles.Table
	records []TrackRecord
	lastID  int
}

func NewTrackProvenanceTracker(table particles.Table) *TrackProvenanceTracker {
	return &TrackProvenanceTracker{table: table}
}

// RegisterEndOfTrack appends a record for an adjoint track. When the forward
// particle cannot be found in the table the record is still appended, with
// PDG 0 and index -1, and an ErrLookup is returned.
func (t *TrackProvenanceTracker) RegisterEndOfTrack(
	pos geometry.Point3,
	dir geometry.Vector3,
	ekin, weight geometry.Real,
	adj *particles.Definition,
	candidates []*particles.Definition,
) (TrackRecord, error) {
	if adj == nil {
		return TrackRecord{}, fmt.Errorf("%w: nil particle definition", ErrLookup)
	}
	d := dir.Norm()
	rec := TrackRecord{
		ID:             t.lastID + 1,
		Position:       pos,
		Direction:      d,
		Ekin:           ekin,
		EkinPerNucleon: ekin,
		Weight:         weight,
		CosTheta:       d.Z,
		FwdName:        particles.ForwardName(adj.Name),
		FwdIndex:       -1,
	}
	if adj.Type == particles.TypeAdjointNucleus && adj.BaryonNumber > 0 {
		rec.EkinPerNucleon = ekin / geometry.Real(adj.BaryonNumber)
	}
	for i, c := range candidates {
		if c != nil && c.Name == rec.FwdName {
			rec.FwdIndex = i
			break
		}
	}

	var err error
	if fwd, ok := t.table.Find(rec.FwdName); ok {
		rec.FwdPDG = fwd.PDG
	} else {
		rec.FwdIndex = -1
		err = fmt.Errorf("%w: forward particle %q of %q", ErrLookup, rec.FwdName, adj.Name)
	}

	t.records = append(t.records, rec)
	t.lastID++
	return rec, err
}

func (t *TrackProvenanceTracker) Count() int { return len(t.records) }

// Clear drops every record and restarts the ID sequence.
func (t *TrackProvenanceTracker) Clear() {
	t.records = nil
	t.lastID = 0
}

// ResetSequence restarts the ID sequence and keeps the records.
func (t *TrackProvenanceTracker) ResetSequence() { t.lastID = 0 }

// Records returns a copy of all records.
func (t *TrackProvenanceTracker) Records() []TrackRecord {
	out := make([]TrackRecord, len(t.records))
	copy(out, t.records)
	return out
}

func (t *TrackProvenanceTracker) Record(i int) (TrackRecord, error) {
	if i < 0 || i >= len(t.records) {
		return TrackRecord{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(t.records))
	}
	return t.records[i], nil
}

func (t *TrackProvenanceTracker) Position(i int) (geometry.Point3, error) {
	r, err := t.Record(i)
	return r.Position, err
}

func (t *TrackProvenanceTracker) Direction(i int) (geometry.Vector3, error) {
	r, err := t.Record(i)
	return r.Direction, err
}

func (t *TrackProvenanceTracker) Ekin(i int) (geometry.Real, error) {
	r, err := t.Record(i)
	return r.Ekin, err
}

func (t *TrackProvenanceTracker) EkinPerNucleon(i int) (geometry.Real, error) {
	r, err := t.Record(i)
	return r.EkinPerNucleon, err
}

func (t *TrackProvenanceTracker) Weight(i int) (geometry.Real, error) {
	r, err := t.Record(i)
	return r.Weight, err
}

func (t *TrackProvenanceTracker) CosTheta(i int) (geometry.Real, error) {
	r, err := t.Record(i)
	return r.CosTheta, err
}

func (t *TrackProvenanceTracker) FwdName(i int) (string, error) {
	r, err := t.Record(i)
	return r.FwdName, err
}

func (t *TrackProvenanceTracker) FwdPDG(i int) (int, error) {
	r, err := t.Record(i)
	return r.FwdPDG, err
}

func (t *TrackProvenanceTracker) FwdIndex(i int) (int, error) {
	r, err := t.Record(i)
	return r.FwdIndex, err
}
