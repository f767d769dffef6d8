package action

import "testing"

type countingRun struct{ begins, ends int }

func (c *countingRun) BeginOfRun(*Run) { c.begins++ }
func (c *countingRun) EndOfRun(*Run)   { c.ends++ }

func TestRefNilIsNone(t *testing.T) {
	var ra *countingRun
	if OfRun(nil).IsSet() {
		t.Fatalf("OfRun(nil) must be empty")
	}
	// a typed nil pointer is still a reference
	if !OfRun(ra).IsSet() {
		t.Fatalf("typed nil should be kept as a reference")
	}
	if None(KindStepping).Stepping() != nil {
		t.Fatalf("empty ref should return nil action")
	}
}

func TestRefTypedAccess(t *testing.T) {
	ra := &countingRun{}
	r := OfRun(ra)
	if r.Kind() != KindRun || !r.IsSet() {
		t.Fatalf("bad ref: %+v", r)
	}
	r.Run().BeginOfRun(&Run{})
	if ra.begins != 1 {
		t.Fatalf("begins=%d", ra.begins)
	}
	if r.Event() != nil {
		t.Fatalf("run ref must not be an event action")
	}
	if !r.Same(OfRun(ra)) || r.Same(OfRun(&countingRun{})) {
		t.Fatalf("Same mismatch")
	}
}

func TestKindScoping(t *testing.T) {
	if KindRun.PerWorker() {
		t.Fatalf("run slot exists on every thread")
	}
	for k := KindPrimary; k < NumKinds; k++ {
		if !k.PerWorker() {
			t.Fatalf("%s should be per worker", k)
		}
	}
	if NumKinds.String() != "invalid" || KindStacking.String() != "stacking" {
		t.Fatalf("names: %s %s", NumKinds, KindStacking)
	}
}
