package action

// Kind names one user-action slot of an engine thread.
type Kind uint8

const (
	KindRun Kind = iota
	KindPrimary
	KindEvent
	KindStepping
	KindTracking
	KindStacking

	NumKinds
)

var kindNames = [NumKinds]string{"run", "primary", "event", "stepping", "tracking", "stacking"}

func (k Kind) String() string {
	if k < NumKinds {
		return kindNames[k]
	}
	return "invalid"
}

// PerWorker reports whether the slot lives on worker threads only. On a
// master thread only the run slot exists.
func (k Kind) PerWorker() bool { return k != KindRun && k < NumKinds }

// Ref is either empty or a reference to an action of its slot's type.
type Ref struct {
	kind Kind
	v    any
}

// None is the empty reference for slot k.
func None(k Kind) Ref { return Ref{kind: k} }

func OfRun(a RunAction) Ref {
	if a == nil {
		return None(KindRun)
	}
	return Ref{kind: KindRun, v: a}
}

func OfPrimary(a PrimaryGenerator) Ref {
	if a == nil {
		return None(KindPrimary)
	}
	return Ref{kind: KindPrimary, v: a}
}

func OfEvent(a EventAction) Ref {
	if a == nil {
		return None(KindEvent)
	}
	return Ref{kind: KindEvent, v: a}
}

func OfStepping(a SteppingAction) Ref {
	if a == nil {
		return None(KindStepping)
	}
	return Ref{kind: KindStepping, v: a}
}

func OfTracking(a TrackingAction) Ref {
	if a == nil {
		return None(KindTracking)
	}
	return Ref{kind: KindTracking, v: a}
}

func OfStacking(a StackingAction) Ref {
	if a == nil {
		return None(KindStacking)
	}
	return Ref{kind: KindStacking, v: a}
}

func (r Ref) Kind() Kind      { return r.kind }
func (r Ref) IsSet() bool     { return r.v != nil }
func (r Ref) Value() any      { return r.v }
func (r Ref) Same(o Ref) bool { return r.kind == o.kind && r.v == o.v }

// Typed accessors return nil when the reference is empty.

func (r Ref) Run() RunAction {
	a, _ := r.v.(RunAction)
	return a
}

func (r Ref) Primary() PrimaryGenerator {
	a, _ := r.v.(PrimaryGenerator)
	return a
}

func (r Ref) Event() EventAction {
	a, _ := r.v.(EventAction)
	return a
}

func (r Ref) Stepping() SteppingAction {
	a, _ := r.v.(SteppingAction)
	return a
}

func (r Ref) Tracking() TrackingAction {
	a, _ := r.v.(TrackingAction)
	return a
}

func (r Ref) Stacking() StackingAction {
	a, _ := r.v.(StackingAction)
	return a
}
