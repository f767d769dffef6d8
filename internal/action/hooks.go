package action

type RunAction interface {
	BeginOfRun(*Run)
	EndOfRun(*Run)
}

type PrimaryGenerator interface {
	GeneratePrimaries(*Event) error
}

type EventAction interface {
	BeginOfEvent(*Event)
	EndOfEvent(*Event)
}

type SteppingAction interface {
	UserStep(*Step)
}

type TrackingAction interface {
	PreTrack(*Track)
	PostTrack(*Track)
}

type StackingAction interface {
	ClassifyNewTrack(*Track) Classification
	// NewStage is called each time the urgent stack drains.
	NewStage()
	PrepareNewEvent()
}
