package transport

import "errors"

var (
	ErrNotMaster          = errors.New("transport: only a sequential or master thread can start a run")
	ErrNotInitialized     = errors.New("transport: run manager not initialized")
	ErrRunInProgress      = errors.New("transport: a run is already in progress")
	ErrNoPrimaryGenerator = errors.New("transport: no primary generator installed")
)
