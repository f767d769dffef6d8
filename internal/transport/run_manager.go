// Package transport is a small fork-join transport engine. A RunManager is
// either a sequential thread or the master of a pool of worker threads; each
// thread steps its tracks through a toy physics model and calls the user
// actions installed in its slots.
package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/adjoint"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

// Config configures a RunManager. Workers == 0 runs sequentially.
type Config struct {
	Workers  int
	Seed     int64
	Physics  Physics
	TrackLog bool
}

// ActionInitialization installs user actions on new threads.
type ActionInitialization interface {
	// BuildForMaster is called for the master thread of a multi-threaded run.
	BuildForMaster(t *Thread) error
	// Build is called for the sequential thread or for every worker.
	Build(t *Thread) error
}

type RunManager struct {
	*Thread

	workers     []*Thread
	initialized bool
	running     atomic.Bool
	runID       int

	mu       sync.Mutex
	commands []func(*adjoint.Manager) error
}

var _ adjoint.WorkerBroadcaster = (*RunManager)(nil)

func NewRunManager(world *geometry.World, cfg Config, log *zap.Logger) (*RunManager, error) {
	if world == nil {
		return nil, fmt.Errorf("transport: nil world")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("transport: workers must be >= 0, got %d", cfg.Workers)
	}
	if err := cfg.Physics.Validate(); err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	var tl *TrackLogCache
	if cfg.TrackLog {
		tl = NewTrackLogCache()
	}
	role := action.Sequential
	if cfg.Workers > 0 {
		role = action.Master
	}
	rm := &RunManager{Thread: newThread(-1, role, world, cfg.Physics, cfg.Seed, tl, log)}
	rm.owner = rm
	for i := 0; i < cfg.Workers; i++ {
		rm.workers = append(rm.workers, newThread(i, action.Worker, world, cfg.Physics, cfg.Seed, tl, log))
	}
	return rm, nil
}

// Initialize runs the action initialization on every thread.
func (rm *RunManager) Initialize(init ActionInitialization) error {
	if rm.initialized {
		return nil
	}
	if rm.role == action.Sequential {
		if err := init.Build(rm.Thread); err != nil {
			return fmt.Errorf("build sequential thread: %w", err)
		}
	} else {
		if err := init.BuildForMaster(rm.Thread); err != nil {
			return fmt.Errorf("build master thread: %w", err)
		}
		for _, w := range rm.workers {
			if err := init.Build(w); err != nil {
				return fmt.Errorf("build worker %d: %w", w.id, err)
			}
		}
	}
	rm.initialized = true
	return nil
}

func (rm *RunManager) Workers() []*Thread { return rm.workers }

// Threads returns the threads that process events.
func (rm *RunManager) Threads() []*Thread {
	if rm.role == action.Sequential {
		return []*Thread{rm.Thread}
	}
	return rm.workers
}

func (rm *RunManager) TrackLog() *TrackLogCache { return rm.trackLog }

// BroadcastToWorkers queues cmd to run on every worker's goroutine, against
// the worker's adjoint manager, at the start of the next batch.
func (rm *RunManager) BroadcastToWorkers(cmd func(*adjoint.Manager) error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.commands = append(rm.commands, cmd)
}

func (rm *RunManager) takeCommands() []func(*adjoint.Manager) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	cmds := rm.commands
	rm.commands = nil
	return cmds
}

// split spreads n events over k workers, the remainder going to the first ones.
func split(n, k int) []int {
	per := make([]int, k)
	base, rem := n/k, n%k
	for w := 0; w < k; w++ {
		per[w] = base
		if w < rem {
			per[w]++
		}
	}
	return per
}

// BeamOn processes n events and blocks until every thread is done. Commands
// queued for a batch that is refused are dropped.
func (rm *RunManager) BeamOn(ctx context.Context, n int) error {
	if !rm.initialized {
		rm.takeCommands()
		return ErrNotInitialized
	}
	if n < 0 {
		rm.takeCommands()
		return fmt.Errorf("transport: negative event count %d", n)
	}
	if !rm.running.CompareAndSwap(false, true) {
		rm.takeCommands()
		return ErrRunInProgress
	}
	defer rm.running.Store(false)

	rm.runID++
	start := time.Now()
	defer func() { beamOnDuration.Observe(time.Since(start).Seconds()) }()
	p := newProgress(n)

	if rm.role == action.Sequential {
		rm.takeCommands()
		return rm.runEvents(ctx, rm.runID, 0, n, p)
	}

	cmds := rm.takeCommands()
	run := &action.Run{ID: rm.runID, Events: n, Thread: rm.id}
	if ra := rm.UserAction(action.KindRun).Run(); ra != nil {
		ra.BeginOfRun(run)
		defer ra.EndOfRun(run)
	}

	per := split(n, len(rm.workers))
	g, gctx := errgroup.WithContext(ctx)
	first := 0
	for i, w := range rm.workers {
		w, cnt, off := w, per[i], first
		first += cnt
		g.Go(func() error {
			if w.adjoint != nil {
				for _, cmd := range cmds {
					if err := cmd(w.adjoint); err != nil {
						return fmt.Errorf("worker %d command: %w", w.id, err)
					}
				}
			}
			return w.runEvents(gctx, rm.runID, off, cnt, p)
		})
	}
	err := g.Wait()
	rm.log.Debug("beam on done",
		zap.Int("run", rm.runID),
		zap.Int64("events", p.done()),
		zap.Duration("elapsed", time.Since(start)))
	if rm.trackLog != nil {
		rm.trackLog.LogStats(rm.log)
	}
	return err
}

// Close closes the adjoint managers bound to the threads.
func (rm *RunManager) Close() error {
	for _, w := range rm.workers {
		if w.adjoint != nil {
			_ = w.adjoint.Close()
		}
	}
	if rm.adjoint != nil {
		return rm.adjoint.Close()
	}
	return nil
}
