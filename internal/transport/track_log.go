package transport

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/lukaszgryglicki/adjointmc/internal/action"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
)

type Category uint8

const (
	Stepped   Category = iota // track still alive after the step
	Escape                    // left the world
	Stop                      // stopped by physics or a hook
	Kill                      // killed by a hook or the stack
	StepLimit                 // hit the step limit
)

func (c Category) String() string {
	switch c {
	case Stepped:
		return "stepped"
	case Escape:
		return "escape"
	case Stop:
		return "stop"
	case Kill:
		return "kill"
	case StepLimit:
		return "step_limit"
	}
	return "unknown"
}

type TrackLog struct {
	Particle string
	Category Category
	Thread   int
	Event    int
	Track    int
	Position geometry.Point3
	Ekin     geometry.Real
	Step     int
	Length   geometry.Real // track length so far
}

// TrackLogCache collects per-step logs of all threads, keyed by particle name.
type TrackLogCache struct {
	mu     sync.Mutex
	tracks map[string][]TrackLog
}

func NewTrackLogCache() *TrackLogCache {
	return &TrackLogCache{tracks: make(map[string][]TrackLog)}
}

func categoryOf(tr *action.Track) Category {
	switch tr.Status {
	case action.Escaped:
		return Escape
	case action.Stopped:
		return Stop
	case action.Killed:
		return Kill
	}
	return Stepped
}

func (c *TrackLogCache) log(thread, event int, cat Category, tr *action.Track) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	name := tr.Def.Name
	c.tracks[name] = append(c.tracks[name], TrackLog{
		Particle: name,
		Category: cat,
		Thread:   thread,
		Event:    event,
		Track:    tr.ID,
		Position: tr.Position,
		Ekin:     tr.Ekin,
		Step:     tr.StepCount,
		Length:   tr.Length,
	})
}

// Logs returns a copy of the logs of one particle.
func (c *TrackLogCache) Logs(particle string) []TrackLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TrackLog, len(c.tracks[particle]))
	copy(out, c.tracks[particle])
	return out
}

// Stats counts logs per particle and category, e.g. "adj_gamma/escape".
func (c *TrackLogCache) Stats() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int)
	for k, v := range c.tracks {
		for _, l := range v {
			out[k+"/"+l.Category.String()]++
		}
	}
	return out
}

func (c *TrackLogCache) LogStats(log *zap.Logger) {
	stats := c.Stats()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Debug("track log", zap.String("key", k), zap.Int("count", stats[k]))
	}
}
