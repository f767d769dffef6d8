package geometry

import "fmt"

// World is the top-level box plus the named volumes placed in it.
type World struct {
	box     *Box
	volumes map[string]Volume
	order   []string
}

// NewWorld creates a world box centred on the origin.
func NewWorld(name string, half Vector3) (*World, error) {
	box, err := NewBox(name, Point3{}, half)
	if err != nil {
		return nil, err
	}
	w := &World{box: box, volumes: map[string]Volume{name: box}, order: []string{name}}
	return w, nil
}

// Add places a volume. Names are unique.
func (w *World) Add(v Volume) error {
	if _, ok := w.volumes[v.Name()]; ok {
		return fmt.Errorf("volume %q already placed", v.Name())
	}
	w.volumes[v.Name()] = v
	w.order = append(w.order, v.Name())
	return nil
}

func (w *World) Volume(name string) (Volume, bool) {
	v, ok := w.volumes[name]
	return v, ok
}

// Box returns the world volume itself.
func (w *World) Box() *Box { return w.box }

// Names lists volumes in placement order, the world first.
func (w *World) Names() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Locate returns the last placed volume containing p, the world name when
// only the world does, or "" when p is outside the world.
func (w *World) Locate(p Point3) string {
	if !w.box.Inside(p) {
		return ""
	}
	for i := len(w.order) - 1; i > 0; i-- {
		if w.volumes[w.order[i]].Inside(p) {
			return w.order[i]
		}
	}
	return w.order[0]
}

// DistanceToOut is the distance along D from an inside point O to the world boundary.
func (w *World) DistanceToOut(O Point3, D Vector3) Real {
	_, tFar, ok := w.box.Intersect(O, D)
	if !ok || tFar < 0 {
		return 0
	}
	return tFar
}
