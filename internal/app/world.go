package app

import (
	"fmt"

	"github.com/lukaszgryglicki/adjointmc/internal/config"
	"github.com/lukaszgryglicki/adjointmc/internal/geometry"
	"github.com/lukaszgryglicki/adjointmc/internal/transport"
)

func vec(v config.Vec3) geometry.Vector3  { return geometry.Vector3{X: v.X, Y: v.Y, Z: v.Z} }
func point(v config.Vec3) geometry.Point3 { return geometry.Point3{X: v.X, Y: v.Y, Z: v.Z} }

// BuildWorld places the configured volumes in a world box.
func BuildWorld(g config.GeometryConfig) (*geometry.World, error) {
	world, err := geometry.NewWorld(g.WorldName, vec(g.WorldHalf))
	if err != nil {
		return nil, err
	}
	for _, vc := range g.Volumes {
		var vol geometry.Volume
		switch vc.Shape {
		case "box":
			vol, err = geometry.NewBox(vc.Name, point(vc.Center), vec(vc.Half))
		case "ball":
			vol, err = geometry.NewBall(vc.Name, point(vc.Center), vc.Radius)
		default:
			err = fmt.Errorf("volume %q: unknown shape %q", vc.Name, vc.Shape)
		}
		if err != nil {
			return nil, err
		}
		if err := world.Add(vol); err != nil {
			return nil, err
		}
	}
	return world, nil
}

// Physics converts the transport section.
func Physics(t config.TransportConfig) transport.Physics {
	return transport.Physics{
		MaxSteps:      t.MaxSteps,
		MeanFreePath:  t.MeanFreePath,
		MaxStepLength: t.MaxStepLength,
		AdjointGain:   t.AdjointGain,
		ForwardLoss:   t.ForwardLoss,
		ForwardCut:    t.ForwardCut,
	}
}
