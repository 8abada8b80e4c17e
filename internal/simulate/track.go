package simulate

import (
	"fmt"

	"github.com/signalsfoundry/sarbp/core"
	"github.com/signalsfoundry/sarbp/model"
)

// LinearTrack is a straight, constant-speed aperture centred on Center.
// Pulse i sits at Center + (i - (n-1)/2)·Spacing·Heading/|Heading|.
type LinearTrack struct {
	Center  model.Position
	Heading model.Position
	Spacing float64 // metres between pulses
}

// Positions implements Track.
func (t LinearTrack) Positions(pulses int) (model.PlatformTrack, error) {
	if pulses <= 0 {
		return nil, fmt.Errorf("%w: pulses must be positive, got %d", core.ErrConfiguration, pulses)
	}
	heading := core.VecFrom(t.Heading)
	if heading.Norm() == 0 {
		return nil, fmt.Errorf("%w: linear track heading is zero", core.ErrConfiguration)
	}
	if !(t.Spacing > 0) {
		return nil, fmt.Errorf("%w: pulse spacing must be positive, got %v", core.ErrConfiguration, t.Spacing)
	}

	dir := heading.Unit().Scale(t.Spacing)
	center := core.VecFrom(t.Center)
	track := make(model.PlatformTrack, pulses)
	for i := range track {
		p := center.Add(dir.Scale(float64(i) - float64(pulses-1)/2))
		track[i] = model.Position{X: p.X, Y: p.Y, Z: p.Z}
	}
	return track, nil
}
