// Package simulate generates synthetic point-target collections in the
// conventions the imaging pipeline inverts.
package simulate

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/sarbp/core"
	"github.com/signalsfoundry/sarbp/internal/logging"
	"github.com/signalsfoundry/sarbp/model"
)

// Target is an isotropic point scatterer.
type Target struct {
	Position  model.Position
	Amplitude float64
}

// Track produces one antenna position per pulse.
type Track interface {
	Positions(pulses int) (model.PlatformTrack, error)
}

// Scenario describes a synthetic collection.
type Scenario struct {
	Samples         int
	Pulses          int
	CenterFrequency float64 // Hz
	Bandwidth       float64 // Hz
	PulseWidth      float64 // seconds; the chirp rate is Bandwidth/PulseWidth
	Track           Track
	Targets         []Target
	// Workers bounds the phase-history fill; 0 means GOMAXPROCS.
	Workers int
}

// DefaultScenario is an X-band stripmap collection: 64 samples, 32 pulses
// 0.5 m apart at 1 km ground range and 500 m altitude, with a single target
// at the scene origin.
func DefaultScenario() Scenario {
	return Scenario{
		Samples:         64,
		Pulses:          32,
		CenterFrequency: 10e9,
		Bandwidth:       300e6,
		PulseWidth:      1e-6,
		Track: LinearTrack{
			Center:  model.Position{Y: -1000, Z: 500},
			Heading: model.Position{X: 1},
			Spacing: 0.5,
		},
		Targets: []Target{{Amplitude: 1}},
	}
}

// Validate reports the first invalid parameter, wrapped in
// core.ErrConfiguration.
func (s Scenario) Validate() error {
	switch {
	case s.Samples <= 0:
		return fmt.Errorf("%w: samples must be positive, got %d", core.ErrConfiguration, s.Samples)
	case s.Pulses <= 0:
		return fmt.Errorf("%w: pulses must be positive, got %d", core.ErrConfiguration, s.Pulses)
	case !(s.CenterFrequency > 0):
		return fmt.Errorf("%w: center frequency must be positive, got %v", core.ErrConfiguration, s.CenterFrequency)
	case !(s.Bandwidth > 0) || s.Bandwidth >= 2*s.CenterFrequency:
		return fmt.Errorf("%w: bandwidth %v out of range for center frequency %v", core.ErrConfiguration, s.Bandwidth, s.CenterFrequency)
	case !(s.PulseWidth > 0):
		return fmt.Errorf("%w: pulse width must be positive, got %v", core.ErrConfiguration, s.PulseWidth)
	case s.Track == nil:
		return fmt.Errorf("%w: no platform track", core.ErrConfiguration)
	case s.Workers < 0:
		return fmt.Errorf("%w: workers must not be negative, got %d", core.ErrConfiguration, s.Workers)
	}
	for i, tg := range s.Targets {
		if math.IsNaN(tg.Amplitude) || math.IsInf(tg.Amplitude, 0) {
			return fmt.Errorf("%w: target %d amplitude is not finite", core.ErrConfiguration, i)
		}
	}
	return nil
}

// Generate builds the dataset for s. The phase history of pulse i at sample
// n is the sum over targets of A·exp(-j·k_r[n]·(|p_i - T| - |p_i|)), so each
// target is referenced to the frame origin.
func (s Scenario) Generate(ctx context.Context) (*model.Dataset, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	track, err := s.Track.Positions(s.Pulses)
	if err != nil {
		return nil, fmt.Errorf("simulate: platform track: %w", err)
	}
	if len(track) != s.Pulses {
		return nil, fmt.Errorf("simulate: track has %d positions, want %d", len(track), s.Pulses)
	}

	ns, np := s.Samples, s.Pulses
	ds := &model.Dataset{
		Bandwidth:            s.Bandwidth,
		ChirpRate:            s.Bandwidth / s.PulseWidth,
		RangeResolution:      core.SpeedOfLight / (2 * s.Bandwidth),
		CenterFrequency:      s.CenterFrequency,
		SampleCount:          ns,
		PulseCount:           np,
		FrequencyAxis:        make([]float64, ns),
		RadialWavenumber:     make([]float64, ns),
		CrossRangeWavenumber: make([]float64, np),
		TimeAxis:             make([]float64, ns),
		Track:                track,
		SceneCenter:          track.Center(),
		Phase:                model.NewPhaseHistory(np, ns),
	}
	for n := 0; n < ns; n++ {
		off := float64(n - ns/2)
		ds.FrequencyAxis[n] = s.CenterFrequency + off*s.Bandwidth/float64(ns)
		ds.RadialWavenumber[n] = 4 * math.Pi * ds.FrequencyAxis[n] / core.SpeedOfLight
		ds.TimeAxis[n] = off * s.PulseWidth / float64(ns)
	}
	fillCrossRange(ds)

	workers := s.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range track {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.fillPulse(ds, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if log := logging.LoggerFromContext(ctx); log != nil {
		log.Debug(ctx, "phase history generated",
			logging.Int("samples", ns),
			logging.Int("pulses", np),
			logging.Int("targets", len(s.Targets)),
			logging.Int("workers", workers),
		)
	}
	return ds, nil
}

func (s Scenario) fillPulse(ds *model.Dataset, i int) {
	pos := core.VecFrom(ds.Track[i])
	row := ds.Phase.Pulse(i)
	acc := make([]complex128, len(row))
	for _, tg := range s.Targets {
		dr := pos.DistanceTo(core.VecFrom(tg.Position)) - pos.Norm()
		for n, k := range ds.RadialWavenumber {
			acc[n] += cmplx.Rect(tg.Amplitude, -k*dr)
		}
	}
	for n, v := range acc {
		row[n] = complex64(v)
	}
}

// fillCrossRange sets k_y[i] = 2·k_ref·(los_i·along), where los_i points
// from pulse i to the frame origin and along is the unit vector from the
// first to the last pulse. A single-pulse track has k_y = 0.
func fillCrossRange(ds *model.Dataset) {
	np := ds.PulseCount
	if np < 2 {
		return
	}
	along := core.VecFrom(ds.Track[np-1]).Sub(core.VecFrom(ds.Track[0])).Unit()
	kref := ds.RadialWavenumber[ds.SampleCount/2]
	for i, p := range ds.Track {
		los := core.VecFrom(p).Scale(-1).Unit()
		ds.CrossRangeWavenumber[i] = 2 * kref * los.Dot(along)
	}
}
