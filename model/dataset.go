package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput marks any dataset whose arrays disagree with the expected
// schema (wrong shape, wrong element type, non-positive counts).
var ErrInvalidInput = errors.New("invalid input")

// PhaseHistory is the raw complex return matrix, pulses × range samples,
// stored row-major.
type PhaseHistory struct {
	Pulses  int
	Samples int
	Data    []complex64
}

// NewPhaseHistory allocates a zero-filled phase history.
func NewPhaseHistory(pulses, samples int) PhaseHistory {
	return PhaseHistory{
		Pulses:  pulses,
		Samples: samples,
		Data:    make([]complex64, pulses*samples),
	}
}

// Pulse returns the range samples of pulse i. The slice aliases the matrix.
func (ph PhaseHistory) Pulse(i int) []complex64 {
	return ph.Data[i*ph.Samples : (i+1)*ph.Samples]
}

// Dataset bundles every input array of one collection. Element types are
// widened to float64 on load; the loader is responsible for checking the
// on-disk types.
type Dataset struct {
	Bandwidth       float64 // IF bandwidth, Hz
	ChirpRate       float64 // Hz/s
	RangeResolution float64 // metres
	CenterFrequency float64 // Hz
	SampleCount     int
	PulseCount      int

	FrequencyAxis        []float64 // [SampleCount], Hz
	RadialWavenumber     []float64 // [SampleCount], rad/m
	CrossRangeWavenumber []float64 // [PulseCount], rad/m
	SceneCenter          Position
	TimeAxis             []float64 // [SampleCount], s
	Track                PlatformTrack
	Phase                PhaseHistory
}

// Validate checks every shape invariant of the dataset. It returns an error
// wrapping ErrInvalidInput that names the first offending array.
func (d *Dataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: dataset is nil", ErrInvalidInput)
	}
	if d.SampleCount <= 0 {
		return fmt.Errorf("%w: sample_count must be positive, got %d", ErrInvalidInput, d.SampleCount)
	}
	if d.PulseCount <= 0 {
		return fmt.Errorf("%w: pulse_count must be positive, got %d", ErrInvalidInput, d.PulseCount)
	}
	if !(d.RangeResolution > 0) || math.IsInf(d.RangeResolution, 0) {
		return fmt.Errorf("%w: range_resolution must be positive and finite, got %v", ErrInvalidInput, d.RangeResolution)
	}

	ns, np := d.SampleCount, d.PulseCount
	if err := checkLen("frequency_axis", len(d.FrequencyAxis), ns); err != nil {
		return err
	}
	if err := checkLen("radial_wavenumber", len(d.RadialWavenumber), ns); err != nil {
		return err
	}
	if err := checkLen("cross_range_wavenumber", len(d.CrossRangeWavenumber), np); err != nil {
		return err
	}
	if err := checkLen("time_axis", len(d.TimeAxis), ns); err != nil {
		return err
	}
	if err := checkLen("platform_position", len(d.Track), np); err != nil {
		return err
	}
	if d.Phase.Pulses != np || d.Phase.Samples != ns || len(d.Phase.Data) != np*ns {
		return fmt.Errorf("%w: phase_history has shape [%d %d] (%d values), want [%d %d]",
			ErrInvalidInput, d.Phase.Pulses, d.Phase.Samples, len(d.Phase.Data), np, ns)
	}
	if !monotonic(d.RadialWavenumber) {
		return fmt.Errorf("%w: radial_wavenumber is not monotonic", ErrInvalidInput)
	}
	return nil
}

func checkLen(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%w: %s has length %d, want %d", ErrInvalidInput, name, got, want)
	}
	return nil
}

// monotonic reports whether xs is non-decreasing or non-increasing.
func monotonic(xs []float64) bool {
	up, down := true, true
	for i := 1; i < len(xs); i++ {
		if xs[i] < xs[i-1] {
			up = false
		}
		if xs[i] > xs[i-1] {
			down = false
		}
	}
	return up || down
}
