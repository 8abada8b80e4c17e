package core

import (
	"fmt"
	"strings"
)

// WindowKind selects the sidelobe-suppression taper applied before the
// range transform.
type WindowKind string

const (
	WindowTaylor         WindowKind = "taylor"
	WindowHann           WindowKind = "hann"
	WindowHamming        WindowKind = "hamming"
	WindowBlackman       WindowKind = "blackman"
	WindowBlackmanHarris WindowKind = "blackman_harris"
	WindowNuttall        WindowKind = "nuttall"
	WindowRectangular    WindowKind = "rectangular"
)

// FilterKind selects the radial-wavenumber weighting applied per sample.
type FilterKind string

const (
	// FilterAbsWavenumber weights sample n by |k_r[n]|.
	FilterAbsWavenumber FilterKind = "abs_wavenumber"
	// FilterNone leaves samples unweighted.
	FilterNone FilterKind = "none"
)

// Interpolation selects how a compressed range profile is sampled at a
// fractional index.
type Interpolation string

const (
	InterpLinear  Interpolation = "linear"
	InterpNearest Interpolation = "nearest"
)

// ReferencePoint selects the fixed point O that differential ranges are
// measured against: r0 = |pos - O|.
type ReferencePoint string

const (
	// ReferenceOrigin uses the frame origin; platform positions are already
	// expressed relative to the scene centre.
	ReferenceOrigin ReferencePoint = "origin"
	// ReferenceSceneCenter uses the scene_center input array.
	ReferenceSceneCenter ReferencePoint = "scene_center"
)

// ReferenceWavenumber selects k_ref for the per-pixel phase correction.
type ReferenceWavenumber string

const (
	// KRefCenterSample uses k_r[ns/2].
	KRefCenterSample ReferenceWavenumber = "center_sample"
	// KRefCenterFrequency uses 4*pi*f0/c.
	KRefCenterFrequency ReferenceWavenumber = "center_frequency"
)

// Options configures every stage of the imaging pipeline.
type Options struct {
	// Upsample is the range-profile oversampling ratio: NFFT is the smallest
	// power of two not less than samples*Upsample.
	Upsample int
	// GridUpsample rounds the output grid lengths up to powers of two.
	GridUpsample bool
	ResFactor    float64
	Aspect       float64
	Up           Vec3

	ReferencePoint      ReferencePoint
	ReferenceWavenumber ReferenceWavenumber

	Window           WindowKind
	SidelobeDB       float64 // Taylor sidelobe level
	CrossRangeWindow bool
	Filter           FilterKind

	Interpolation Interpolation
	RecenterPhase bool
	// Workers bounds every parallel stage; 0 means GOMAXPROCS.
	Workers int

	DBMin float64
	DBMax float64
}

// DefaultOptions mirrors the reference processing chain: 2x range
// oversampling, power-of-two grid, Taylor(20 dB) in both axes, |k_r| filter,
// linear interpolation, a [-30, 0] dB display range.
func DefaultOptions() Options {
	return Options{
		Upsample:            2,
		GridUpsample:        true,
		ResFactor:           1.0,
		Aspect:              1.0,
		Up:                  Vec3{Z: 1},
		ReferencePoint:      ReferenceOrigin,
		ReferenceWavenumber: KRefCenterSample,
		Window:              WindowTaylor,
		SidelobeDB:          20,
		CrossRangeWindow:    true,
		Filter:              FilterAbsWavenumber,
		Interpolation:       InterpLinear,
		RecenterPhase:       true,
		DBMin:               -30,
		DBMax:               0,
	}
}

// Validate reports the first invalid option, wrapped in ErrConfiguration.
func (o Options) Validate() error {
	if o.Upsample < 1 {
		return fmt.Errorf("%w: upsample must be >= 1, got %d", ErrConfiguration, o.Upsample)
	}
	if !(o.ResFactor > 0) {
		return fmt.Errorf("%w: res_factor must be positive, got %v", ErrConfiguration, o.ResFactor)
	}
	if !(o.Aspect > 0) {
		return fmt.Errorf("%w: aspect must be positive, got %v", ErrConfiguration, o.Aspect)
	}
	if o.Up.Norm() == 0 {
		return fmt.Errorf("%w: up vector is zero", ErrDegenerateGeometry)
	}
	if o.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrConfiguration, o.Workers)
	}
	if !(o.DBMin < o.DBMax) {
		return fmt.Errorf("%w: db_min (%v) must be below db_max (%v)", ErrConfiguration, o.DBMin, o.DBMax)
	}
	if _, err := ParseWindow(string(o.Window)); err != nil {
		return err
	}
	if o.Window == WindowTaylor && !(o.SidelobeDB > 0) {
		return fmt.Errorf("%w: taylor sidelobe level must be positive, got %v", ErrConfiguration, o.SidelobeDB)
	}
	switch o.Filter {
	case FilterAbsWavenumber, FilterNone:
	default:
		return fmt.Errorf("%w: unknown filter %q", ErrConfiguration, o.Filter)
	}
	switch o.Interpolation {
	case InterpLinear, InterpNearest:
	default:
		return fmt.Errorf("%w: unknown interpolation %q", ErrConfiguration, o.Interpolation)
	}
	switch o.ReferencePoint {
	case ReferenceOrigin, ReferenceSceneCenter:
	default:
		return fmt.Errorf("%w: unknown reference point %q", ErrConfiguration, o.ReferencePoint)
	}
	switch o.ReferenceWavenumber {
	case KRefCenterSample, KRefCenterFrequency:
	default:
		return fmt.Errorf("%w: unknown reference wavenumber %q", ErrConfiguration, o.ReferenceWavenumber)
	}
	return nil
}

// ParseWindow maps a configuration string to a WindowKind.
func ParseWindow(s string) (WindowKind, error) {
	switch k := WindowKind(strings.ToLower(strings.TrimSpace(s))); k {
	case WindowTaylor, WindowHann, WindowHamming, WindowBlackman,
		WindowBlackmanHarris, WindowNuttall, WindowRectangular:
		return k, nil
	case "blackmanharris":
		return WindowBlackmanHarris, nil
	case "none", "rect":
		return WindowRectangular, nil
	default:
		return "", fmt.Errorf("%w: unknown window %q", ErrConfiguration, s)
	}
}
