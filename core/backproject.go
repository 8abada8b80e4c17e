package core

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/sarbp/model"
)

// BackprojectInput carries everything the backprojector reads. All fields
// are shared read-only across workers.
type BackprojectInput struct {
	Plane    *ImagePlane
	Profiles *Compressed
	// Track holds one platform position per profile row.
	Track []Vec3
	// Origin is the reference point O: pixel world locations are
	// Origin+PixelLocs[p] and r0 = |pos - Origin|.
	Origin   Vec3
	BinWidth float64
	KRef     float64
}

func (in BackprojectInput) validate() error {
	if in.Plane == nil || in.Profiles == nil {
		return fmt.Errorf("%w: backprojection needs an image plane and range profiles", ErrConfiguration)
	}
	if len(in.Track) != len(in.Profiles.Rows) {
		return fmt.Errorf("%w: %d platform positions for %d range profiles", ErrConfiguration, len(in.Track), len(in.Profiles.Rows))
	}
	if !(in.BinWidth > 0) || math.IsInf(in.BinWidth, 0) {
		return fmt.Errorf("%w: range bin width must be positive, got %v", ErrConfiguration, in.BinWidth)
	}
	return nil
}

// Backproject forms the complex image. For every pixel p and pulse k it
// samples profile k at the fractional bin NFFT/2 - dr/BinWidth, where
// dr = |pos_k - (O+p)| - |pos_k - O|, applies exp(i·KRef·dr) and accumulates.
// Bins outside [0, NFFT-1] contribute nothing. Image rows are partitioned
// across workers, each owning a disjoint set of pixels; pulses are summed in
// ascending order within a pixel.
func Backproject(ctx context.Context, in BackprojectInput, opts Options, rec Recorder) (*model.ComplexImage, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	plane := in.Plane
	nu, nv := plane.NU, plane.NV
	npix := nu * nv
	np := len(in.Track)
	half := float64(in.Profiles.NFFT / 2)

	r0 := make([]float64, np)
	for k, pos := range in.Track {
		r0[k] = pos.DistanceTo(in.Origin)
	}
	if enabled(rec, BufReferenceRange) {
		if err := rec.Record(BufReferenceRange, []int{np}, r0); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufReferenceRange, err)
		}
	}

	var drBuf []float64
	var sampleBuf []complex128
	if enabled(rec, BufDifferentialRange) {
		drBuf = make([]float64, np*npix)
	}
	if enabled(rec, BufSamples) {
		sampleBuf = make([]complex128, np*npix)
	}

	img := model.NewComplexImage(nu, nv)
	err := parallelChunks(ctx, nv, opts.Workers, func(_ context.Context, lo, hi int) error {
		for j := lo; j < hi; j++ {
			for i := 0; i < nu; i++ {
				p := j*nu + i
				world := in.Origin.Add(plane.PixelLocs[p])
				var acc complex128
				for k, pos := range in.Track {
					dr := pos.DistanceTo(world) - r0[k]
					if drBuf != nil {
						drBuf[k*npix+p] = dr
					}
					q, ok := sampleProfile(in.Profiles.Rows[k], half-dr/in.BinWidth, opts.Interpolation)
					if !ok {
						continue
					}
					if sampleBuf != nil {
						sampleBuf[k*npix+p] = q
					}
					s, c := math.Sincos(in.KRef * dr)
					acc += q * complex(c, s)
				}
				img.Data[p] = acc
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if drBuf != nil {
		if err := rec.Record(BufDifferentialRange, []int{np, npix}, drBuf); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufDifferentialRange, err)
		}
	}
	if sampleBuf != nil {
		if err := rec.Record(BufSamples, []int{np, npix}, sampleBuf); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufSamples, err)
		}
	}
	if enabled(rec, BufImage) {
		if err := rec.Record(BufImage, []int{nv, nu}, img.Data); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufImage, err)
		}
	}

	if opts.RecenterPhase && np > 0 {
		recenterPhase(img, in, r0)
	}
	if enabled(rec, BufFinalImage) {
		if err := rec.Record(BufFinalImage, []int{nv, nu}, img.Data); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufFinalImage, err)
		}
	}
	return img, nil
}

// recenterPhase removes the linear phase ramp seen from the centre pulse:
// img[p] *= exp(-i·KRef·dr_c(p)). Magnitudes are unchanged.
func recenterPhase(img *model.ComplexImage, in BackprojectInput, r0 []float64) {
	c := len(in.Track) / 2
	pc := in.Track[c]
	for p := range img.Data {
		dr := pc.DistanceTo(in.Origin.Add(in.Plane.PixelLocs[p])) - r0[c]
		s, co := math.Sincos(-in.KRef * dr)
		img.Data[p] *= complex(co, s)
	}
}

// sampleProfile reads q at fractional index x. It reports false when x
// falls outside [0, len(q)-1].
func sampleProfile(q []complex128, x float64, mode Interpolation) (complex128, bool) {
	last := len(q) - 1
	if math.IsNaN(x) || x < 0 || x > float64(last) {
		return 0, false
	}
	if mode == InterpNearest {
		return q[int(math.Round(x))], true
	}
	i0 := int(x)
	if i0 >= last {
		return q[last], true
	}
	f := x - float64(i0)
	return q[i0]*complex(1-f, 0) + q[i0+1]*complex(f, 0), true
}

// ReferenceWavenumberFor returns k_ref for the phase correction.
func ReferenceWavenumberFor(ds *model.Dataset, mode ReferenceWavenumber) (float64, error) {
	switch mode {
	case KRefCenterSample:
		return ds.RadialWavenumber[ds.SampleCount/2], nil
	case KRefCenterFrequency:
		return 4 * math.Pi * ds.CenterFrequency / SpeedOfLight, nil
	default:
		return 0, fmt.Errorf("%w: unknown reference wavenumber %q", ErrConfiguration, mode)
	}
}
