package core

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/sarbp/model"
)

// Compressed holds one row of NFFT complex samples per pulse. Compress
// leaves the rows zero-padded and shifted, ready for the forward transform;
// Transform turns them into range profiles in place.
type Compressed struct {
	NFFT    int
	Samples int
	Rows    [][]complex128
}

// Weights returns the separable window and filter used by Compress:
// window is [pulses*samples] row-major, filter is [samples].
func Weights(ds *model.Dataset, opts Options) (window, filter []float64, err error) {
	ns, np := ds.SampleCount, ds.PulseCount
	wRange, err := WindowCoefficients(opts.Window, ns, opts.SidelobeDB)
	if err != nil {
		return nil, nil, err
	}
	wCross := make([]float64, np)
	if opts.CrossRangeWindow {
		if wCross, err = WindowCoefficients(opts.Window, np, opts.SidelobeDB); err != nil {
			return nil, nil, err
		}
	} else {
		for i := range wCross {
			wCross[i] = 1
		}
	}

	filter = make([]float64, ns)
	for n := range filter {
		switch opts.Filter {
		case FilterAbsWavenumber:
			filter[n] = math.Abs(ds.RadialWavenumber[n])
		case FilterNone:
			filter[n] = 1
		default:
			return nil, nil, fmt.Errorf("%w: unknown filter %q", ErrConfiguration, opts.Filter)
		}
	}

	window = make([]float64, np*ns)
	for i, wc := range wCross {
		for n, wr := range wRange {
			window[i*ns+n] = wc * wr
		}
	}
	return window, filter, nil
}

// Compress windows and filters every pulse, zero-pads it to NFFT with the
// centre sample ns/2 at index NFFT/2, then circularly shifts by NFFT/2 so
// that the centre lands at index 0. Pulses are processed in parallel.
func Compress(ctx context.Context, ds *model.Dataset, opts Options, rec Recorder) (*Compressed, error) {
	ns, np := ds.SampleCount, ds.PulseCount
	nfft := FFTLength(ns, opts.Upsample)

	win, filt, err := Weights(ds, opts)
	if err != nil {
		return nil, err
	}
	if enabled(rec, BufWindow) {
		if err := rec.Record(BufWindow, []int{np, ns}, win); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufWindow, err)
		}
	}
	if enabled(rec, BufFilter) {
		if err := rec.Record(BufFilter, []int{ns}, filt); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufFilter, err)
		}
	}

	var filtered, padded []complex128
	if enabled(rec, BufPhaseFiltered) {
		filtered = make([]complex128, np*ns)
	}
	if enabled(rec, BufPhasePadded) {
		padded = make([]complex128, np*nfft)
	}

	backing := make([]complex128, np*nfft)
	out := &Compressed{NFFT: nfft, Samples: ns, Rows: make([][]complex128, np)}
	offset := nfft/2 - ns/2

	err = parallelChunks(ctx, np, opts.Workers, func(_ context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			row := backing[i*nfft : (i+1)*nfft]
			w := win[i*ns : (i+1)*ns]
			for n, s := range ds.Phase.Pulse(i) {
				v := complex128(s) * complex(w[n]*filt[n], 0)
				if filtered != nil {
					filtered[i*ns+n] = v
				}
				row[offset+n] = v
			}
			if padded != nil {
				copy(padded[i*nfft:(i+1)*nfft], row)
			}
			shiftHalf(row)
			out.Rows[i] = row
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if filtered != nil {
		if err := rec.Record(BufPhaseFiltered, []int{np, ns}, filtered); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufPhaseFiltered, err)
		}
	}
	if padded != nil {
		if err := rec.Record(BufPhasePadded, []int{np, nfft}, padded); err != nil {
			return nil, fmt.Errorf("record %s: %w", BufPhasePadded, err)
		}
	}
	return out, nil
}

// shiftHalf rotates x by len(x)/2. For the even lengths used here it is its
// own inverse, so it serves as both fftshift and ifftshift.
func shiftHalf(x []complex128) {
	h := len(x) / 2
	if h == 0 {
		return
	}
	for k := 0; k < h; k++ {
		x[k], x[k+h] = x[k+h], x[k]
	}
}
