package core

import (
	"context"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Transform replaces every compressed row with its range profile: an
// unnormalised forward DFT (kernel exp(-2πi·jk/N)) followed by a half-length
// shift, so zero differential range sits at index NFFT/2. Each worker owns
// its own FFT plan; plans are not safe for concurrent use.
func Transform(ctx context.Context, c *Compressed, workers int) error {
	return parallelChunks(ctx, len(c.Rows), workers, func(_ context.Context, lo, hi int) error {
		fft := fourier.NewCmplxFFT(c.NFFT)
		for _, row := range c.Rows[lo:hi] {
			fft.Coefficients(row, row)
			shiftHalf(row)
		}
		return nil
	})
}

// BinWidth is the differential-range spacing of one range-profile bin,
// ns*Δr/NFFT. It holds for the unnormalised transform above together with
// Δr = 2π/(ns·Δk_r).
func BinWidth(samples int, rangeResolution float64, nfft int) float64 {
	return float64(samples) * rangeResolution / float64(nfft)
}
