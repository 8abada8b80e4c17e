package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
)

// WindowCoefficients returns the n taper coefficients of the given kind.
// A length-1 window is always [1].
func WindowCoefficients(kind WindowKind, n int, sidelobeDB float64) ([]float64, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: window length must be positive, got %d", ErrConfiguration, n)
	}
	k, err := ParseWindow(string(kind))
	if err != nil {
		return nil, err
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	if n == 1 {
		return w, nil
	}

	switch k {
	case WindowTaylor:
		return Taylor(n, sidelobeDB), nil
	case WindowHann:
		return window.Hann(w), nil
	case WindowHamming:
		return window.Hamming(w), nil
	case WindowBlackman:
		return window.Blackman(w), nil
	case WindowBlackmanHarris:
		return window.BlackmanHarris(w), nil
	case WindowNuttall:
		return window.Nuttall(w), nil
	default:
		return window.Rectangular(w), nil
	}
}

// Taylor returns an n-point Taylor window with the given peak sidelobe level
// in dB, normalised to a peak of 1. The number of nearly-constant sidelobes
// n̄ follows from the sidelobe level: A = acosh(10^(S/20))/π,
// n̄ = int(2A²+0.5)+1.
func Taylor(n int, sidelobeDB float64) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}

	a := math.Acosh(math.Pow(10, sidelobeDB/20)) / math.Pi
	a2 := a * a
	nbar := int(2*a2+0.5) + 1
	sigma2 := float64(nbar*nbar) / (a2 + (float64(nbar)-0.5)*(float64(nbar)-0.5))

	fm := make([]float64, nbar)
	for m := 1; m < nbar; m++ {
		mm := float64(m * m)
		num, den := 1.0, 1.0
		for k := 1; k < nbar; k++ {
			kh := float64(k) - 0.5
			num *= 1 - mm/(sigma2*(a2+kh*kh))
			if k != m {
				den *= 1 - mm/float64(k*k)
			}
		}
		sign := 1.0
		if m%2 == 0 {
			sign = -1
		}
		fm[m] = sign * num / (2 * den)
	}

	x := linspace(-0.5, 0.5, n)
	for i := range w {
		v := 1.0
		for m := 1; m < nbar; m++ {
			v += 2 * fm[m] * math.Cos(2*math.Pi*float64(m)*x[i])
		}
		w[i] = v
	}
	floats.Scale(1/floats.Max(w), w)
	return w
}
