package core

import (
	"fmt"
	"math"
	"math/bits"
)

// NextPow2 returns the smallest power of two not less than n (1 for n <= 1).
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// GridLength is the output-grid length for an axis with n input samples:
// NextPow2(n) when upsampling, n otherwise.
func GridLength(n int, upsample bool) int {
	if upsample {
		return NextPow2(n)
	}
	return n
}

// FFTLength is the zero-padded range-transform length for the given sample
// count and oversampling ratio.
func FFTLength(samples, upsample int) int {
	return NextPow2(samples * upsample)
}

// Basis spans the ground image plane. UHat and VHat are unit length and
// mutually orthogonal; both are orthogonal to Up.
type Basis struct {
	UHat Vec3
	VHat Vec3
	Up   Vec3
}

// NewBasis derives the image-plane basis from the scene-centre reference and
// the up vector. VHat is the Gram-Schmidt residual of the scene-centre
// direction against Up; UHat = VHat × Up. With Up = +z and the reference in
// the -y half-space, UHat points along -x.
func NewBasis(sceneCenter, up Vec3) (Basis, error) {
	if up.Norm() == 0 {
		return Basis{}, fmt.Errorf("%w: up vector is zero", ErrDegenerateGeometry)
	}
	rc := sceneCenter.Norm()
	if rc == 0 {
		return Basis{}, fmt.Errorf("%w: scene centre is at the origin", ErrDegenerateGeometry)
	}
	n := up.Unit()
	perp := sceneCenter.Sub(n.Scale(sceneCenter.Dot(n)))
	if perp.Norm() < 1e-9*rc {
		return Basis{}, fmt.Errorf("%w: scene centre %v is parallel to up vector %v", ErrDegenerateGeometry, sceneCenter, up)
	}
	vHat := perp.Unit()
	uHat := vHat.Cross(n).Unit()
	return Basis{UHat: uHat, VHat: vHat, Up: n}, nil
}

// ImagePlane is the output grid: axis samples, spectral axes and the world
// location of every pixel relative to the geometry origin.
type ImagePlane struct {
	NU, NV int
	DU, DV float64

	U, V   []float64
	KU, KV []float64

	Basis

	// PixelLocs holds U[i]*UHat + V[j]*VHat at index j*NU+i.
	PixelLocs []Vec3
}

// NewImagePlane builds the grid for a collection of the given size.
func NewImagePlane(samples, pulses int, rangeResolution float64, sceneCenter Vec3, opts Options) (*ImagePlane, error) {
	if samples <= 0 || pulses <= 0 {
		return nil, fmt.Errorf("%w: samples (%d) and pulses (%d) must be positive", ErrConfiguration, samples, pulses)
	}
	basis, err := NewBasis(sceneCenter, opts.Up)
	if err != nil {
		return nil, err
	}

	nu := GridLength(samples, opts.GridUpsample)
	nv := GridLength(pulses, opts.GridUpsample)
	du := rangeResolution * opts.ResFactor * float64(samples) / float64(nu)
	dv := opts.Aspect * du

	ip := &ImagePlane{
		NU:    nu,
		NV:    nv,
		DU:    du,
		DV:    dv,
		U:     centeredAxis(nu, du),
		V:     centeredAxis(nv, dv),
		KU:    wavenumberAxis(nu, du),
		KV:    wavenumberAxis(nv, dv),
		Basis: basis,
	}
	ip.PixelLocs = make([]Vec3, nu*nv)
	for j, v := range ip.V {
		row := basis.VHat.Scale(v)
		for i, u := range ip.U {
			ip.PixelLocs[j*nu+i] = basis.UHat.Scale(u).Add(row)
		}
	}
	return ip, nil
}

// Pixel returns the relative world location of pixel (i, j).
func (ip *ImagePlane) Pixel(i, j int) Vec3 { return ip.PixelLocs[j*ip.NU+i] }

// centeredAxis returns (k - n/2)*d for k in [0, n); element n/2 is exactly 0.
func centeredAxis(n int, d float64) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = float64(k-n/2) * d
	}
	return out
}

// wavenumberAxis returns 2*pi*linspace(-1/(2d), 1/(2d), n).
func wavenumberAxis(n int, d float64) []float64 {
	return linspace(-math.Pi/d, math.Pi/d, n)
}

// linspace returns n evenly spaced values from start to stop inclusive. The
// last element is forced to stop to avoid accumulated rounding.
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for k := range out {
		out[k] = start + float64(k)*step
	}
	out[n-1] = stop
	return out
}
