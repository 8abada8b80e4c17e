package model

import "math/cmplx"

// ComplexImage is the backprojection accumulator: NU columns (u axis) by NV
// rows (v axis), stored row-major so that pixel (i, j) lives at j*NU+i.
type ComplexImage struct {
	NU   int
	NV   int
	Data []complex128
}

// NewComplexImage allocates a zero-filled image.
func NewComplexImage(nu, nv int) *ComplexImage {
	return &ComplexImage{NU: nu, NV: nv, Data: make([]complex128, nu*nv)}
}

// Index maps grid coordinates to the flattened pixel index.
func (im *ComplexImage) Index(i, j int) int { return j*im.NU + i }

// At returns the value of pixel (i, j).
func (im *ComplexImage) At(i, j int) complex128 { return im.Data[j*im.NU+i] }

// Peak returns the grid coordinates and magnitude of the brightest pixel.
// Ties resolve to the lowest flattened index.
func (im *ComplexImage) Peak() (i, j int, mag float64) {
	best := -1
	for p, v := range im.Data {
		if a := cmplx.Abs(v); best < 0 || a > mag {
			best, mag = p, a
		}
	}
	if best < 0 {
		return 0, 0, 0
	}
	return best % im.NU, best / im.NU, mag
}
