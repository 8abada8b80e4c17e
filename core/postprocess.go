package core

import (
	"fmt"
	"image"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/sarbp/model"
)

// ToDB converts the image to decibels relative to its brightest pixel and
// clamps to [dbMin, dbMax]. Zero-magnitude pixels, and every pixel of an
// all-zero image, map to dbMin.
func ToDB(img *model.ComplexImage, dbMin, dbMax float64) []float64 {
	mag := make([]float64, len(img.Data))
	for p, v := range img.Data {
		mag[p] = cmplx.Abs(v)
	}
	out := make([]float64, len(mag))
	if len(mag) == 0 {
		return out
	}
	peak := floats.Max(mag)
	for p, m := range mag {
		db := dbMin
		if peak > 0 && m > 0 {
			db = 20 * math.Log10(m/peak)
		}
		out[p] = clamp(db, dbMin, dbMax)
	}
	return out
}

// ToRaster quantises a dB image to 8 bits: the clamped [dbMin, dbMax] range
// maps linearly onto [0, 255] with rounding. The raster is nu wide and nv
// tall; row j holds v-axis sample j.
func ToRaster(db []float64, nu, nv int, dbMin, dbMax float64) (*image.Gray, error) {
	if len(db) != nu*nv {
		return nil, fmt.Errorf("%w: dB image has %d pixels, want %dx%d", ErrConfiguration, len(db), nu, nv)
	}
	if !(dbMin < dbMax) {
		return nil, fmt.Errorf("%w: db_min (%v) must be below db_max (%v)", ErrConfiguration, dbMin, dbMax)
	}
	raster := image.NewGray(image.Rect(0, 0, nu, nv))
	scale := 255 / (dbMax - dbMin)
	for j := 0; j < nv; j++ {
		row := raster.Pix[j*raster.Stride : j*raster.Stride+nu]
		for i := range row {
			row[i] = uint8(math.Round((clamp(db[j*nu+i], dbMin, dbMax) - dbMin) * scale))
		}
	}
	return raster, nil
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
