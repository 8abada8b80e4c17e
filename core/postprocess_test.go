package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/sarbp/model"
)

func TestToDB_AllZeroImage(t *testing.T) {
	img := model.NewComplexImage(4, 2)
	db := ToDB(img, -30, 0)
	for p, v := range db {
		if v != -30 {
			t.Fatalf("db[%d] = %v, want -30", p, v)
		}
	}
	raster, err := ToRaster(db, 4, 2, -30, 0)
	if err != nil {
		t.Fatalf("ToRaster: %v", err)
	}
	for p, v := range raster.Pix {
		if v != 0 {
			t.Fatalf("raster[%d] = %d, want 0", p, v)
		}
	}
}

func TestToDB_RelativeToPeak(t *testing.T) {
	img := &model.ComplexImage{NU: 4, NV: 1, Data: []complex128{10, complex(0, 1), 0, 1e-3}}
	db := ToDB(img, -50, 0)
	want := []float64{0, -20, -50, -50}
	for p := range want {
		if math.Abs(db[p]-want[p]) > 1e-9 {
			t.Fatalf("db[%d] = %v, want %v", p, db[p], want[p])
		}
	}
}

func TestToRaster_Quantisation(t *testing.T) {
	db := []float64{-30, -15, 0, 5, -40, math.NaN()}
	raster, err := ToRaster(db, 3, 2, -30, 0)
	if err != nil {
		t.Fatalf("ToRaster: %v", err)
	}
	if b := raster.Bounds(); b.Dx() != 3 || b.Dy() != 2 {
		t.Fatalf("raster is %dx%d, want 3x2", b.Dx(), b.Dy())
	}
	want := [][]uint8{{0, 128, 255}, {255, 0, 0}}
	for j, row := range want {
		for i, v := range row {
			if got := raster.GrayAt(i, j).Y; got != v {
				t.Fatalf("raster(%d, %d) = %d, want %d", i, j, got, v)
			}
		}
	}
}

func TestToRaster_Errors(t *testing.T) {
	if _, err := ToRaster(make([]float64, 5), 2, 2, -30, 0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for size mismatch, got %v", err)
	}
	if _, err := ToRaster(make([]float64, 4), 2, 2, 0, 0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration for empty dB range, got %v", err)
	}
}

func TestPipeline_DBWithinBounds(t *testing.T) {
	opts := DefaultOptions()
	opts.DBMin, opts.DBMax = -40, 0
	ds := stripmapDataset(64, 32, pointTarget{pos: Vec3{X: -2, Y: 1}, amplitude: 1}, pointTarget{pos: Vec3{X: 6, Y: -4}, amplitude: 0.3})
	res, err := NewPipeline(opts, nil).Run(context.Background(), ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	sawPeak := false
	for p, v := range res.DB {
		if v < opts.DBMin || v > opts.DBMax {
			t.Fatalf("db[%d] = %v outside [%v, %v]", p, v, opts.DBMin, opts.DBMax)
		}
		if v == 0 {
			sawPeak = true
		}
	}
	if !sawPeak {
		t.Fatalf("no pixel at 0 dB")
	}
	i, j, _ := res.Image.Peak()
	if got := res.Raster.GrayAt(i, j).Y; got != 255 {
		t.Fatalf("raster at peak = %d, want 255", got)
	}
}
