package core

import (
	"context"
	"math"
	"math/cmplx"
	"testing"
)

func formImage(t *testing.T, opts Options, targets ...pointTarget) (*Result, *ImagePlane) {
	t.Helper()
	ds := stripmapDataset(64, 32, targets...)
	res, err := NewPipeline(opts, nil).Run(context.Background(), ds)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res, res.Plane
}

func assertPeakNear(t *testing.T, res *Result, wantI, wantJ int) {
	t.Helper()
	i, j, mag := res.Image.Peak()
	if mag == 0 {
		t.Fatalf("image is empty")
	}
	if abs(i-wantI) > 1 || abs(j-wantJ) > 1 {
		t.Fatalf("peak at (%d, %d), want (%d, %d) ± 1", i, j, wantI, wantJ)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestBackproject_PointTargetAtSceneCenter(t *testing.T) {
	res, ip := formImage(t, DefaultOptions(), pointTarget{amplitude: 1})
	if ip.NU != 64 || ip.NV != 32 {
		t.Fatalf("grid = (%d, %d), want (64, 32)", ip.NU, ip.NV)
	}
	assertPeakNear(t, res, ip.NU/2, ip.NV/2)
}

func TestBackproject_OffsetTargets(t *testing.T) {
	targets := []Vec3{
		{X: -4},
		{Y: -3},
		{X: 5, Y: 2},
	}
	for _, pos := range targets {
		res, ip := formImage(t, DefaultOptions(), pointTarget{pos: pos, amplitude: 1})
		wi, wj := expectedPixel(ip, pos)
		assertPeakNear(t, res, wi, wj)
	}
}

func TestBackproject_InterpolationModes(t *testing.T) {
	target := pointTarget{pos: Vec3{X: 2, Y: -1}, amplitude: 1}
	for _, mode := range []Interpolation{InterpLinear, InterpNearest} {
		opts := DefaultOptions()
		opts.Interpolation = mode
		res, ip := formImage(t, opts, target)
		wi, wj := expectedPixel(ip, target.pos)
		assertPeakNear(t, res, wi, wj)
	}
}

func TestBackproject_AlternateReferences(t *testing.T) {
	opts := DefaultOptions()
	opts.ReferenceWavenumber = KRefCenterFrequency
	opts.Window = WindowHamming
	opts.RecenterPhase = false
	res, ip := formImage(t, opts, pointTarget{amplitude: 2})
	assertPeakNear(t, res, ip.NU/2, ip.NV/2)
}

func TestBackproject_WorkerCountsAgree(t *testing.T) {
	target := pointTarget{pos: Vec3{X: 1, Y: 1}, amplitude: 1}
	opts := DefaultOptions()

	opts.Workers = 1
	serial, _ := formImage(t, opts, target)
	_, _, peak := serial.Image.Peak()

	for _, w := range []int{2, 3, 7, 0} {
		opts.Workers = w
		par, _ := formImage(t, opts, target)
		for p := range serial.Image.Data {
			if d := cmplx.Abs(serial.Image.Data[p] - par.Image.Data[p]); d > 1e-9*peak {
				t.Fatalf("workers=%d: pixel %d differs by %g", w, p, d)
			}
		}
	}
}

func TestBackproject_RecenterPreservesMagnitude(t *testing.T) {
	ds := stripmapDataset(64, 32, pointTarget{pos: Vec3{X: 3}, amplitude: 1})
	rec := newMemRecorder(BufImage, BufFinalImage, BufReferenceRange)
	if _, err := NewPipeline(DefaultOptions(), nil, WithRecorder(rec)).Run(context.Background(), ds); err != nil {
		t.Fatalf("Run: %v", err)
	}
	before := rec.buffers[BufImage].([]complex128)
	after := rec.buffers[BufFinalImage].([]complex128)
	changed := false
	for p := range before {
		if math.Abs(cmplx.Abs(before[p])-cmplx.Abs(after[p])) > 1e-9*(1+cmplx.Abs(before[p])) {
			t.Fatalf("pixel %d magnitude changed: %v -> %v", p, cmplx.Abs(before[p]), cmplx.Abs(after[p]))
		}
		if before[p] != after[p] {
			changed = true
		}
	}
	if !changed {
		t.Fatalf("phase re-reference left the image untouched")
	}
	if got := len(rec.buffers[BufReferenceRange].([]float64)); got != 32 {
		t.Fatalf("reference_range has %d values, want 32", got)
	}
}

func TestSampleProfile(t *testing.T) {
	q := []complex128{0, 10, 20, 30}
	cases := []struct {
		x    float64
		mode Interpolation
		want complex128
		ok   bool
	}{
		{1.25, InterpLinear, 12.5, true},
		{1.25, InterpNearest, 10, true},
		{1.5, InterpNearest, 20, true},
		{0, InterpLinear, 0, true},
		{3, InterpLinear, 30, true},
		{-0.01, InterpLinear, 0, false},
		{3.01, InterpNearest, 0, false},
		{math.NaN(), InterpLinear, 0, false},
	}
	for _, tc := range cases {
		got, ok := sampleProfile(q, tc.x, tc.mode)
		if ok != tc.ok || (ok && cmplx.Abs(got-tc.want) > 1e-12) {
			t.Fatalf("sampleProfile(%v, %s) = %v, %v; want %v, %v", tc.x, tc.mode, got, ok, tc.want, tc.ok)
		}
	}
}

func TestBackproject_OutOfSwathContributesNothing(t *testing.T) {
	ip, err := NewImagePlane(4, 1, 0.5, Vec3{Y: -1000, Z: 500}, DefaultOptions())
	if err != nil {
		t.Fatalf("NewImagePlane: %v", err)
	}
	profile := make([]complex128, 8)
	for m := range profile {
		profile[m] = 1
	}
	in := BackprojectInput{
		Plane:    ip,
		Profiles: &Compressed{NFFT: 8, Samples: 4, Rows: [][]complex128{profile}},
		Track:    []Vec3{{Y: -1000, Z: 500}},
		// Bins this narrow push every off-centre pixel outside the profile.
		BinWidth: 1e-6,
		KRef:     0,
	}
	opts := DefaultOptions()
	opts.RecenterPhase = false
	img, err := Backproject(context.Background(), in, opts, nil)
	if err != nil {
		t.Fatalf("Backproject: %v", err)
	}
	if got := img.At(ip.NU/2, 0); got != 1 {
		t.Fatalf("centre pixel = %v, want 1", got)
	}
	if got := img.At(0, 0); got != 0 {
		t.Fatalf("out-of-swath pixel = %v, want 0", got)
	}
}

func TestBackproject_RejectsMismatchedTrack(t *testing.T) {
	ip, _ := NewImagePlane(4, 2, 0.5, Vec3{Y: -1000, Z: 500}, DefaultOptions())
	in := BackprojectInput{
		Plane:    ip,
		Profiles: &Compressed{NFFT: 8, Samples: 4, Rows: make([][]complex128, 2)},
		Track:    []Vec3{{Y: -1000}},
		BinWidth: 0.25,
	}
	if _, err := Backproject(context.Background(), in, DefaultOptions(), nil); err == nil {
		t.Fatalf("expected error for track/profile mismatch")
	}
}
