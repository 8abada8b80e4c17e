package core

import (
	"math"
	"math/cmplx"

	"github.com/signalsfoundry/sarbp/model"
)

const (
	testCenterFrequency = 10e9
	testBandwidth       = 300e6
)

type pointTarget struct {
	pos       Vec3
	amplitude float64
}

// stripmapDataset builds a flat, straight, broadside collection at
// y = -1000 m, z = 500 m with the aperture centred on x = 0. Targets sit in
// the z = 0 plane. With 64 samples and 32 pulses 0.5 m apart the range
// resolution is 0.5 m and the cross-range resolution about 1 m.
func stripmapDataset(samples, pulses int, targets ...pointTarget) *model.Dataset {
	const spacing = 0.5
	ds := &model.Dataset{
		Bandwidth:            testBandwidth,
		ChirpRate:            testBandwidth / 1e-6,
		RangeResolution:      SpeedOfLight / (2 * testBandwidth),
		CenterFrequency:      testCenterFrequency,
		SampleCount:          samples,
		PulseCount:           pulses,
		FrequencyAxis:        make([]float64, samples),
		RadialWavenumber:     make([]float64, samples),
		CrossRangeWavenumber: make([]float64, pulses),
		TimeAxis:             make([]float64, samples),
		Track:                make(model.PlatformTrack, pulses),
		Phase:                model.NewPhaseHistory(pulses, samples),
	}
	for n := 0; n < samples; n++ {
		f := testCenterFrequency + float64(n-samples/2)*testBandwidth/float64(samples)
		ds.FrequencyAxis[n] = f
		ds.RadialWavenumber[n] = 4 * math.Pi * f / SpeedOfLight
		ds.TimeAxis[n] = float64(n-samples/2) * 1e-6 / float64(samples)
	}
	for i := 0; i < pulses; i++ {
		x := (float64(i) - float64(pulses-1)/2) * spacing
		ds.Track[i] = model.Position{X: x, Y: -1000, Z: 500}
	}
	ds.SceneCenter = ds.Track.Center()

	for i, p := range ds.Track {
		pos := VecFrom(p)
		row := ds.Phase.Pulse(i)
		for _, tg := range targets {
			dr := pos.DistanceTo(tg.pos) - pos.Norm()
			for n, k := range ds.RadialWavenumber {
				row[n] += complex64(cmplx.Rect(tg.amplitude, -k*dr))
			}
		}
	}
	return ds
}

// expectedPixel returns the grid coordinates the target at world position
// pos should focus to.
func expectedPixel(ip *ImagePlane, pos Vec3) (int, int) {
	u := pos.Dot(ip.UHat)
	v := pos.Dot(ip.VHat)
	return ip.NU/2 + int(math.Round(u/ip.DU)), ip.NV/2 + int(math.Round(v/ip.DV))
}

type memRecorder struct {
	only    map[string]bool
	buffers map[string]any
	shapes  map[string][]int
}

func newMemRecorder(names ...string) *memRecorder {
	r := &memRecorder{buffers: map[string]any{}, shapes: map[string][]int{}}
	if len(names) > 0 {
		r.only = map[string]bool{}
		for _, n := range names {
			r.only[n] = true
		}
	}
	return r
}

func (r *memRecorder) Enabled(name string) bool { return r.only == nil || r.only[name] }

func (r *memRecorder) Record(name string, shape []int, data any) error {
	switch v := data.(type) {
	case []float64:
		r.buffers[name] = append([]float64(nil), v...)
	case []complex128:
		r.buffers[name] = append([]complex128(nil), v...)
	}
	r.shapes[name] = append([]int(nil), shape...)
	return nil
}
