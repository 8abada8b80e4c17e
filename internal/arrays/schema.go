// Package arrays reads and writes the NumPy .npy files that make up a SAR
// collection on disk, and dumps intermediate pipeline buffers in the same
// format.
package arrays

// Array names, as used in error messages and the schema table.
const (
	Bandwidth            = "bandwidth"
	ChirpRate            = "chirprate"
	RangeResolution      = "range_resolution"
	CenterFrequency      = "center_frequency"
	SampleCount          = "sample_count"
	PulseCount           = "pulse_count"
	FrequencyAxis        = "frequency_axis"
	RadialWavenumber     = "radial_wavenumber"
	CrossRangeWavenumber = "cross_range_wavenumber"
	SceneCenter          = "scene_center"
	TimeAxis             = "time_axis"
	PlatformPosition     = "platform_position"
	PhaseHistory         = "phase_history"
)

// Spec describes one input array: its file name, accepted element types and
// expected shape. Scalar arrays accept shape () or (1,).
type Spec struct {
	Name   string
	File   string
	DTypes []string
	Scalar bool
	// Shape returns the expected shape given the sample and pulse counts.
	// Nil for scalars.
	Shape func(ns, np int) []int
}

// Schema lists every array of a collection, scalars first so that the
// counts needed to check the remaining shapes are read before them.
var Schema = []Spec{
	{Name: Bandwidth, File: "B_IF.npy", DTypes: []string{"<f4"}, Scalar: true},
	{Name: ChirpRate, File: "chirprate.npy", DTypes: []string{"<f8"}, Scalar: true},
	{Name: RangeResolution, File: "delta_r.npy", DTypes: []string{"<f8"}, Scalar: true},
	{Name: CenterFrequency, File: "f_0.npy", DTypes: []string{"<f8"}, Scalar: true},
	{Name: SampleCount, File: "nsamples.npy", DTypes: []string{"<i8", "<i4"}, Scalar: true},
	{Name: PulseCount, File: "npulses.npy", DTypes: []string{"<i8", "<i4"}, Scalar: true},
	{Name: FrequencyAxis, File: "freq.npy", DTypes: []string{"<f4"}, Shape: samplesShape},
	{Name: RadialWavenumber, File: "k_r.npy", DTypes: []string{"<f4"}, Shape: samplesShape},
	{Name: CrossRangeWavenumber, File: "k_y.npy", DTypes: []string{"<f8"}, Shape: pulsesShape},
	{Name: SceneCenter, File: "R_c.npy", DTypes: []string{"<f4"}, Shape: func(int, int) []int { return []int{3} }},
	{Name: TimeAxis, File: "t.npy", DTypes: []string{"<f8"}, Shape: samplesShape},
	{Name: PlatformPosition, File: "pos.npy", DTypes: []string{"<f4"}, Shape: func(_, np int) []int { return []int{np, 3} }},
	{Name: PhaseHistory, File: "phs.npy", DTypes: []string{"<c8"}, Shape: func(ns, np int) []int { return []int{np, ns} }},
}

func samplesShape(ns, _ int) []int { return []int{ns} }
func pulsesShape(_, np int) []int  { return []int{np} }

// Lookup returns the schema entry for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Schema {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
