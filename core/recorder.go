package core

// Names of the intermediate buffers a Recorder may be asked to persist.
const (
	BufWindow            = "window"             // [pulses, samples] float64
	BufFilter            = "filter"             // [samples] float64
	BufPhaseFiltered     = "phase_filtered"     // [pulses, samples] complex128
	BufPhasePadded       = "phase_padded"       // [pulses, nfft] complex128, before the shift
	BufProfiles          = "profiles"           // [pulses, nfft] complex128
	BufReferenceRange    = "reference_range"    // [pulses] float64
	BufDifferentialRange = "differential_range" // [pulses, pixels] float64
	BufSamples           = "samples"            // [pulses, pixels] complex128
	BufImage             = "image"              // [nv, nu] complex128, before phase re-reference
	BufFinalImage        = "final_image"        // [nv, nu] complex128
	BufImageDB           = "image_db"           // [nv, nu] float64
)

// BufferNames lists every recordable buffer in pipeline order.
func BufferNames() []string {
	return []string{
		BufWindow, BufFilter, BufPhaseFiltered, BufPhasePadded, BufProfiles,
		BufReferenceRange, BufDifferentialRange, BufSamples,
		BufImage, BufFinalImage, BufImageDB,
	}
}

// Recorder persists intermediate buffers for debugging. Data is a flat
// row-major []float64 or []complex128 matching shape; Record must not retain
// it after returning. Nothing recorded feeds back into the pipeline.
type Recorder interface {
	Enabled(name string) bool
	Record(name string, shape []int, data any) error
}

type nopRecorder struct{}

func (nopRecorder) Enabled(string) bool             { return false }
func (nopRecorder) Record(string, []int, any) error { return nil }

// NopRecorder returns a Recorder with every buffer disabled.
func NopRecorder() Recorder { return nopRecorder{} }

func enabled(rec Recorder, name string) bool {
	return rec != nil && rec.Enabled(name)
}
