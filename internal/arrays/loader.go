package arrays

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sbinet/npyio"

	"github.com/signalsfoundry/sarbp/model"
)

// array is one decoded .npy file. data holds a slice whose element type
// matches descr exactly.
type array struct {
	spec  Spec
	descr string
	shape []int
	data  any
}

// LoadDataset reads every array of the collection in dir and validates it
// against Schema. Scalars are read first; every other array is checked
// against the sample and pulse counts they declare. Any mismatch returns an
// error wrapping model.ErrInvalidInput that names the array and its file.
func LoadDataset(dir string) (*model.Dataset, error) {
	arrs := make(map[string]*array, len(Schema))
	ns, np := 0, 0

	for _, spec := range Schema {
		a, err := readArray(dir, spec)
		if err != nil {
			return nil, err
		}
		if spec.Scalar {
			if !isScalarShape(a.shape) {
				return nil, invalid(spec, "shape %v, want a scalar", a.shape)
			}
			if _, n, _ := DType(a.data); n != 1 {
				return nil, invalid(spec, "holds %d values, want 1", n)
			}
		} else {
			if ns <= 0 || np <= 0 {
				ns, np = count(arrs[SampleCount]), count(arrs[PulseCount])
				if ns <= 0 {
					return nil, invalid(arrs[SampleCount].spec, "must be positive, got %d", ns)
				}
				if np <= 0 {
					return nil, invalid(arrs[PulseCount].spec, "must be positive, got %d", np)
				}
			}
			if want := spec.Shape(ns, np); !slices.Equal(a.shape, want) {
				return nil, invalid(spec, "shape %v, want %v", a.shape, want)
			}
		}
		arrs[spec.Name] = a
	}

	rc := floats(arrs[SceneCenter])
	pos := floats(arrs[PlatformPosition])
	track := make(model.PlatformTrack, np)
	for i := range track {
		track[i] = model.Position{X: pos[3*i], Y: pos[3*i+1], Z: pos[3*i+2]}
	}

	ds := &model.Dataset{
		Bandwidth:            floats(arrs[Bandwidth])[0],
		ChirpRate:            floats(arrs[ChirpRate])[0],
		RangeResolution:      floats(arrs[RangeResolution])[0],
		CenterFrequency:      floats(arrs[CenterFrequency])[0],
		SampleCount:          ns,
		PulseCount:           np,
		FrequencyAxis:        floats(arrs[FrequencyAxis]),
		RadialWavenumber:     floats(arrs[RadialWavenumber]),
		CrossRangeWavenumber: floats(arrs[CrossRangeWavenumber]),
		SceneCenter:          model.Position{X: rc[0], Y: rc[1], Z: rc[2]},
		TimeAxis:             floats(arrs[TimeAxis]),
		Track:                track,
		Phase: model.PhaseHistory{
			Pulses:  np,
			Samples: ns,
			Data:    arrs[PhaseHistory].data.([]complex64),
		},
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("LoadDataset: %w", err)
	}
	return ds, nil
}

// readArray decodes the file described by spec after checking its memory
// order and element type.
func readArray(dir string, spec Spec) (*array, error) {
	path := filepath.Join(dir, spec.File)
	f, err := os.Open(path)
	if err != nil {
		return nil, invalid(spec, "%v", err)
	}
	defer f.Close()

	r, err := npyio.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, invalid(spec, "read header: %v", err)
	}
	descr := r.Header.Descr
	if descr.Fortran {
		return nil, invalid(spec, "Fortran-ordered arrays are not supported")
	}
	if !slices.Contains(spec.DTypes, descr.Type) {
		return nil, invalid(spec, "dtype %q, want one of %q", descr.Type, spec.DTypes)
	}

	a := &array{spec: spec, descr: descr.Type, shape: slices.Clone(descr.Shape)}
	switch descr.Type {
	case "<f4":
		var v []float32
		err = r.Read(&v)
		a.data = v
	case "<f8":
		var v []float64
		err = r.Read(&v)
		a.data = v
	case "<c8":
		var v []complex64
		err = r.Read(&v)
		a.data = v
	case "<i4":
		var v []int32
		err = r.Read(&v)
		a.data = v
	case "<i8":
		var v []int64
		err = r.Read(&v)
		a.data = v
	default:
		err = fmt.Errorf("no decoder for dtype %q", descr.Type)
	}
	if err != nil {
		return nil, invalid(spec, "read data: %v", err)
	}
	return a, nil
}

func invalid(spec Spec, format string, args ...any) error {
	return fmt.Errorf("%w: %s (%s): %s", model.ErrInvalidInput, spec.Name, spec.File, fmt.Sprintf(format, args...))
}

func isScalarShape(shape []int) bool {
	return len(shape) == 0 || (len(shape) == 1 && shape[0] == 1)
}

// floats widens a real array to float64.
func floats(a *array) []float64 {
	switch v := a.data.(type) {
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out
	case []float64:
		return v
	}
	return nil
}

// count returns the value of an integer scalar.
func count(a *array) int {
	switch v := a.data.(type) {
	case []int32:
		if len(v) > 0 {
			return int(v[0])
		}
	case []int64:
		if len(v) > 0 {
			return int(v[0])
		}
	}
	return 0
}
