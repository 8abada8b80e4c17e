package arrays

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/signalsfoundry/sarbp/model"
)

// SaveDataset writes ds to dir in the layout LoadDataset reads, narrowing
// each array to the first element type its schema entry accepts.
func SaveDataset(dir string, ds *model.Dataset) error {
	if err := ds.Validate(); err != nil {
		return fmt.Errorf("SaveDataset: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("SaveDataset: %w", err)
	}

	ns, np := ds.SampleCount, ds.PulseCount
	pos := make([]float64, 0, 3*np)
	for _, p := range ds.Track {
		pos = append(pos, p.X, p.Y, p.Z)
	}
	rc := ds.SceneCenter

	values := map[string][]float64{
		Bandwidth:            {ds.Bandwidth},
		ChirpRate:            {ds.ChirpRate},
		RangeResolution:      {ds.RangeResolution},
		CenterFrequency:      {ds.CenterFrequency},
		SampleCount:          {float64(ns)},
		PulseCount:           {float64(np)},
		FrequencyAxis:        ds.FrequencyAxis,
		RadialWavenumber:     ds.RadialWavenumber,
		CrossRangeWavenumber: ds.CrossRangeWavenumber,
		SceneCenter:          {rc.X, rc.Y, rc.Z},
		TimeAxis:             ds.TimeAxis,
		PlatformPosition:     pos,
	}

	for _, spec := range Schema {
		shape := []int{1}
		if !spec.Scalar {
			shape = spec.Shape(ns, np)
		}
		var data any
		if spec.Name == PhaseHistory {
			data = ds.Phase.Data
		} else {
			var err error
			if data, err = narrow(values[spec.Name], spec.DTypes[0]); err != nil {
				return fmt.Errorf("SaveDataset: %s: %w", spec.Name, err)
			}
		}
		if err := WriteFile(filepath.Join(dir, spec.File), shape, data); err != nil {
			return fmt.Errorf("SaveDataset: %w", err)
		}
	}
	return nil
}

func narrow(v []float64, dtype string) (any, error) {
	switch dtype {
	case "<f4":
		out := make([]float32, len(v))
		for i, x := range v {
			out[i] = float32(x)
		}
		return out, nil
	case "<f8":
		return v, nil
	case "<i4":
		out := make([]int32, len(v))
		for i, x := range v {
			out[i] = int32(x)
		}
		return out, nil
	case "<i8":
		out := make([]int64, len(v))
		for i, x := range v {
			out[i] = int64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot narrow to %s", dtype)
	}
}
