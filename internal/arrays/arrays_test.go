package arrays

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/sarbp/model"
)

// testDataset returns a small, valid collection whose values are not all
// exactly representable in float32.
func testDataset(ns, np int) *model.Dataset {
	ds := &model.Dataset{
		Bandwidth:            300e6,
		ChirpRate:            3e14,
		RangeResolution:      0.4996540966666667,
		CenterFrequency:      10e9,
		SampleCount:          ns,
		PulseCount:           np,
		FrequencyAxis:        make([]float64, ns),
		RadialWavenumber:     make([]float64, ns),
		CrossRangeWavenumber: make([]float64, np),
		TimeAxis:             make([]float64, ns),
		Track:                make(model.PlatformTrack, np),
		Phase:                model.NewPhaseHistory(np, ns),
	}
	for n := 0; n < ns; n++ {
		ds.FrequencyAxis[n] = 10e9 + float64(n-ns/2)*300e6/float64(ns)
		ds.RadialWavenumber[n] = 0.4191 * ds.FrequencyAxis[n] / 1e9
		ds.TimeAxis[n] = float64(n-ns/2) * 1.5625e-8
	}
	for i := 0; i < np; i++ {
		ds.CrossRangeWavenumber[i] = float64(i-np/2) * 0.0123
		ds.Track[i] = model.Position{X: float64(i) * 0.5, Y: -1000.25, Z: 500.125}
		for n := 0; n < ns; n++ {
			ds.Phase.Pulse(i)[n] = complex(float32(i), float32(-n))
		}
	}
	ds.SceneCenter = ds.Track.Center()
	return ds
}

func f32(xs []float64) []float32 {
	out := make([]float32, len(xs))
	for i, x := range xs {
		out[i] = float32(x)
	}
	return out
}

func writeArray(t *testing.T, dir, file string, shape []int, data any) {
	t.Helper()
	require.NoError(t, WriteFile(filepath.Join(dir, file), shape, data))
}

func savedDir(t *testing.T) (string, *model.Dataset) {
	t.Helper()
	dir := t.TempDir()
	ds := testDataset(8, 4)
	require.NoError(t, SaveDataset(dir, ds))
	return dir, ds
}

func TestWriteNPYHeaderLayout(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		shape []int
		data  any
		tuple string
		descr string
	}{
		{"matrix", []int{2, 3}, make([]float64, 6), "(2, 3)", "<f8"},
		{"vector", []int{4}, make([]complex64, 4), "(4,)", "<c8"},
		{"scalar", nil, []int64{7}, "()", "<i8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			require.NoError(t, WriteNPY(&buf, tc.shape, tc.data))

			raw := buf.Bytes()
			require.True(t, bytes.HasPrefix(raw, npyMagic))
			assert.Equal(t, []byte{1, 0}, raw[6:8])

			hlen := int(binary.LittleEndian.Uint16(raw[8:10]))
			assert.Zero(t, (10+hlen)%64, "data must start on a 64-byte boundary")
			header := string(raw[10 : 10+hlen])
			assert.True(t, strings.HasSuffix(header, "\n"))
			assert.Contains(t, header, "'descr': '"+tc.descr+"'")
			assert.Contains(t, header, "'fortran_order': False")
			assert.Contains(t, header, "'shape': "+tc.tuple)
		})
	}
}

func TestWriteNPYRejectsBadInput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.Error(t, WriteNPY(&buf, []int{3}, make([]float64, 4)))
	assert.Error(t, WriteNPY(&buf, []int{-1}, make([]float64, 0)))
	assert.Error(t, WriteNPY(&buf, []int{2}, []string{"a", "b"}))
}

func TestWriteNPYReadableByNPYIO(t *testing.T) {
	t.Parallel()

	want := []complex64{1 + 2i, -3, 4i, 0.5 - 0.25i, 7, 8}
	var buf bytes.Buffer
	require.NoError(t, WriteNPY(&buf, []int{2, 3}, want))

	r, err := npyio.NewReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "<c8", r.Header.Descr.Type)
	assert.False(t, r.Header.Descr.Fortran)
	assert.Equal(t, []int{2, 3}, r.Header.Descr.Shape)

	var got []complex64
	require.NoError(t, r.Read(&got))
	assert.Equal(t, want, got)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir, want := savedDir(t)
	got, err := LoadDataset(dir)
	require.NoError(t, err)

	assert.Equal(t, want.SampleCount, got.SampleCount)
	assert.Equal(t, want.PulseCount, got.PulseCount)
	assert.Equal(t, float64(float32(want.Bandwidth)), got.Bandwidth)
	assert.Equal(t, want.ChirpRate, got.ChirpRate)
	assert.Equal(t, want.RangeResolution, got.RangeResolution)
	assert.Equal(t, want.CenterFrequency, got.CenterFrequency)

	assert.Equal(t, f32(want.FrequencyAxis), f32(got.FrequencyAxis))
	assert.Equal(t, f32(want.RadialWavenumber), f32(got.RadialWavenumber))
	assert.Equal(t, want.CrossRangeWavenumber, got.CrossRangeWavenumber)
	assert.Equal(t, want.TimeAxis, got.TimeAxis)
	assert.Equal(t, want.Track, got.Track)
	assert.Equal(t, want.SceneCenter, got.SceneCenter)
	assert.Equal(t, want.Phase, got.Phase)

	for _, spec := range Schema {
		assert.FileExists(t, filepath.Join(dir, spec.File))
	}
}

func TestLoadAcceptsZeroDimScalarsAndInt32Counts(t *testing.T) {
	t.Parallel()

	dir, want := savedDir(t)
	writeArray(t, dir, "nsamples.npy", nil, []int32{int32(want.SampleCount)})
	writeArray(t, dir, "f_0.npy", nil, []float64{want.CenterFrequency})

	got, err := LoadDataset(dir)
	require.NoError(t, err)
	assert.Equal(t, want.SampleCount, got.SampleCount)
	assert.Equal(t, want.CenterFrequency, got.CenterFrequency)
}

func TestLoadRejectsMalformedArrays(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(t *testing.T, dir string)
		wantMsg []string
	}{
		{
			name: "frequency axis too short",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "freq.npy", []int{7}, make([]float32, 7))
			},
			wantMsg: []string{"frequency_axis", "freq.npy", "shape [7]"},
		},
		{
			name: "phase history transposed",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "phs.npy", []int{8, 4}, make([]complex64, 32))
			},
			wantMsg: []string{"phase_history", "phs.npy"},
		},
		{
			name: "wrong element type",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "k_r.npy", []int{8}, make([]float64, 8))
			},
			wantMsg: []string{"radial_wavenumber", "k_r.npy", "<f8"},
		},
		{
			name: "complex128 phase history",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "phs.npy", []int{4, 8}, make([]complex128, 32))
			},
			wantMsg: []string{"phase_history", "<c16"},
		},
		{
			name: "missing file",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.Remove(filepath.Join(dir, "t.npy")))
			},
			wantMsg: []string{"time_axis", "t.npy"},
		},
		{
			name: "zero pulses",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "npulses.npy", []int{1}, []int64{0})
			},
			wantMsg: []string{"pulse_count", "must be positive"},
		},
		{
			name: "scalar with two values",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "delta_r.npy", []int{2}, []float64{0.5, 0.5})
			},
			wantMsg: []string{"range_resolution", "want a scalar"},
		},
		{
			name: "positions not triples",
			mutate: func(t *testing.T, dir string) {
				writeArray(t, dir, "pos.npy", []int{4, 2}, make([]float32, 8))
			},
			wantMsg: []string{"platform_position", "pos.npy"},
		},
		{
			name: "fortran order",
			mutate: func(t *testing.T, dir string) {
				writeFortran(t, filepath.Join(dir, "R_c.npy"))
			},
			wantMsg: []string{"scene_center", "Fortran"},
		},
		{
			name: "not an npy file",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "k_y.npy"), []byte("plain text"), 0o644))
			},
			wantMsg: []string{"cross_range_wavenumber", "k_y.npy"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			dir, _ := savedDir(t)
			tc.mutate(t, dir)

			ds, err := LoadDataset(dir)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
			for _, msg := range tc.wantMsg {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

// writeFortran writes a 3-element float32 vector flagged as Fortran
// ordered.
func writeFortran(t *testing.T, path string) {
	t.Helper()
	header := padHeader("{'descr': '<f4', 'fortran_order': True, 'shape': (3,), }")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := bufio.NewWriter(f)
	w.Write(npyMagic)
	w.Write([]byte{1, 0})
	binary.Write(w, binary.LittleEndian, uint16(len(header)))
	w.WriteString(header)
	binary.Write(w, binary.LittleEndian, []float32{1, 2, 3})
	require.NoError(t, w.Flush())
}

func TestSaveDatasetRejectsInvalid(t *testing.T) {
	t.Parallel()

	ds := testDataset(8, 4)
	ds.TimeAxis = ds.TimeAxis[:5]
	err := SaveDataset(t.TempDir(), ds)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestSchemaLookup(t *testing.T) {
	t.Parallel()

	spec, ok := Lookup(PhaseHistory)
	require.True(t, ok)
	assert.Equal(t, "phs.npy", spec.File)
	assert.Equal(t, []int{4, 8}, spec.Shape(8, 4))

	_, ok = Lookup("nope")
	assert.False(t, ok)

	seenData := false
	for _, s := range Schema {
		if !s.Scalar {
			seenData = true
			continue
		}
		assert.False(t, seenData, "scalar %s listed after a data array", s.Name)
	}
}

func TestDumperRecordsEnabledBuffers(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "debug")
	d, err := NewDumper(dir, "", []string{"profiles", "image_db"})
	require.NoError(t, err)
	d.SetRunID("run-1")

	assert.True(t, d.Enabled("profiles"))
	assert.False(t, d.Enabled("window"))

	require.NoError(t, d.Record("profiles", []int{2, 2}, []complex128{1, 2, 3, 4}))
	require.NoError(t, d.Record("window", []int{3}, []float64{1, 1, 1}))
	require.NoError(t, d.Record("image_db", []int{1, 3}, []float64{-70, -3, 0}))

	assert.FileExists(t, filepath.Join(dir, "sarbp_debug-profiles.npy"))
	assert.NoFileExists(t, filepath.Join(dir, "sarbp_debug-window.npy"))

	f, err := os.Open(filepath.Join(dir, "sarbp_debug-image_db.npy"))
	require.NoError(t, err)
	defer f.Close()
	r, err := npyio.NewReader(f)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, r.Header.Descr.Shape)
	var db []float64
	require.NoError(t, r.Read(&db))
	assert.Equal(t, []float64{-70, -3, 0}, db)

	require.NoError(t, d.WriteManifest())
	m, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, []ManifestEntry{
		{Name: "profiles", File: "sarbp_debug-profiles.npy", Shape: []int{2, 2}, DType: "<c16"},
		{Name: "image_db", File: "sarbp_debug-image_db.npy", Shape: []int{1, 3}, DType: "<f8"},
	}, m.Buffers)
}

func TestDumperAllBuffersByDefault(t *testing.T) {
	t.Parallel()

	d, err := NewDumper(t.TempDir(), "run", nil)
	require.NoError(t, err)
	assert.True(t, d.Enabled("anything"))

	require.Error(t, d.Record("bad", []int{1}, []string{"x"}))
	assert.Empty(t, d.Manifest().Buffers)

	_, err = NewDumper("", "", nil)
	assert.Error(t, err)
}

func TestReadManifestMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadManifest(t.TempDir())
	assert.Error(t, err)
}
