package arrays

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var npyMagic = []byte("\x93NUMPY")

// DType returns the little-endian NumPy descriptor for a supported slice.
func DType(data any) (string, int, error) {
	switch v := data.(type) {
	case []float32:
		return "<f4", len(v), nil
	case []float64:
		return "<f8", len(v), nil
	case []complex64:
		return "<c8", len(v), nil
	case []complex128:
		return "<c16", len(v), nil
	case []int32:
		return "<i4", len(v), nil
	case []int64:
		return "<i8", len(v), nil
	default:
		return "", 0, fmt.Errorf("arrays: unsupported element type %T", data)
	}
}

// WriteNPY encodes data as a C-ordered, version 1.0 .npy stream with the
// given shape. An empty shape writes a 0-d scalar.
func WriteNPY(w io.Writer, shape []int, data any) error {
	descr, n, err := DType(data)
	if err != nil {
		return err
	}
	want := 1
	for _, d := range shape {
		if d < 0 {
			return fmt.Errorf("arrays: negative dimension in shape %v", shape)
		}
		want *= d
	}
	if want != n {
		return fmt.Errorf("arrays: shape %v needs %d elements, got %d", shape, want, n)
	}

	header := npyHeader(descr, shape)
	if len(header) > 0xffff {
		return fmt.Errorf("arrays: header of %d bytes exceeds the version 1.0 limit", len(header))
	}

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)
	if err := binary.Write(bw, binary.LittleEndian, data); err != nil {
		return fmt.Errorf("arrays: encode data: %w", err)
	}
	return bw.Flush()
}

// npyHeader renders the header dictionary, padded with spaces and a
// trailing newline so that the data starts on a 64-byte boundary.
func npyHeader(descr string, shape []int) string {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	tuple := "(" + strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	tuple += ")"

	return padHeader(fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': %s, }", descr, tuple))
}

func padHeader(dict string) string {
	// magic(6) + version(2) + length(2) precede the dictionary.
	const prefix = 10
	total := prefix + len(dict) + 1
	if pad := total % 64; pad != 0 {
		dict += strings.Repeat(" ", 64-pad)
	}
	return dict + "\n"
}

// WriteFile writes data to path as a .npy file. The file is written to a
// temporary name in the same directory and renamed into place.
func WriteFile(path string, shape []int, data any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("arrays: create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteNPY(tmp, shape, data); err != nil {
		tmp.Close()
		return fmt.Errorf("arrays: write %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("arrays: chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("arrays: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("arrays: rename %s: %w", path, err)
	}
	return nil
}
