// Package imageio writes formed images to disk.
package imageio

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// WritePNG encodes img as an 8-bit grayscale PNG at path. The image is
// written to a temporary file in the same directory and renamed into place,
// so a failed run never leaves a partial file behind.
func WritePNG(path string, img *image.Gray) error {
	if img == nil {
		return fmt.Errorf("imageio: nil image")
	}
	if img.Rect.Empty() {
		return fmt.Errorf("imageio: empty image %v", img.Rect)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("imageio: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("imageio: create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(tmp, img); err != nil {
		tmp.Close()
		return fmt.Errorf("imageio: encode %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("imageio: chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("imageio: close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("imageio: rename %s: %w", path, err)
	}
	return nil
}

// ReadPNG decodes a grayscale PNG written by WritePNG.
func ReadPNG(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: open %s: %w", path, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("imageio: decode %s: %w", path, err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return nil, fmt.Errorf("imageio: %s is %T, want 8-bit grayscale", path, img)
	}
	return gray, nil
}
