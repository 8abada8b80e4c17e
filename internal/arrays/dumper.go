package arrays

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the index written next to dumped buffers.
const ManifestFile = "manifest.yaml"

// Manifest indexes the buffers dumped during one run.
type Manifest struct {
	RunID   string          `yaml:"run_id,omitempty"`
	Buffers []ManifestEntry `yaml:"buffers"`
}

type ManifestEntry struct {
	Name  string `yaml:"name"`
	File  string `yaml:"file"`
	Shape []int  `yaml:"shape,flow"`
	DType string `yaml:"dtype"`
}

// Dumper writes intermediate pipeline buffers as <dir>/<prefix>-<name>.npy
// and keeps a manifest of what it wrote. It implements core.Recorder.
type Dumper struct {
	dir    string
	prefix string
	only   map[string]bool

	mu       sync.Mutex
	manifest Manifest
}

// NewDumper creates dir if needed. An empty buffers list enables every
// buffer.
func NewDumper(dir, prefix string, buffers []string) (*Dumper, error) {
	if dir == "" {
		return nil, fmt.Errorf("arrays: dump directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("arrays: create dump directory: %w", err)
	}
	if prefix == "" {
		prefix = "sarbp_debug"
	}
	d := &Dumper{dir: dir, prefix: prefix}
	if len(buffers) > 0 {
		d.only = make(map[string]bool, len(buffers))
		for _, b := range buffers {
			d.only[b] = true
		}
	}
	return d, nil
}

// SetRunID records the run identifier in the manifest.
func (d *Dumper) SetRunID(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifest.RunID = id
}

// Enabled reports whether name should be dumped.
func (d *Dumper) Enabled(name string) bool {
	return d.only == nil || d.only[name]
}

// Record writes one buffer. Data is written before Record returns.
func (d *Dumper) Record(name string, shape []int, data any) error {
	if !d.Enabled(name) {
		return nil
	}
	dtype, _, err := DType(data)
	if err != nil {
		return err
	}
	file := fmt.Sprintf("%s-%s.npy", d.prefix, name)
	if err := WriteFile(filepath.Join(d.dir, file), shape, data); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifest.Buffers = append(d.manifest.Buffers, ManifestEntry{
		Name:  name,
		File:  file,
		Shape: slices.Clone(shape),
		DType: dtype,
	})
	return nil
}

// Manifest returns a copy of the entries recorded so far.
func (d *Dumper) Manifest() Manifest {
	d.mu.Lock()
	defer d.mu.Unlock()
	m := d.manifest
	m.Buffers = slices.Clone(d.manifest.Buffers)
	return m
}

// WriteManifest writes manifest.yaml into the dump directory.
func (d *Dumper) WriteManifest() error {
	out, err := yaml.Marshal(d.Manifest())
	if err != nil {
		return fmt.Errorf("arrays: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, ManifestFile), out, 0o644); err != nil {
		return fmt.Errorf("arrays: write manifest: %w", err)
	}
	return nil
}

// ReadManifest parses a manifest.yaml written by WriteManifest.
func ReadManifest(dir string) (Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("arrays: read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("arrays: decode manifest: %w", err)
	}
	return m, nil
}
