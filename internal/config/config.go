// Package config loads sarbp settings from defaults, an optional config file,
// SARBP_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/sarbp/core"
)

// EnvPrefix is prepended to every environment override, e.g.
// SARBP_BACKPROJECTION_WORKERS.
const EnvPrefix = "SARBP"

// Config is the full, typed configuration of one run.
type Config struct {
	Imaging        ImagingConfig        `mapstructure:"imaging"`
	Compression    CompressionConfig    `mapstructure:"compression"`
	Backprojection BackprojectionConfig `mapstructure:"backprojection"`
	Output         OutputConfig         `mapstructure:"output"`
	Diagnostics    DiagnosticsConfig    `mapstructure:"diagnostics"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ImagingConfig struct {
	Upsample            int       `mapstructure:"upsample"`
	GridUpsample        bool      `mapstructure:"grid_upsample"`
	ResFactor           float64   `mapstructure:"res_factor"`
	Aspect              float64   `mapstructure:"aspect"`
	Up                  []float64 `mapstructure:"up"`
	ReferencePoint      string    `mapstructure:"reference_point"`
	ReferenceWavenumber string    `mapstructure:"reference_wavenumber"`
}

type CompressionConfig struct {
	Window           string  `mapstructure:"window"`
	SidelobeDB       float64 `mapstructure:"sidelobe_db"`
	CrossRangeWindow bool    `mapstructure:"cross_range_window"`
	Filter           string  `mapstructure:"filter"`
}

type BackprojectionConfig struct {
	Interpolation string `mapstructure:"interpolation"`
	RecenterPhase bool   `mapstructure:"recenter_phase"`
	Workers       int    `mapstructure:"workers"`
}

type OutputConfig struct {
	DBMin float64 `mapstructure:"db_min"`
	DBMax float64 `mapstructure:"db_max"`
}

// DiagnosticsConfig selects intermediate buffers to dump. Dir empty disables
// dumping; an empty Buffers list with a Dir set dumps every buffer.
type DiagnosticsConfig struct {
	Dir     string   `mapstructure:"dir"`
	Prefix  string   `mapstructure:"prefix"`
	Buffers []string `mapstructure:"buffers"`
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"workers":       "backprojection.workers",
	"upsample":      "imaging.upsample",
	"window":        "compression.window",
	"interpolation": "backprojection.interpolation",
	"db-min":        "output.db_min",
	"db-max":        "output.db_max",
	"debug-dir":     "diagnostics.dir",
	"debug-buffers": "diagnostics.buffers",
	"metrics-file":  "metrics.textfile",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
}

// New returns a viper instance seeded with defaults and wired to SARBP_*
// environment variables.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	d := core.DefaultOptions()
	v.SetDefault("imaging.upsample", d.Upsample)
	v.SetDefault("imaging.grid_upsample", d.GridUpsample)
	v.SetDefault("imaging.res_factor", d.ResFactor)
	v.SetDefault("imaging.aspect", d.Aspect)
	v.SetDefault("imaging.up", []float64{d.Up.X, d.Up.Y, d.Up.Z})
	v.SetDefault("imaging.reference_point", string(d.ReferencePoint))
	v.SetDefault("imaging.reference_wavenumber", string(d.ReferenceWavenumber))

	v.SetDefault("compression.window", string(d.Window))
	v.SetDefault("compression.sidelobe_db", d.SidelobeDB)
	v.SetDefault("compression.cross_range_window", d.CrossRangeWindow)
	v.SetDefault("compression.filter", string(d.Filter))

	v.SetDefault("backprojection.interpolation", string(d.Interpolation))
	v.SetDefault("backprojection.recenter_phase", d.RecenterPhase)
	v.SetDefault("backprojection.workers", d.Workers)

	v.SetDefault("output.db_min", d.DBMin)
	v.SetDefault("output.db_max", d.DBMax)

	v.SetDefault("diagnostics.dir", "")
	v.SetDefault("diagnostics.prefix", "sarbp_debug")
	v.SetDefault("diagnostics.buffers", []string{})

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "sarbp")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// RegisterFlags defines the configuration flags on fs. Flag defaults are
// zero values; only flags the user sets override lower layers.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML, TOML or JSON config file")
	fs.Int("workers", 0, "worker goroutines per parallel stage (0 = GOMAXPROCS)")
	fs.Int("upsample", 0, "range oversampling ratio")
	fs.String("window", "", "taper: taylor, hann, hamming, blackman, blackman_harris, nuttall, rectangular")
	fs.String("interpolation", "", "range profile interpolation: linear or nearest")
	fs.Float64("db-min", 0, "lower bound of the dB display range")
	fs.Float64("db-max", 0, "upper bound of the dB display range")
	fs.String("debug-dir", "", "directory for intermediate buffer dumps")
	fs.StringSlice("debug-buffers", nil, "buffers to dump (default all when --debug-dir is set)")
	fs.String("metrics-file", "", "write Prometheus metrics to this textfile after the run")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
}

// BindFlags attaches every known flag present on fs to its configuration key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file at path, then unmarshals and validates
// the merged configuration.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read config %s: %v", core.ErrConfiguration, path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode config: %v", core.ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section. Errors wrap core.ErrConfiguration.
func (c Config) Validate() error {
	opts, err := c.ImagingOptions()
	if err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	known := core.BufferNames()
	for _, name := range c.Diagnostics.Buffers {
		if !slices.Contains(known, name) {
			return fmt.Errorf("%w: unknown diagnostics buffer %q (known: %s)", core.ErrConfiguration, name, strings.Join(known, ", "))
		}
	}
	if len(c.Diagnostics.Buffers) > 0 && c.Diagnostics.Dir == "" {
		return fmt.Errorf("%w: diagnostics.buffers set without diagnostics.dir", core.ErrConfiguration)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", core.ErrConfiguration, c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", core.ErrConfiguration, c.Logging.Format)
	}

	if c.Tracing.Enabled {
		switch strings.ToLower(c.Tracing.Exporter) {
		case "", "stdout", "otlp", "otlpgrpc":
		default:
			return fmt.Errorf("%w: unsupported tracing exporter %q", core.ErrConfiguration, c.Tracing.Exporter)
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("%w: tracing.sample_ratio must be within [0, 1], got %v", core.ErrConfiguration, c.Tracing.SampleRatio)
		}
	}
	return nil
}

// ImagingOptions converts the imaging, compression, backprojection and
// output sections into core.Options.
func (c Config) ImagingOptions() (core.Options, error) {
	var errs []error
	if len(c.Imaging.Up) != 3 {
		errs = append(errs, fmt.Errorf("%w: imaging.up must have 3 components, got %d", core.ErrConfiguration, len(c.Imaging.Up)))
	}
	window, err := core.ParseWindow(c.Compression.Window)
	if err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return core.Options{}, errors.Join(errs...)
	}

	return core.Options{
		Upsample:            c.Imaging.Upsample,
		GridUpsample:        c.Imaging.GridUpsample,
		ResFactor:           c.Imaging.ResFactor,
		Aspect:              c.Imaging.Aspect,
		Up:                  core.Vec3{X: c.Imaging.Up[0], Y: c.Imaging.Up[1], Z: c.Imaging.Up[2]},
		ReferencePoint:      core.ReferencePoint(strings.ToLower(c.Imaging.ReferencePoint)),
		ReferenceWavenumber: core.ReferenceWavenumber(strings.ToLower(c.Imaging.ReferenceWavenumber)),
		Window:              window,
		SidelobeDB:          c.Compression.SidelobeDB,
		CrossRangeWindow:    c.Compression.CrossRangeWindow,
		Filter:              core.FilterKind(strings.ToLower(c.Compression.Filter)),
		Interpolation:       core.Interpolation(strings.ToLower(c.Backprojection.Interpolation)),
		RecenterPhase:       c.Backprojection.RecenterPhase,
		Workers:             c.Backprojection.Workers,
		DBMin:               c.Output.DBMin,
		DBMax:               c.Output.DBMax,
	}, nil
}
