// Command sarbp forms a SAR image from a phase-history collection by
// time-domain backprojection, and can generate synthetic collections to
// feed it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/signalsfoundry/sarbp/core"
	"github.com/signalsfoundry/sarbp/internal/arrays"
	"github.com/signalsfoundry/sarbp/internal/config"
	"github.com/signalsfoundry/sarbp/internal/imageio"
	"github.com/signalsfoundry/sarbp/internal/logging"
	"github.com/signalsfoundry/sarbp/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.NewFromEnv().Error(context.Background(), "sarbp failed", logging.Err(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()
	root := &cobra.Command{
		Use:   "sarbp [flags] <input_dir> <output_png>",
		Short: "Form a SAR image by time-domain backprojection",
		Long: `sarbp reads a collection of .npy arrays (phase history, platform track,
frequency and wavenumber axes) from input_dir, focuses it onto a ground
plane grid and writes an 8-bit grayscale PNG.

Settings come from defaults, --config, SARBP_<SECTION>_<KEY> environment
variables and flags, in increasing order of precedence.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return config.BindFlags(v, cmd.Root().PersistentFlags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd, v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, log, args[0], args[1])
		},
	}
	config.RegisterFlags(root.PersistentFlags())
	root.AddCommand(newSimulateCmd(v))
	return root
}

// setup loads the merged configuration and builds the logger it describes.
func setup(cmd *cobra.Command, v *viper.Viper) (config.Config, logging.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(v, path)
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
		Output:    cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}

// run forms one image. Nothing is written to out unless every stage
// succeeds; metrics and the diagnostics manifest are written either way.
func run(ctx context.Context, cfg config.Config, log logging.Logger, in, out string) error {
	ctx, log = logging.WithRunLogger(ctx, log)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("%w: tracing: %w", core.ErrConfiguration, err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	opts, err := cfg.ImagingOptions()
	if err != nil {
		return err
	}

	ds, err := arrays.LoadDataset(in)
	if err != nil {
		return err
	}
	log.Info(ctx, "dataset loaded",
		logging.String("dir", in),
		logging.Int("samples", ds.SampleCount),
		logging.Int("pulses", ds.PulseCount),
		logging.Float64("range_resolution_m", ds.RangeResolution),
	)

	collector, err := observability.NewPipelineCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if cfg.Metrics.Textfile != "" {
		defer func() {
			if werr := collector.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
				log.Warn(ctx, "failed to write metrics textfile", logging.String("path", cfg.Metrics.Textfile), logging.Err(werr))
			}
		}()
	}

	pipeOpts := []core.PipelineOption{core.WithObserver(collector)}
	if cfg.Diagnostics.Dir != "" {
		dumper, err := arrays.NewDumper(cfg.Diagnostics.Dir, cfg.Diagnostics.Prefix, cfg.Diagnostics.Buffers)
		if err != nil {
			return err
		}
		dumper.SetRunID(logging.RunIDFromContext(ctx))
		defer func() {
			if werr := dumper.WriteManifest(); werr != nil {
				log.Warn(ctx, "failed to write diagnostics manifest", logging.String("dir", cfg.Diagnostics.Dir), logging.Err(werr))
			}
		}()
		pipeOpts = append(pipeOpts, core.WithRecorder(dumper))
	}

	res, err := core.NewPipeline(opts, log, pipeOpts...).Run(ctx, ds)
	if err != nil {
		return err
	}
	if err := imageio.WritePNG(out, res.Raster); err != nil {
		return err
	}
	log.Info(ctx, "image written",
		logging.String("path", out),
		logging.Int("width", res.Plane.NU),
		logging.Int("height", res.Plane.NV),
	)
	return nil
}
