package core

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/sarbp/internal/logging"
	"github.com/signalsfoundry/sarbp/model"
)

// Stage names used for logging, tracing and metrics.
const (
	StageGeometry       = "geometry"
	StageCompression    = "compression"
	StageTransform      = "transform"
	StageBackprojection = "backprojection"
	StagePostprocess    = "postprocess"
)

// StageObserver receives per-stage timings and work counters. The
// observability package provides a Prometheus-backed implementation.
type StageObserver interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	AddPulses(n int)
	AddUpdates(n int)
	SetImagePixels(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}
func (nopObserver) AddPulses(int)                             {}
func (nopObserver) AddUpdates(int)                            {}
func (nopObserver) SetImagePixels(int)                        {}

// Result is the output of one image formation run.
type Result struct {
	Plane  *ImagePlane
	NFFT   int
	Image  *model.ComplexImage
	DB     []float64
	Raster *image.Gray
}

// Pipeline runs the image formation stages in order: geometry, compression,
// transform, backprojection and postprocess.
type Pipeline struct {
	opts     Options
	log      logging.Logger
	rec      Recorder
	observer StageObserver
	tracer   trace.Tracer
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithRecorder routes intermediate buffers to rec.
func WithRecorder(rec Recorder) PipelineOption {
	return func(p *Pipeline) {
		if rec != nil {
			p.rec = rec
		}
	}
}

// WithObserver reports stage timings and counters to obs.
func WithObserver(obs StageObserver) PipelineOption {
	return func(p *Pipeline) {
		if obs != nil {
			p.observer = obs
		}
	}
}

// NewPipeline builds a pipeline for opts. A nil logger is replaced with a
// no-op logger.
func NewPipeline(opts Options, log logging.Logger, options ...PipelineOption) *Pipeline {
	if log == nil {
		log = logging.Noop()
	}
	p := &Pipeline{
		opts:     opts,
		log:      log,
		rec:      NopRecorder(),
		observer: nopObserver{},
		tracer:   otel.Tracer("github.com/signalsfoundry/sarbp/core"),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run forms an image from ds. Options and dataset are validated before any
// stage runs; a failing stage aborts the run and its error wraps both
// ErrStageFailed and the underlying cause.
func (p *Pipeline) Run(ctx context.Context, ds *model.Dataset) (*Result, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: nil dataset", model.ErrInvalidInput)
	}
	if err := p.opts.Validate(); err != nil {
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "sarbp.form_image", trace.WithAttributes(
		attribute.Int("sarbp.samples", ds.SampleCount),
		attribute.Int("sarbp.pulses", ds.PulseCount),
	))
	defer span.End()

	res := &Result{}
	var compressed *Compressed

	err := p.stage(ctx, StageGeometry, func(ctx context.Context) error {
		plane, err := NewImagePlane(ds.SampleCount, ds.PulseCount, ds.RangeResolution, VecFrom(ds.SceneCenter), p.opts)
		if err != nil {
			return err
		}
		res.Plane = plane
		p.log.Debug(ctx, "image plane",
			logging.Int("nu", plane.NU),
			logging.Int("nv", plane.NV),
			logging.Float64("du", plane.DU),
			logging.Float64("dv", plane.DV),
		)
		return nil
	})
	if err == nil {
		err = p.stage(ctx, StageCompression, func(ctx context.Context) error {
			c, err := Compress(ctx, ds, p.opts, p.rec)
			if err != nil {
				return err
			}
			compressed = c
			res.NFFT = c.NFFT
			return nil
		})
	}
	if err == nil {
		err = p.stage(ctx, StageTransform, func(ctx context.Context) error {
			if err := Transform(ctx, compressed, p.opts.Workers); err != nil {
				return err
			}
			if enabled(p.rec, BufProfiles) {
				flat := make([]complex128, 0, len(compressed.Rows)*compressed.NFFT)
				for _, row := range compressed.Rows {
					flat = append(flat, row...)
				}
				if err := p.rec.Record(BufProfiles, []int{len(compressed.Rows), compressed.NFFT}, flat); err != nil {
					return fmt.Errorf("record %s: %w", BufProfiles, err)
				}
			}
			p.observer.AddPulses(ds.PulseCount)
			return nil
		})
	}
	if err == nil {
		err = p.stage(ctx, StageBackprojection, func(ctx context.Context) error {
			in, err := p.backprojectInput(ds, res.Plane, compressed)
			if err != nil {
				return err
			}
			img, err := Backproject(ctx, in, p.opts, p.rec)
			if err != nil {
				return err
			}
			res.Image = img
			p.observer.AddUpdates(len(in.Track) * len(img.Data))
			return nil
		})
	}
	if err == nil {
		err = p.stage(ctx, StagePostprocess, func(ctx context.Context) error {
			res.DB = ToDB(res.Image, p.opts.DBMin, p.opts.DBMax)
			if enabled(p.rec, BufImageDB) {
				if err := p.rec.Record(BufImageDB, []int{res.Image.NV, res.Image.NU}, res.DB); err != nil {
					return fmt.Errorf("record %s: %w", BufImageDB, err)
				}
			}
			raster, err := ToRaster(res.DB, res.Image.NU, res.Image.NV, p.opts.DBMin, p.opts.DBMax)
			if err != nil {
				return err
			}
			res.Raster = raster
			p.observer.SetImagePixels(len(res.DB))
			return nil
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	i, j, peak := res.Image.Peak()
	p.log.Info(ctx, "image formed",
		logging.Int("nu", res.Image.NU),
		logging.Int("nv", res.Image.NV),
		logging.Int("nfft", res.NFFT),
		logging.Int("peak_u", i),
		logging.Int("peak_v", j),
		logging.Float64("peak_magnitude", peak),
	)
	return res, nil
}

func (p *Pipeline) backprojectInput(ds *model.Dataset, plane *ImagePlane, c *Compressed) (BackprojectInput, error) {
	kref, err := ReferenceWavenumberFor(ds, p.opts.ReferenceWavenumber)
	if err != nil {
		return BackprojectInput{}, err
	}
	track := make([]Vec3, len(ds.Track))
	for k, pos := range ds.Track {
		track[k] = VecFrom(pos)
	}
	var origin Vec3
	switch p.opts.ReferencePoint {
	case ReferenceOrigin:
	case ReferenceSceneCenter:
		origin = VecFrom(ds.SceneCenter)
	default:
		return BackprojectInput{}, fmt.Errorf("%w: unknown reference point %q", ErrConfiguration, p.opts.ReferencePoint)
	}
	return BackprojectInput{
		Plane:    plane,
		Profiles: c,
		Track:    track,
		Origin:   origin,
		BinWidth: BinWidth(ds.SampleCount, ds.RangeResolution, c.NFFT),
		KRef:     kref,
	}, nil
}

// stage runs fn inside a span, logs its duration and reports it to the
// observer. Failures are wrapped with ErrStageFailed and the stage name.
func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: stage %s: %w", ErrStageFailed, name, err)
	}
	ctx, span := p.tracer.Start(ctx, "sarbp."+name)
	defer span.End()

	p.log.Info(ctx, "stage started", logging.String("stage", name))
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	p.observer.ObserveStage(name, elapsed, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.log.Error(ctx, "stage failed", logging.String("stage", name), logging.Duration("elapsed", elapsed), logging.Err(err))
		return fmt.Errorf("%w: stage %s: %w", ErrStageFailed, name, err)
	}
	p.log.Info(ctx, "stage complete", logging.String("stage", name), logging.Duration("elapsed", elapsed))
	return nil
}
