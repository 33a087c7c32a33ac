package xdiff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "xdiff"

// SimpleDiff diffs a against b with the built-in engine and returns the
// materialized Result. A nil opts compares byte-exactly; a nil cfg uses
// DefaultContextLines. No partial Result is ever returned.
func SimpleDiff(a, b *File, opts *Options, cfg *EmitConfig, options ...Option) (*Result, error) {
	return run(NativeEngine{}, a, b, opts, cfg, options)
}

func run(engine Engine, a, b *File, opts *Options, cfg *EmitConfig, options []Option) (*Result, error) {
	err := checkInputs(a, b)
	if err != nil {
		return nil, err
	}

	if opts != nil && opts.destroyed {
		return nil, fmt.Errorf("%w: options", ErrDestroyed)
	}

	if cfg != nil && cfg.destroyed {
		return nil, fmt.Errorf("%w: emit config", ErrDestroyed)
	}

	agg := NewAggregator(options...)

	err = engine.Diff(a, b, opts, cfg, agg)
	if err != nil {
		agg.Abort()

		return nil, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}

	// An engine that swallowed a sink error still leaves the aggregator failed.
	if agg.State() == StateFailed {
		return nil, fmt.Errorf("%w: %w", ErrEngineFailure, agg.Err())
	}

	return agg.Finalize()
}

// Outcome describes one finished diff or merge for a Recorder.
type Outcome struct {
	Op       string
	Engine   string
	Hunks    int
	Changes  int
	Bytes    int
	Duration time.Duration
	Err      error
}

// Recorder receives an Outcome for every Differ call.
type Recorder interface {
	RecordDiff(ctx context.Context, o Outcome)
}

// Differ runs diffs and merges through an explicit engine with logging,
// tracing and metrics around each call.
type Differ struct {
	// Engine computes diffs. When nil, NativeEngine is used.
	Engine Engine
	// Options are applied to the Aggregator, e.g. WithAllocator.
	Options []Option
	// Logger receives per-call debug records. When nil, slog.Default is used.
	Logger *slog.Logger
	// Tracer creates one span per call. When nil, falls back to otel.Tracer("xdiff").
	Tracer trace.Tracer
	// Recorder is optional.
	Recorder Recorder
}

func (d *Differ) engine() Engine {
	if d.Engine == nil {
		return NativeEngine{}
	}

	return d.Engine
}

func (d *Differ) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}

	return d.Logger
}

func (d *Differ) tracer() trace.Tracer {
	if d.Tracer == nil {
		return otel.Tracer(tracerName)
	}

	return d.Tracer
}

func checkInputs(files ...*File) error {
	for i, f := range files {
		switch {
		case f == nil:
			return fmt.Errorf("%w: input %d is nil", ErrInvalidConfig, i)
		case f.buf.destroyed:
			return fmt.Errorf("%w: input %d", ErrDestroyed, i)
		}
	}

	return nil
}

func engineName(e any) string {
	if n, ok := e.(interface{ Name() string }); ok {
		return n.Name()
	}

	return fmt.Sprintf("%T", e)
}

// Diff runs the configured engine on a and b.
func (d *Differ) Diff(ctx context.Context, a, b *File, opts *Options, cfg *EmitConfig) (*Result, error) {
	eng := d.engine()
	name := engineName(eng)

	ctx, span := d.tracer().Start(ctx, "xdiff.diff", trace.WithAttributes(
		attribute.String("xdiff.engine", name),
		attribute.Int("xdiff.old_bytes", a.Len()),
		attribute.Int("xdiff.new_bytes", b.Len()),
		attribute.String("xdiff.flags", opts.Flags().String()),
	))
	defer span.End()

	start := time.Now()
	res, err := run(eng, a, b, opts, cfg, d.Options)
	out := Outcome{
		Op:       "diff",
		Engine:   name,
		Bytes:    a.Len() + b.Len(),
		Duration: time.Since(start),
		Err:      err,
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger().WarnContext(ctx, "diff failed", "engine", name, "kind", FailureKind(err), "error", err)
		d.record(ctx, out)

		return nil, err
	}

	st := res.Stats()
	out.Hunks, out.Changes = st.Hunks, st.Changes()

	span.SetAttributes(
		attribute.Int("xdiff.hunks", st.Hunks),
		attribute.Int("xdiff.additions", st.Additions),
		attribute.Int("xdiff.deletions", st.Deletions),
	)
	d.logger().DebugContext(ctx, "diff done", "engine", name, "hunks", st.Hunks,
		"additions", st.Additions, "deletions", st.Deletions, "duration", out.Duration)
	d.record(ctx, out)

	return res, nil
}

// Merge performs a three-way merge when the engine supports it.
func (d *Differ) Merge(ctx context.Context, ancestor, ours, theirs *File, opts *MergeOptions) (*MergeResult, error) {
	eng := d.engine()
	name := engineName(eng)

	merger, ok := eng.(MergeEngine)
	if !ok {
		return nil, fmt.Errorf("%w: engine %s cannot merge", ErrUnsupported, name)
	}

	err := checkInputs(ancestor, ours, theirs)
	if err != nil {
		return nil, err
	}

	ctx, span := d.tracer().Start(ctx, "xdiff.merge", trace.WithAttributes(
		attribute.String("xdiff.engine", name),
		attribute.String("xdiff.merge.style", opts.Style().String()),
		attribute.String("xdiff.merge.favor", opts.Favor().String()),
	))
	defer span.End()

	start := time.Now()

	res, err := merger.Merge(ancestor, ours, theirs, opts)
	out := Outcome{
		Op:       "merge",
		Engine:   name,
		Bytes:    ancestor.Len() + ours.Len() + theirs.Len(),
		Duration: time.Since(start),
	}

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEngineFailure, err)
		out.Err = err

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.logger().WarnContext(ctx, "merge failed", "engine", name, "error", err)
		d.record(ctx, out)

		return nil, err
	}

	out.Hunks = res.Conflicts

	span.SetAttributes(
		attribute.Bool("xdiff.merge.automergeable", res.Automergeable),
		attribute.Int("xdiff.merge.conflicts", res.Conflicts),
	)
	d.logger().DebugContext(ctx, "merge done", "engine", name,
		"automergeable", res.Automergeable, "conflicts", res.Conflicts, "duration", out.Duration)
	d.record(ctx, out)

	return res, nil
}

func (d *Differ) record(ctx context.Context, o Outcome) {
	if d.Recorder != nil {
		d.Recorder.RecordDiff(ctx, o)
	}
}
