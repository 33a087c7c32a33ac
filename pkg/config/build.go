package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/funcname"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/gitlib"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/render"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/safeconv"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// Validate checks every section and returns the joined errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Diff.ContextLines < 0 || c.Diff.InterhunkLines < 0 {
		errs = append(errs, ErrInvalidContext)
	}

	_, err := xdiff.ParseFlags(c.Diff.Flags)
	if err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, c.Merge.validate()...)

	switch c.Engine.Name {
	case EngineNative, EngineLibgit2, EngineAuto:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidEngine, c.Engine.Name))
	}

	_, err = c.Limits.Budget()
	if err != nil {
		errs = append(errs, err)
	}

	_, err = c.Limits.MaxFile()
	if err != nil {
		errs = append(errs, err)
	}

	_, err = render.ParseFormat(c.Output.Format)
	if err != nil {
		errs = append(errs, err)
	}

	switch c.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidColor, c.Output.Color))
	}

	_, err = observability.ParseLogLevel(c.Logging.Level)
	if err != nil {
		errs = append(errs, err)
	}

	if c.Logging.Format != LogFormatText && c.Logging.Format != LogFormatJSON {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format))
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, ErrInvalidSampleRatio)
	}

	return errors.Join(errs...)
}

func (m *MergeConfig) validate() []error {
	var errs []error

	if m.MarkerSize <= 0 || m.MarkerSize > maxMarkerSize {
		errs = append(errs, fmt.Errorf("%w: %d", ErrInvalidMarkerSize, m.MarkerSize))
	}

	_, err := xdiff.ParseMergeLevel(m.Level)
	if err != nil {
		errs = append(errs, err)
	}

	_, err = xdiff.ParseMergeFavor(m.Favor)
	if err != nil {
		errs = append(errs, err)
	}

	_, err = xdiff.ParseMergeStyle(m.Style)
	if err != nil {
		errs = append(errs, err)
	}

	return errs
}

// Options compiles the ignore patterns and builds diff options. The caller
// owns the result and must Destroy it.
func (d *DiffConfig) Options(opts ...xdiff.Option) (*xdiff.Options, error) {
	flags, err := xdiff.ParseFlags(d.Flags)
	if err != nil {
		return nil, err
	}

	patternFlags := xdiff.PatternExtended
	if d.IgnoreCase {
		patternFlags |= xdiff.PatternICase
	}

	patterns := make([]*xdiff.Pattern, 0, len(d.Ignore))

	for _, text := range d.Ignore {
		p, compileErr := xdiff.CompilePattern(text, patternFlags, opts...)
		if compileErr != nil {
			destroyPatterns(patterns)

			return nil, fmt.Errorf("ignore pattern %q: %w", text, compileErr)
		}

		patterns = append(patterns, p)
	}

	out, err := xdiff.NewOptions(flags, patterns, d.Anchors, opts...)
	if err != nil {
		destroyPatterns(patterns)

		return nil, err
	}

	return out, nil
}

func destroyPatterns(patterns []*xdiff.Pattern) {
	for _, p := range patterns {
		p.Destroy()
	}
}

// EmitFlags returns the emit flags selected by the diff section.
func (d *DiffConfig) EmitFlags() xdiff.EmitFlags {
	var flags xdiff.EmitFlags

	if d.FuncNames {
		flags |= xdiff.EmitFuncNames
	}

	if d.FuncContext {
		flags |= xdiff.EmitFuncContext
	}

	if d.NoHunkHeader {
		flags |= xdiff.EmitNoHunkHeader
	}

	return flags
}

// EmitConfig builds the emission configuration. find may be nil.
func (d *DiffConfig) EmitConfig(find xdiff.FindFunc, opts ...xdiff.Option) (*xdiff.EmitConfig, error) {
	return xdiff.NewEmitConfig(d.ContextLines, d.InterhunkLines, d.EmitFlags(), find, nil, opts...)
}

// Options builds merge options. The caller owns the result and must Destroy it.
func (m *MergeConfig) Options(opts ...xdiff.Option) (*xdiff.MergeOptions, error) {
	level, err := xdiff.ParseMergeLevel(m.Level)
	if err != nil {
		return nil, err
	}

	favor, err := xdiff.ParseMergeFavor(m.Favor)
	if err != nil {
		return nil, err
	}

	style, err := xdiff.ParseMergeStyle(m.Style)
	if err != nil {
		return nil, err
	}

	return xdiff.NewMergeOptions(m.MarkerSize, level, favor, style,
		m.AncestorLabel, m.OursLabel, m.TheirsLabel, opts...)
}

// Budget returns the memory budget in bytes, or 0 for unlimited.
func (l *LimitsConfig) Budget() (int64, error) {
	return parseSize("memory_budget", l.MemoryBudget)
}

// MaxFile returns the largest accepted input file in bytes, or 0 for unlimited.
func (l *LimitsConfig) MaxFile() (int64, error) {
	return parseSize("max_file_size", l.MaxFileSize)
}

func parseSize(field, raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, nil
	}

	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidSize, field, raw, err)
	}

	size, err := safeconv.Convert[int64](n)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidSize, field, raw, err)
	}

	return size, nil
}

// Allocator returns an allocation tracker bounded by the memory budget.
func (l *LimitsConfig) Allocator() (*xdiff.Tracker, error) {
	budget, err := l.Budget()
	if err != nil {
		return nil, err
	}

	return xdiff.NewTracker(budget), nil
}

// Observability converts the logging and telemetry sections.
func (c *Config) Observability(mode observability.AppMode, version string) (observability.Config, error) {
	out := observability.DefaultConfig()

	level, err := observability.ParseLogLevel(c.Logging.Level)
	if err != nil {
		return out, err
	}

	out.Mode = mode
	out.ServiceVersion = version
	out.Environment = c.Telemetry.Environment
	out.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	out.OTLPHeaders = observability.ParseOTLPHeaders(c.Telemetry.OTLPHeaders)
	out.OTLPInsecure = c.Telemetry.OTLPInsecure
	out.DebugTrace = c.Telemetry.DebugTrace
	out.SampleRatio = c.Telemetry.SampleRatio
	out.LogLevel = level
	out.LogJSON = c.Logging.Format == LogFormatJSON

	return out, nil
}

// Driver returns the function-name driver for lang. A configured driver
// overrides the builtin one. The second result reports whether the driver is
// owned by the caller and must be destroyed.
func (c *Config) Driver(lang string) (*funcname.Driver, bool, error) {
	for name, dc := range c.Drivers {
		if !strings.EqualFold(name, lang) {
			continue
		}

		d, err := funcname.NewDriver(lang, dc.Pattern, dc.IgnoreCase)
		if err != nil {
			return nil, false, fmt.Errorf("driver %q: %w", name, err)
		}

		return d, true, nil
	}

	d, _ := funcname.Lookup(lang)

	return d, false, nil
}

// NewEngine opens the configured engine. release frees any libgit2 state and
// is non-nil when err is nil.
func (e *EngineConfig) NewEngine() (engine xdiff.Engine, release func(), err error) {
	native := xdiff.NativeEngine{Timeout: e.Timeout}

	switch e.Name {
	case EngineNative, "":
		return native, func() {}, nil
	case EngineLibgit2:
		eng, openErr := gitlib.NewEngine()
		if openErr != nil {
			return nil, nil, openErr
		}

		return eng, eng.Free, nil
	case EngineAuto:
		eng, openErr := gitlib.NewAutoEngine(native)
		if openErr != nil {
			return nil, nil, openErr
		}

		return eng, eng.Free, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidEngine, e.Name)
	}
}
