package config_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/config"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

func TestDiffConfig_Options(t *testing.T) {
	t.Parallel()

	dc := config.DiffConfig{
		Flags:      []string{"ignore-whitespace", "minimal"},
		Ignore:     []string{"^#", "^//"},
		Anchors:    []string{"func "},
		IgnoreCase: true,
	}

	opts, err := dc.Options()
	require.NoError(t, err)

	defer opts.Destroy()

	assert.Equal(t, xdiff.FlagIgnoreWhitespace|xdiff.FlagNeedMinimal, opts.Flags())
	assert.Equal(t, 2, opts.PatternCount())
	assert.Equal(t, []string{"func "}, opts.Anchors())

	p, err := opts.Pattern(0)
	require.NoError(t, err)
	assert.NotZero(t, p.Flags()&xdiff.PatternICase)
}

func TestDiffConfig_OptionsBadPattern(t *testing.T) {
	t.Parallel()

	tracker := xdiff.NewTracker(0)
	dc := config.DiffConfig{Ignore: []string{"^ok", "(unclosed"}}

	_, err := dc.Options(xdiff.WithAllocator(tracker))
	require.ErrorIs(t, err, xdiff.ErrPatternSyntax)
	assert.Zero(t, tracker.Outstanding())
}

func TestDiffConfig_EmitConfig(t *testing.T) {
	t.Parallel()

	dc := config.DiffConfig{ContextLines: 1, InterhunkLines: 2, FuncNames: true, NoHunkHeader: true}

	cfg, err := dc.EmitConfig(nil)
	require.NoError(t, err)

	defer cfg.Destroy()

	assert.Equal(t, 1, cfg.ContextLines())
	assert.Equal(t, 2, cfg.InterhunkLines())
	assert.Equal(t, xdiff.EmitFuncNames|xdiff.EmitNoHunkHeader, cfg.Flags())
	assert.Nil(t, cfg.FindFunc())
}

func TestMergeConfig_Options(t *testing.T) {
	t.Parallel()

	mc := config.Default().Merge
	mc.Style = "zdiff3"
	mc.Favor = "theirs"
	mc.AncestorLabel = "base"

	opts, err := mc.Options()
	require.NoError(t, err)

	defer opts.Destroy()

	assert.Equal(t, xdiff.DefaultMarkerSize, opts.MarkerSize())
	assert.Equal(t, xdiff.StyleZealousDiff3, opts.Style())
	assert.Equal(t, xdiff.FavorTheirs, opts.Favor())
	assert.Equal(t, "base", opts.AncestorLabel())

	mc.Level = "lazy"

	_, err = mc.Options()
	require.ErrorIs(t, err, xdiff.ErrInvalidConfig)
}

func TestLimitsConfig(t *testing.T) {
	t.Parallel()

	limits := config.LimitsConfig{MemoryBudget: "1 KB", MaxFileSize: ""}

	budget, err := limits.Budget()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), budget)

	maxFile, err := limits.MaxFile()
	require.NoError(t, err)
	assert.Zero(t, maxFile)

	tracker, err := limits.Allocator()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), tracker.Limit())

	limits.MaxFileSize = "-3"

	_, err = limits.MaxFile()
	require.ErrorIs(t, err, config.ErrInvalidSize)
}

func TestConfig_Observability(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Logging.Level = "debug"
	cfg.Logging.Format = config.LogFormatJSON
	cfg.Telemetry.OTLPEndpoint = "localhost:4317"
	cfg.Telemetry.OTLPHeaders = "x-token=abc"

	obs, err := cfg.Observability(observability.ModeMCP, "1.2.3")
	require.NoError(t, err)

	assert.Equal(t, observability.ModeMCP, obs.Mode)
	assert.Equal(t, "1.2.3", obs.ServiceVersion)
	assert.Equal(t, slog.LevelDebug, obs.LogLevel)
	assert.True(t, obs.LogJSON)
	assert.Equal(t, "localhost:4317", obs.OTLPEndpoint)
	assert.Equal(t, map[string]string{"x-token": "abc"}, obs.OTLPHeaders)
}

func TestConfig_Driver(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Drivers = map[string]config.DriverConfig{
		"ini": {Pattern: `^\[.*\]`},
	}

	custom, owned, err := cfg.Driver("INI")
	require.NoError(t, err)
	require.True(t, owned)

	defer custom.Destroy()

	name, ok := custom.Match([]byte("[core]"))
	assert.True(t, ok)
	assert.Equal(t, "[core]", name)

	builtin, owned, err := cfg.Driver("Go")
	require.NoError(t, err)
	assert.False(t, owned)
	assert.NotNil(t, builtin)

	none, _, err := cfg.Driver("Brainfuck")
	require.NoError(t, err)
	assert.Nil(t, none)

	cfg.Drivers["ini"] = config.DriverConfig{Pattern: "("}

	_, _, err = cfg.Driver("ini")
	require.ErrorIs(t, err, xdiff.ErrPatternSyntax)
}

func TestEngineConfig_NewEngine(t *testing.T) {
	t.Parallel()

	for _, name := range []string{config.EngineNative, config.EngineLibgit2, config.EngineAuto} {
		ec := config.EngineConfig{Name: name}

		engine, release, err := ec.NewEngine()
		require.NoError(t, err, name)
		require.NotNil(t, release, name)

		a, err := xdiff.NewFile([]byte("one\ntwo\n"))
		require.NoError(t, err)

		b, err := xdiff.NewFile([]byte("one\n2\n"))
		require.NoError(t, err)

		d := &xdiff.Differ{Engine: engine, Logger: slog.New(slog.DiscardHandler)}

		res, err := d.Diff(context.Background(), a, b, nil, nil)
		require.NoError(t, err, name)
		assert.Equal(t, 1, res.HunkCount(), name)

		res.Destroy()
		a.Destroy()
		b.Destroy()
		release()
	}

	engine, release, err := (&config.EngineConfig{Name: "ed"}).NewEngine()
	require.ErrorIs(t, err, config.ErrInvalidEngine)
	assert.Nil(t, engine)
	assert.Nil(t, release)
}
