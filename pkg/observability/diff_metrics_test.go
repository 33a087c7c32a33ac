package observability_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

func setupDiffMetrics(t *testing.T) (*observability.DiffMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	dm, err := observability.NewDiffMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return dm, reader
}

func sumOf(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()

	m := findMetric(rm, name)
	require.NotNil(t, m, name)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestDiffMetrics_RecordDiff(t *testing.T) {
	t.Parallel()

	dm, reader := setupDiffMetrics(t)
	ctx := context.Background()

	dm.RecordDiff(ctx, xdiff.Outcome{
		Op: "diff", Engine: "native", Hunks: 2, Changes: 5, Bytes: 100, Duration: time.Millisecond,
	})
	dm.RecordDiff(ctx, xdiff.Outcome{
		Op: "diff", Engine: "native", Hunks: 1, Changes: 1, Bytes: 10, Duration: time.Millisecond,
	})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, rm, "xdiff.diff.total"))
	assert.Equal(t, int64(3), sumOf(t, rm, "xdiff.diff.hunks.total"))
	assert.Equal(t, int64(6), sumOf(t, rm, "xdiff.diff.changes.total"))
	assert.Equal(t, int64(110), sumOf(t, rm, "xdiff.diff.input.bytes"))
	assert.NotNil(t, findMetric(rm, "xdiff.diff.duration.seconds"))
}

func TestDiffMetrics_RecordFailure(t *testing.T) {
	t.Parallel()

	dm, reader := setupDiffMetrics(t)

	err := fmt.Errorf("%w: %w", xdiff.ErrEngineFailure, xdiff.ErrProtocolViolation)
	dm.RecordDiff(context.Background(), xdiff.Outcome{Op: "diff", Engine: "script", Err: err})

	rm := collectMetrics(t, reader)

	m := findMetric(rm, "xdiff.diff.failures.total")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	kind, found := sum.DataPoints[0].Attributes.Value(attribute.Key("kind"))
	require.True(t, found)
	assert.Equal(t, xdiff.FailureProtocol, kind.AsString())
}

func TestDiffMetrics_RecordMerge(t *testing.T) {
	t.Parallel()

	dm, reader := setupDiffMetrics(t)

	dm.RecordDiff(context.Background(), xdiff.Outcome{Op: "merge", Engine: "libgit2", Hunks: 2, Bytes: 30})

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumOf(t, rm, "xdiff.merge.conflicts.total"))
}

func TestDiffMetrics_WiredIntoDiffer(t *testing.T) {
	t.Parallel()

	dm, reader := setupDiffMetrics(t)

	a, err := xdiff.NewFile([]byte("a\nb\n"))
	require.NoError(t, err)

	b, err := xdiff.NewFile([]byte("a\nc\n"))
	require.NoError(t, err)

	d := &xdiff.Differ{Recorder: dm}

	res, err := d.Diff(context.Background(), a, b, nil, nil)
	require.NoError(t, err)

	defer res.Destroy()

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumOf(t, rm, "xdiff.diff.total"))
	assert.Equal(t, int64(2), sumOf(t, rm, "xdiff.diff.changes.total"))
}

func TestDiffMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var dm *observability.DiffMetrics

	dm.RecordDiff(context.Background(), xdiff.Outcome{Op: "diff"})
}
