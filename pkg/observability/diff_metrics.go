package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

const (
	metricDiffsTotal    = "xdiff.diff.total"
	metricDiffDuration  = "xdiff.diff.duration.seconds"
	metricDiffHunks     = "xdiff.diff.hunks.total"
	metricDiffChanges   = "xdiff.diff.changes.total"
	metricDiffBytes     = "xdiff.diff.input.bytes"
	metricDiffFailures  = "xdiff.diff.failures.total"
	metricMergeConflict = "xdiff.merge.conflicts.total"

	attrEngine = "engine"
	attrKind   = "kind"

	opMerge = "merge"
)

// DiffMetrics records one set of instruments per Differ call. It implements
// xdiff.Recorder.
type DiffMetrics struct {
	total     metric.Int64Counter
	duration  metric.Float64Histogram
	hunks     metric.Int64Counter
	changes   metric.Int64Counter
	bytes     metric.Int64Counter
	failures  metric.Int64Counter
	conflicts metric.Int64Counter
}

var _ xdiff.Recorder = (*DiffMetrics)(nil)

// NewDiffMetrics creates diff and merge instruments from the given meter.
func NewDiffMetrics(mt metric.Meter) (*DiffMetrics, error) {
	var (
		dm  DiffMetrics
		err error
	)

	counters := []struct {
		dst         *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&dm.total, metricDiffsTotal, "Diff and merge calls", "{call}"},
		{&dm.hunks, metricDiffHunks, "Hunks produced", "{hunk}"},
		{&dm.changes, metricDiffChanges, "Added and deleted lines produced", "{line}"},
		{&dm.bytes, metricDiffBytes, "Input bytes compared", "By"},
		{&dm.failures, metricDiffFailures, "Failed calls by failure kind", "{error}"},
		{&dm.conflicts, metricMergeConflict, "Conflict regions left by merges", "{conflict}"},
	}

	for _, c := range counters {
		*c.dst, err = mt.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit(c.unit))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
	}

	dm.duration, err = mt.Float64Histogram(metricDiffDuration,
		metric.WithDescription("Diff and merge duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiffDuration, err)
	}

	return &dm, nil
}

// RecordDiff implements xdiff.Recorder. A nil receiver records nothing.
func (dm *DiffMetrics) RecordDiff(ctx context.Context, o xdiff.Outcome) {
	if dm == nil {
		return
	}

	status := StatusOK
	if o.Err != nil {
		status = StatusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, o.Op),
		attribute.String(attrEngine, o.Engine),
		attribute.String(attrStatus, status),
	)

	dm.total.Add(ctx, 1, attrs)
	dm.duration.Record(ctx, o.Duration.Seconds(), attrs)
	dm.bytes.Add(ctx, int64(o.Bytes), attrs)

	if o.Err != nil {
		dm.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrOp, o.Op),
			attribute.String(attrKind, xdiff.FailureKind(o.Err)),
		))

		return
	}

	if o.Op == opMerge {
		dm.conflicts.Add(ctx, int64(o.Hunks), attrs)

		return
	}

	dm.hunks.Add(ctx, int64(o.Hunks), attrs)
	dm.changes.Add(ctx, int64(o.Changes), attrs)
}
