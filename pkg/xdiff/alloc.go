package xdiff

import (
	"fmt"
	"sync/atomic"
)

// ObjectKind identifies the kind of object an Allocator accounts for.
type ObjectKind int

// Object kinds, one per owned value type.
const (
	KindFile ObjectKind = iota
	KindLine
	KindPattern
	KindOptions
	KindAnchor
	KindEmitConfig
	KindMergeOptions
	KindHunk
	KindChange
	KindResult

	numKinds
)

var kindNames = [numKinds]string{ //nolint:gochecknoglobals // lookup table
	KindFile:         "file",
	KindLine:         "line",
	KindPattern:      "pattern",
	KindOptions:      "options",
	KindAnchor:       "anchor",
	KindEmitConfig:   "emit-config",
	KindMergeOptions: "merge-options",
	KindHunk:         "hunk",
	KindChange:       "change",
	KindResult:       "result",
}

// String returns the lowercase name of the kind.
func (k ObjectKind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}

	return kindNames[k]
}

// Fixed per-object overheads charged on top of payload bytes.
const (
	hunkOverhead   = 48
	changeOverhead = 32
	resultOverhead = 24
)

// Allocator accounts for every object this package creates. Acquire is called
// before an object becomes live and may refuse it; Release is called exactly
// once when the object is destroyed, with the same kind and size.
type Allocator interface {
	Acquire(kind ObjectKind, size int) error
	Release(kind ObjectKind, size int)
}

type nopAllocator struct{}

func (nopAllocator) Acquire(ObjectKind, int) error { return nil }
func (nopAllocator) Release(ObjectKind, int)       {}

// Option configures constructors in this package.
type Option func(*settings)

type settings struct {
	alloc Allocator
}

// WithAllocator routes accounting for the constructed object through alloc.
func WithAllocator(alloc Allocator) Option {
	return func(s *settings) {
		if alloc != nil {
			s.alloc = alloc
		}
	}
}

func resolve(opts []Option) settings {
	s := settings{alloc: nopAllocator{}}

	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// Tracker is an Allocator that counts live objects per kind and enforces an
// optional byte budget. It is safe for concurrent use.
type Tracker struct {
	limit int64
	bytes atomic.Int64
	live  [numKinds]atomic.Int64
}

// NewTracker returns a Tracker. A limit of zero or less disables the budget.
func NewTracker(limit int64) *Tracker {
	return &Tracker{limit: limit}
}

// Acquire charges size bytes for a new object of the given kind.
func (t *Tracker) Acquire(kind ObjectKind, size int) error {
	if kind < 0 || kind >= numKinds {
		return fmt.Errorf("%w: unknown kind %d", ErrAllocation, int(kind))
	}

	total := t.bytes.Add(int64(size))
	if t.limit > 0 && total > t.limit {
		t.bytes.Add(-int64(size))

		return fmt.Errorf("%w: %s of %d bytes exceeds budget of %d bytes", ErrAllocation, kind, size, t.limit)
	}

	t.live[kind].Add(1)

	return nil
}

// Release returns the bytes charged for an object of the given kind.
func (t *Tracker) Release(kind ObjectKind, size int) {
	if kind < 0 || kind >= numKinds {
		return
	}

	t.bytes.Add(-int64(size))
	t.live[kind].Add(-1)
}

// Outstanding returns the number of live objects across all kinds.
func (t *Tracker) Outstanding() int64 {
	var total int64

	for i := range t.live {
		total += t.live[i].Load()
	}

	return total
}

// Live returns the number of live objects of one kind.
func (t *Tracker) Live(kind ObjectKind) int64 {
	if kind < 0 || kind >= numKinds {
		return 0
	}

	return t.live[kind].Load()
}

// Bytes returns the number of bytes currently charged.
func (t *Tracker) Bytes() int64 {
	return t.bytes.Load()
}

// Limit returns the configured byte budget, or zero when unlimited.
func (t *Tracker) Limit() int64 {
	if t.limit <= 0 {
		return 0
	}

	return t.limit
}
