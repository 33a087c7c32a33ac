package xdiff

import (
	"bytes"
	"fmt"
	"strings"
)

// State is the lifecycle stage of an Aggregator.
type State int

// Aggregator states.
const (
	StateEmpty State = iota
	StateBuilding
	StateFinalized
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBuilding:
		return "building"
	case StateFinalized:
		return "finalized"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// minGrowth is the first capacity of a growing slice.
const minGrowth = 4

// grow appends v to s, doubling the capacity when it is exhausted.
func grow[T any](s []T, v T) []T {
	if len(s) == cap(s) {
		next := make([]T, len(s), max(2*cap(s), minGrowth))
		copy(next, s)
		s = next
	}

	return append(s, v)
}

type pendingChange struct {
	kind    ChangeKind
	content []byte
}

type pendingHunk struct {
	header  HunkHeader
	changes []pendingChange
}

// Aggregator is a Sink that collects engine events and turns them into a
// Result. It moves Empty -> Building -> Finalized, or to Failed on any error
// or Abort. An Aggregator is used by one engine run on one goroutine.
type Aggregator struct {
	state State
	hunks []pendingHunk
	alloc Allocator
	err   error
}

// NewAggregator returns an Aggregator in StateEmpty.
func NewAggregator(opts ...Option) *Aggregator {
	return &Aggregator{alloc: resolve(opts).alloc}
}

// State returns the current state.
func (a *Aggregator) State() State {
	return a.state
}

// Err returns the error that moved the Aggregator to StateFailed, if any.
func (a *Aggregator) Err() error {
	return a.err
}

// OnHunk opens a new hunk. Valid in StateEmpty and StateBuilding.
func (a *Aggregator) OnHunk(h HunkHeader) error {
	if a.state != StateEmpty && a.state != StateBuilding {
		return fmt.Errorf("%w: hunk event in state %s", ErrInvalidState, a.state)
	}

	if h.OldStart < 0 || h.OldCount < 0 || h.NewStart < 0 || h.NewCount < 0 {
		return a.fail(fmt.Errorf("%w: negative hunk range -%d,%d +%d,%d",
			ErrProtocolViolation, h.OldStart, h.OldCount, h.NewStart, h.NewCount))
	}

	err := a.alloc.Acquire(KindHunk, hunkOverhead+len(h.Function))
	if err != nil {
		return a.fail(err)
	}

	h.Function = strings.Clone(h.Function)
	a.hunks = grow(a.hunks, pendingHunk{header: h})
	a.state = StateBuilding

	return nil
}

// OnLine appends a line to the current hunk. The content is copied.
// A line with no open hunk is a protocol violation and fails the Aggregator.
func (a *Aggregator) OnLine(kind int, content []byte) error {
	switch a.state {
	case StateEmpty:
		return a.fail(fmt.Errorf("%w: line event before any hunk", ErrProtocolViolation))
	case StateBuilding:
	case StateFinalized, StateFailed:
		return fmt.Errorf("%w: line event in state %s", ErrInvalidState, a.state)
	}

	err := a.alloc.Acquire(KindChange, changeOverhead+len(content))
	if err != nil {
		return a.fail(err)
	}

	cur := &a.hunks[len(a.hunks)-1]
	cur.changes = grow(cur.changes, pendingChange{kind: KindOf(kind), content: bytes.Clone(content)})

	return nil
}

// Finalize converts the collected hunks into a Result. Each hunk's changes
// and content bytes are copied into exactly sized storage. On failure every
// partial allocation is released and the Aggregator moves to StateFailed.
func (a *Aggregator) Finalize() (*Result, error) {
	if a.state != StateEmpty && a.state != StateBuilding {
		return nil, fmt.Errorf("%w: finalize in state %s", ErrInvalidState, a.state)
	}

	res, err := a.snapshot()
	if err != nil {
		return nil, a.fail(err)
	}

	a.releasePending()
	a.state = StateFinalized

	return res, nil
}

// snapshot builds the Result, releasing whatever it acquired if it cannot finish.
func (a *Aggregator) snapshot() (*Result, error) {
	err := a.alloc.Acquire(KindResult, resultOverhead)
	if err != nil {
		return nil, err
	}

	res := &Result{alloc: a.alloc, hunks: make([]Hunk, 0, len(a.hunks))}

	for i := range a.hunks {
		h, hErr := a.copyHunk(&a.hunks[i], res)
		if hErr != nil {
			res.Destroy()

			return nil, hErr
		}

		res.hunks = append(res.hunks, h)
	}

	return res, nil
}

func (a *Aggregator) copyHunk(src *pendingHunk, res *Result) (Hunk, error) {
	size := len(src.header.Function)
	for _, c := range src.changes {
		size += len(c.content)
	}

	err := a.alloc.Acquire(KindHunk, hunkOverhead+size)
	if err != nil {
		return Hunk{}, err
	}

	for i := range src.changes {
		acqErr := a.alloc.Acquire(KindChange, changeOverhead)
		if acqErr != nil {
			for range i {
				a.alloc.Release(KindChange, changeOverhead)
			}

			a.alloc.Release(KindHunk, hunkOverhead+size)

			return Hunk{}, acqErr
		}
	}

	arena := make([]byte, 0, size-len(src.header.Function))
	changes := make([]Change, len(src.changes))

	for i, c := range src.changes {
		start := len(arena)
		arena = append(arena, c.content...)
		changes[i] = Change{kind: c.kind, content: arena[start:len(arena):len(arena)], res: res}
	}

	return Hunk{
		oldStart: src.header.OldStart,
		oldCount: src.header.OldCount,
		newStart: src.header.NewStart,
		newCount: src.header.NewCount,
		function: src.header.Function,
		changes:  changes,
		res:      res,
	}, nil
}

// Abort discards everything collected so far and moves to StateFailed.
// It is idempotent and does nothing after a successful Finalize.
func (a *Aggregator) Abort() {
	if a.state == StateEmpty || a.state == StateBuilding {
		a.releasePending()
		a.state = StateFailed
	}
}

func (a *Aggregator) fail(err error) error {
	a.releasePending()
	a.state = StateFailed
	a.err = err

	return err
}

func (a *Aggregator) releasePending() {
	for i := range a.hunks {
		h := &a.hunks[i]
		for _, c := range h.changes {
			a.alloc.Release(KindChange, changeOverhead+len(c.content))
		}

		a.alloc.Release(KindHunk, hunkOverhead+len(h.header.Function))
	}

	a.hunks = nil
}
