// Package xdifftest provides scripted engines and fault-injecting allocators
// for testing code built on package xdiff.
package xdifftest

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// Event is one scripted engine callback.
type Event struct {
	Hunk    *xdiff.HunkHeader
	Kind    int
	Content []byte
	Err     error
}

// Hunk returns a hunk-open event.
func Hunk(oldStart, oldCount, newStart, newCount int) Event {
	return Event{Hunk: &xdiff.HunkHeader{
		OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount,
	}}
}

// NamedHunk returns a hunk-open event carrying a function name.
func NamedHunk(oldStart, oldCount, newStart, newCount int, function string) Event {
	ev := Hunk(oldStart, oldCount, newStart, newCount)
	ev.Hunk.Function = function

	return ev
}

// Line returns a line-append event.
func Line(kind int, content string) Event {
	return Event{Kind: kind, Content: []byte(content)}
}

// Fail returns an event that makes the engine stop with err.
func Fail(err error) Event {
	return Event{Err: err}
}

// ScriptEngine is an xdiff.Engine that replays Events regardless of input.
type ScriptEngine struct {
	Events []Event
	// IgnoreSinkErrors keeps replaying after the sink rejects an event and
	// reports success, like a misbehaving engine would.
	IgnoreSinkErrors bool

	mu    sync.Mutex
	calls int
}

// Name identifies the engine.
func (*ScriptEngine) Name() string { return "script" }

// Calls returns how many times Diff ran.
func (e *ScriptEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls
}

// Diff replays the script into sink.
func (e *ScriptEngine) Diff(_, _ *xdiff.File, _ *xdiff.Options, _ *xdiff.EmitConfig, sink xdiff.Sink) error {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	for _, ev := range e.Events {
		var err error

		switch {
		case ev.Err != nil:
			return ev.Err
		case ev.Hunk != nil:
			err = sink.OnHunk(*ev.Hunk)
		default:
			err = sink.OnLine(ev.Kind, ev.Content)
		}

		if err != nil && !e.IgnoreSinkErrors {
			return err
		}
	}

	return nil
}

// Expected is the Result shape a valid script should produce.
type Expected struct {
	Header  xdiff.HunkHeader
	Kinds   []xdiff.ChangeKind
	Content []string
}

// Expect folds a valid script into the hunks it describes.
func Expect(events []Event) []Expected {
	var out []Expected

	for _, ev := range events {
		if ev.Hunk != nil {
			out = append(out, Expected{Header: *ev.Hunk})

			continue
		}

		if len(out) == 0 || ev.Err != nil {
			continue
		}

		cur := &out[len(out)-1]
		cur.Kinds = append(cur.Kinds, xdiff.KindOf(ev.Kind))
		cur.Content = append(cur.Content, string(ev.Content))
	}

	return out
}

// RandomScript generates a valid script of up to maxHunks hunks with up to
// maxLines lines each. Content may contain NUL bytes and may be empty.
func RandomScript(rng *rand.Rand, maxHunks, maxLines int) []Event {
	var events []Event

	line := 1

	for range rng.IntN(maxHunks + 1) {
		n := rng.IntN(maxLines + 1)
		events = append(events, Hunk(line, n, line, n))

		for i := range n {
			content := make([]byte, rng.IntN(12))
			for j := range content {
				content[j] = byte(rng.IntN(256))
			}

			events = append(events, Event{Kind: rng.IntN(5) - 2, Content: content})
			line += i % 2
		}

		line += n + 1
	}

	return events
}

// FailingAllocator refuses the Nth acquisition of one object kind and
// forwards everything else to Inner.
type FailingAllocator struct {
	Inner xdiff.Allocator
	Kind  xdiff.ObjectKind
	// After is how many acquisitions of Kind succeed before the refusal.
	After int

	mu   sync.Mutex
	seen int
}

// Acquire implements xdiff.Allocator.
func (f *FailingAllocator) Acquire(kind xdiff.ObjectKind, size int) error {
	if kind == f.Kind {
		f.mu.Lock()
		refuse := f.seen >= f.After
		f.seen++
		f.mu.Unlock()

		if refuse {
			return fmt.Errorf("%w: injected failure on %s #%d", xdiff.ErrAllocation, kind, f.After)
		}
	}

	return f.Inner.Acquire(kind, size)
}

// Release implements xdiff.Allocator.
func (f *FailingAllocator) Release(kind xdiff.ObjectKind, size int) {
	f.Inner.Release(kind, size)
}
