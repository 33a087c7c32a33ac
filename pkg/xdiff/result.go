package xdiff

import (
	"fmt"
	"iter"
)

// ChangeKind classifies a line inside a hunk.
type ChangeKind int

// Change kinds.
const (
	ChangeContext ChangeKind = iota
	ChangeAddition
	ChangeDeletion
)

// KindOf maps an engine line kind to a ChangeKind by its sign.
func KindOf(kind int) ChangeKind {
	switch {
	case kind > 0:
		return ChangeAddition
	case kind < 0:
		return ChangeDeletion
	default:
		return ChangeContext
	}
}

// String returns "context", "addition" or "deletion".
func (k ChangeKind) String() string {
	switch k {
	case ChangeContext:
		return "context"
	case ChangeAddition:
		return "addition"
	case ChangeDeletion:
		return "deletion"
	default:
		return fmt.Sprintf("change(%d)", int(k))
	}
}

// Prefix returns the unified diff line prefix for the kind.
func (k ChangeKind) Prefix() byte {
	switch k {
	case ChangeAddition:
		return '+'
	case ChangeDeletion:
		return '-'
	default:
		return ' '
	}
}

// Change is one line of a hunk.
type Change struct {
	kind    ChangeKind
	content []byte
	res     *Result
}

// Kind returns the change kind.
func (c *Change) Kind() ChangeKind {
	return c.kind
}

// Content returns the exact bytes the engine reported, without any
// terminator. The slice must not be modified. It is nil once the Result is destroyed.
func (c *Change) Content() []byte {
	if c.res.destroyed {
		return nil
	}

	return c.content
}

// Text returns the content as a string.
func (c *Change) Text() string {
	return string(c.Content())
}

// Hunk is a contiguous region of differences plus its context lines.
type Hunk struct {
	oldStart int
	oldCount int
	newStart int
	newCount int
	function string
	changes  []Change
	res      *Result
}

// OldStart returns the start line in the old file.
func (h *Hunk) OldStart() int { return h.oldStart }

// OldCount returns the number of old-file lines covered.
func (h *Hunk) OldCount() int { return h.oldCount }

// NewStart returns the start line in the new file.
func (h *Hunk) NewStart() int { return h.newStart }

// NewCount returns the number of new-file lines covered.
func (h *Hunk) NewCount() int { return h.newCount }

// Function returns the enclosing function text, if the engine reported one.
func (h *Hunk) Function() string { return h.function }

// Header returns the hunk header fields.
func (h *Hunk) Header() HunkHeader {
	return HunkHeader{
		OldStart: h.oldStart,
		OldCount: h.oldCount,
		NewStart: h.newStart,
		NewCount: h.newCount,
		Function: h.function,
	}
}

// ChangeCount returns the number of changes in the hunk.
func (h *Hunk) ChangeCount() int {
	if h.res.destroyed {
		return 0
	}

	return len(h.changes)
}

// Change returns the change at index i.
func (h *Hunk) Change(i int) (*Change, error) {
	if h.res.destroyed {
		return nil, ErrDestroyed
	}

	if i < 0 || i >= len(h.changes) {
		return nil, fmt.Errorf("%w: change %d of %d", ErrOutOfRange, i, len(h.changes))
	}

	return &h.changes[i], nil
}

// Changes iterates over the changes in order.
func (h *Hunk) Changes() iter.Seq2[int, *Change] {
	return func(yield func(int, *Change) bool) {
		if h.res.destroyed {
			return
		}

		for i := range h.changes {
			if !yield(i, &h.changes[i]) {
				return
			}
		}
	}
}

func (h *Hunk) contentSize() int {
	size := len(h.function)
	for i := range h.changes {
		size += len(h.changes[i].content)
	}

	return size
}

// Stats summarizes a Result.
type Stats struct {
	Hunks     int `json:"hunks"     yaml:"hunks"`
	Additions int `json:"additions" yaml:"additions"`
	Deletions int `json:"deletions" yaml:"deletions"`
	Context   int `json:"context"   yaml:"context"`
}

// Changes returns the number of changed lines.
func (s Stats) Changes() int {
	return s.Additions + s.Deletions
}

// Result is the immutable, fully materialized output of a diff.
type Result struct {
	hunks     []Hunk
	alloc     Allocator
	destroyed bool
}

// HunkCount returns the number of hunks. A destroyed Result has none.
func (r *Result) HunkCount() int {
	if r == nil || r.destroyed {
		return 0
	}

	return len(r.hunks)
}

// Hunk returns the hunk at index i.
func (r *Result) Hunk(i int) (*Hunk, error) {
	if r == nil || r.destroyed {
		return nil, ErrDestroyed
	}

	if i < 0 || i >= len(r.hunks) {
		return nil, fmt.Errorf("%w: hunk %d of %d", ErrOutOfRange, i, len(r.hunks))
	}

	return &r.hunks[i], nil
}

// Hunks iterates over the hunks in order.
func (r *Result) Hunks() iter.Seq2[int, *Hunk] {
	return func(yield func(int, *Hunk) bool) {
		if r == nil || r.destroyed {
			return
		}

		for i := range r.hunks {
			if !yield(i, &r.hunks[i]) {
				return
			}
		}
	}
}

// Stats counts hunks and changes by kind.
func (r *Result) Stats() Stats {
	var st Stats

	for _, h := range r.Hunks() {
		st.Hunks++

		for _, c := range h.Changes() {
			switch c.kind {
			case ChangeAddition:
				st.Additions++
			case ChangeDeletion:
				st.Deletions++
			case ChangeContext:
				st.Context++
			}
		}
	}

	return st
}

// Empty reports whether the Result has no hunks.
func (r *Result) Empty() bool {
	return r.HunkCount() == 0
}

// Destroyed reports whether Destroy has been called.
func (r *Result) Destroyed() bool {
	return r != nil && r.destroyed
}

// Destroy releases every hunk and change. It is safe to call more than once
// and on nil. Hunk and Change values obtained earlier become empty.
func (r *Result) Destroy() {
	if r == nil || r.destroyed {
		return
	}

	for i := range r.hunks {
		h := &r.hunks[i]
		for range h.changes {
			r.alloc.Release(KindChange, changeOverhead)
		}

		r.alloc.Release(KindHunk, hunkOverhead+h.contentSize())
	}

	r.alloc.Release(KindResult, resultOverhead)
	r.destroyed = true
	r.hunks = nil
}
