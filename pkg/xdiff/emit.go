package xdiff

import (
	"bytes"
	"fmt"
)

// DefaultContextLines is the context used when no EmitConfig is supplied.
const DefaultContextLines = 3

// maxFuncNameLen bounds the hunk-header function name, as git does.
const maxFuncNameLen = 80

// EmitFlags control what the engine reports alongside each hunk.
type EmitFlags uint

// Emit flags.
const (
	// EmitFuncNames asks the engine to name the enclosing function of each hunk.
	EmitFuncNames EmitFlags = 1 << iota
	// EmitNoHunkHeader suppresses hunk headers when rendering.
	EmitNoHunkHeader
	// EmitFuncContext extends each hunk back to its enclosing function line.
	EmitFuncContext
)

// FindFunc reports whether line starts a function and, if so, the text to
// show in the hunk header. Any state it needs travels in the closure.
type FindFunc func(line []byte) (string, bool)

// HunkFunc receives raw hunk ranges. When set on an EmitConfig the engine
// calls it instead of emitting sink events.
type HunkFunc func(oldStart, oldCount, newStart, newCount int) error

// EmitConfig describes how hunks are produced.
type EmitConfig struct {
	contextLines   int
	interhunkLines int
	flags          EmitFlags
	findFunc       FindFunc
	hunkFunc       HunkFunc
	alloc          Allocator
	destroyed      bool
}

// NewEmitConfig validates and builds an EmitConfig. Line counts must not be negative.
func NewEmitConfig(contextLines, interhunkLines int, flags EmitFlags, findFunc FindFunc, hunkFunc HunkFunc,
	opts ...Option,
) (*EmitConfig, error) {
	if contextLines < 0 {
		return nil, fmt.Errorf("%w: context lines %d", ErrInvalidConfig, contextLines)
	}

	if interhunkLines < 0 {
		return nil, fmt.Errorf("%w: interhunk context lines %d", ErrInvalidConfig, interhunkLines)
	}

	set := resolve(opts)

	err := set.alloc.Acquire(KindEmitConfig, 0)
	if err != nil {
		return nil, err
	}

	return &EmitConfig{
		contextLines:   contextLines,
		interhunkLines: interhunkLines,
		flags:          flags,
		findFunc:       findFunc,
		hunkFunc:       hunkFunc,
		alloc:          set.alloc,
	}, nil
}

// ContextLines returns the number of context lines around each change.
// A nil EmitConfig reports DefaultContextLines.
func (c *EmitConfig) ContextLines() int {
	if c == nil {
		return DefaultContextLines
	}

	return c.contextLines
}

// InterhunkLines returns the extra gap under which adjacent hunks are merged.
func (c *EmitConfig) InterhunkLines() int {
	if c == nil {
		return 0
	}

	return c.interhunkLines
}

// Flags returns the emit flags.
func (c *EmitConfig) Flags() EmitFlags {
	if c == nil {
		return 0
	}

	return c.flags
}

// FindFunc returns the configured function-line hook, or nil.
func (c *EmitConfig) FindFunc() FindFunc {
	if c == nil {
		return nil
	}

	return c.findFunc
}

// HunkFunc returns the raw hunk consumer, or nil.
func (c *EmitConfig) HunkFunc() HunkFunc {
	if c == nil {
		return nil
	}

	return c.hunkFunc
}

// Destroy releases the configuration. It is safe to call more than once and on nil.
func (c *EmitConfig) Destroy() {
	if c == nil || c.destroyed {
		return
	}

	c.alloc.Release(KindEmitConfig, 0)
	c.findFunc = nil
	c.hunkFunc = nil
	c.destroyed = true
}

// DefaultFindFunc treats a line as a function line when it starts with a
// letter, '_' or '$'. This matches git's fallback when no driver is set.
func DefaultFindFunc(line []byte) (string, bool) {
	if len(line) == 0 {
		return "", false
	}

	ch := line[0]
	if !isAlpha(ch) && ch != '_' && ch != '$' {
		return "", false
	}

	name := bytes.TrimRight(line, " \t\r")
	if len(name) > maxFuncNameLen {
		name = name[:maxFuncNameLen]
	}

	return string(name), true
}

func isAlpha(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// SplitLines splits data into lines without their '\n' terminators.
// A trailing newline does not produce an empty final line.
func SplitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}

	lines := bytes.Split(data, []byte{'\n'})
	if len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// FunctionLine scans lines backwards from index before-1 and returns the index
// and header text of the first function line, or -1 when there is none.
func FunctionLine(lines [][]byte, before int, find FindFunc) (int, string) {
	if find == nil {
		find = DefaultFindFunc
	}

	for i := min(before, len(lines)) - 1; i >= 0; i-- {
		if name, ok := find(lines[i]); ok {
			return i, name
		}
	}

	return -1, ""
}
