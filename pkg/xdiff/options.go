package xdiff

import (
	"fmt"
	"slices"
	"strings"
)

// Flags steer how the engine compares lines. Bit values match the classic
// xdiff parameter flags so they can be passed straight through to engines
// that understand them.
type Flags uint64

// Diff flags.
const (
	FlagNeedMinimal            Flags = 1 << 0
	FlagIgnoreWhitespace       Flags = 1 << 1
	FlagIgnoreWhitespaceChange Flags = 1 << 2
	FlagIgnoreWhitespaceAtEOL  Flags = 1 << 3
	FlagIgnoreCRAtEOL          Flags = 1 << 4
	FlagIgnoreBlankLines       Flags = 1 << 7
	FlagPatienceDiff           Flags = 1 << 14
	FlagHistogramDiff          Flags = 1 << 15
	FlagIndentHeuristic        Flags = 1 << 23

	// WhitespaceFlags groups every flag that changes line equality.
	WhitespaceFlags = FlagIgnoreWhitespace | FlagIgnoreWhitespaceChange |
		FlagIgnoreWhitespaceAtEOL | FlagIgnoreCRAtEOL
)

type flagName struct {
	flag Flags
	name string
}

var flagNames = []flagName{ //nolint:gochecknoglobals // lookup table
	{FlagNeedMinimal, "minimal"},
	{FlagIgnoreWhitespace, "ignore-whitespace"},
	{FlagIgnoreWhitespaceChange, "ignore-whitespace-change"},
	{FlagIgnoreWhitespaceAtEOL, "ignore-whitespace-at-eol"},
	{FlagIgnoreCRAtEOL, "ignore-cr-at-eol"},
	{FlagIgnoreBlankLines, "ignore-blank-lines"},
	{FlagPatienceDiff, "patience"},
	{FlagHistogramDiff, "histogram"},
	{FlagIndentHeuristic, "indent-heuristic"},
}

// ParseFlags converts flag names such as "ignore-whitespace" into Flags.
func ParseFlags(names []string) (Flags, error) {
	var flags Flags

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		idx := slices.IndexFunc(flagNames, func(fn flagName) bool { return fn.name == name })
		if idx < 0 {
			return 0, fmt.Errorf("%w: unknown diff flag %q", ErrInvalidConfig, name)
		}

		flags |= flagNames[idx].flag
	}

	return flags, nil
}

// Names returns the names of the set flags in bit order.
func (f Flags) Names() []string {
	var names []string

	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}

	return names
}

// String joins the set flag names with '|'.
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}

	return strings.Join(f.Names(), "|")
}

// Options carries the diff flags together with the ignore patterns and
// anchors it owns. Destroying the Options destroys every pattern in it.
type Options struct {
	flags     Flags
	patterns  []*Pattern
	anchors   []string
	alloc     Allocator
	destroyed bool
}

// NewOptions builds Options, taking ownership of patterns and copying
// anchors. Patterns are not recompiled. When NewOptions fails none of the
// patterns are taken and the caller still owns them.
func NewOptions(flags Flags, patterns []*Pattern, anchors []string, opts ...Option) (*Options, error) {
	set := resolve(opts)

	for i, p := range patterns {
		switch {
		case p == nil:
			return nil, fmt.Errorf("%w: pattern %d is nil", ErrInvalidConfig, i)
		case p.destroyed:
			return nil, fmt.Errorf("%w: pattern %d (%q)", ErrDestroyed, i, p.source)
		case p.owner != nil:
			return nil, fmt.Errorf("%w: pattern %d (%q)", ErrPatternOwned, i, p.source)
		}

		if slices.Index(patterns, p) != i {
			return nil, fmt.Errorf("%w: pattern %d (%q) listed twice", ErrPatternOwned, i, p.source)
		}
	}

	err := set.alloc.Acquire(KindOptions, 0)
	if err != nil {
		return nil, err
	}

	copied := make([]string, 0, len(anchors))

	for _, anchor := range anchors {
		acqErr := set.alloc.Acquire(KindAnchor, len(anchor))
		if acqErr != nil {
			for _, done := range copied {
				set.alloc.Release(KindAnchor, len(done))
			}

			set.alloc.Release(KindOptions, 0)

			return nil, acqErr
		}

		copied = append(copied, strings.Clone(anchor))
	}

	o := &Options{
		flags:    flags,
		patterns: slices.Clone(patterns),
		anchors:  copied,
		alloc:    set.alloc,
	}

	for _, p := range o.patterns {
		p.owner = o
	}

	return o, nil
}

// Flags returns the diff flags. A nil Options has no flags.
func (o *Options) Flags() Flags {
	if o == nil {
		return 0
	}

	return o.flags
}

// PatternCount returns the number of owned ignore patterns.
func (o *Options) PatternCount() int {
	if o == nil {
		return 0
	}

	return len(o.patterns)
}

// Pattern returns the ignore pattern at index i.
func (o *Options) Pattern(i int) (*Pattern, error) {
	if o == nil || o.destroyed {
		return nil, ErrDestroyed
	}

	if i < 0 || i >= len(o.patterns) {
		return nil, fmt.Errorf("%w: pattern %d of %d", ErrOutOfRange, i, len(o.patterns))
	}

	return o.patterns[i], nil
}

// AnchorCount returns the number of anchors.
func (o *Options) AnchorCount() int {
	if o == nil {
		return 0
	}

	return len(o.anchors)
}

// Anchor returns the anchor at index i.
func (o *Options) Anchor(i int) (string, error) {
	if o == nil || o.destroyed {
		return "", ErrDestroyed
	}

	if i < 0 || i >= len(o.anchors) {
		return "", fmt.Errorf("%w: anchor %d of %d", ErrOutOfRange, i, len(o.anchors))
	}

	return o.anchors[i], nil
}

// Anchors returns a copy of the anchor list.
func (o *Options) Anchors() []string {
	if o == nil {
		return nil
	}

	return slices.Clone(o.anchors)
}

// Ignored reports whether line matches any of the ignore patterns.
func (o *Options) Ignored(line []byte) bool {
	if o == nil {
		return false
	}

	for _, p := range o.patterns {
		if p.Match(line) {
			return true
		}
	}

	return false
}

// Destroy destroys every owned pattern, frees the anchor copies and then the
// Options itself. It is safe to call more than once and on nil.
func (o *Options) Destroy() {
	if o == nil || o.destroyed {
		return
	}

	for _, p := range o.patterns {
		p.Destroy()
		p.owner = nil
	}

	for _, anchor := range o.anchors {
		o.alloc.Release(KindAnchor, len(anchor))
	}

	o.alloc.Release(KindOptions, 0)
	o.patterns = nil
	o.anchors = nil
	o.destroyed = true
}
