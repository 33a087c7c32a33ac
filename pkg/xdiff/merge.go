package xdiff

import (
	"fmt"
	"strings"
)

// DefaultMarkerSize is the conflict marker width used by git.
const DefaultMarkerSize = 7

// MergeLevel controls how aggressively conflicting regions are shrunk.
type MergeLevel int

// Merge levels.
const (
	MergeMinimal MergeLevel = iota
	MergeEager
	MergeZealous
	MergeZealousAlnum
)

// MergeFavor selects how conflicts are resolved automatically.
type MergeFavor int

// Merge favor modes.
const (
	FavorNone MergeFavor = iota
	FavorOurs
	FavorTheirs
	FavorUnion
)

// MergeStyle selects the conflict marker layout.
type MergeStyle int

// Merge styles.
const (
	StyleNormal MergeStyle = iota
	StyleDiff3
	StyleZealousDiff3
)

//nolint:gochecknoglobals // lookup tables
var (
	mergeLevelNames = []string{"minimal", "eager", "zealous", "zealous-alnum"}
	mergeFavorNames = []string{"none", "ours", "theirs", "union"}
	mergeStyleNames = []string{"merge", "diff3", "zdiff3"}
)

func (l MergeLevel) String() string { return enumName(mergeLevelNames, int(l)) }
func (f MergeFavor) String() string { return enumName(mergeFavorNames, int(f)) }
func (s MergeStyle) String() string { return enumName(mergeStyleNames, int(s)) }

func enumName(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("unknown(%d)", v)
	}

	return names[v]
}

func parseEnum(names []string, what, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: unknown merge %s %q", ErrInvalidConfig, what, s)
}

// ParseMergeLevel parses "minimal", "eager", "zealous" or "zealous-alnum".
func ParseMergeLevel(s string) (MergeLevel, error) {
	v, err := parseEnum(mergeLevelNames, "level", s)

	return MergeLevel(v), err
}

// ParseMergeFavor parses "none", "ours", "theirs" or "union".
func ParseMergeFavor(s string) (MergeFavor, error) {
	v, err := parseEnum(mergeFavorNames, "favor", s)

	return MergeFavor(v), err
}

// ParseMergeStyle parses "merge", "diff3" or "zdiff3".
func ParseMergeStyle(s string) (MergeStyle, error) {
	v, err := parseEnum(mergeStyleNames, "style", s)

	return MergeStyle(v), err
}

// MergeOptions configures a three-way merge. Labels are copied.
type MergeOptions struct {
	markerSize    int
	level         MergeLevel
	favor         MergeFavor
	style         MergeStyle
	ancestorLabel string
	label1        string
	label2        string
	alloc         Allocator
	destroyed     bool
}

// NewMergeOptions validates and builds MergeOptions. A marker size of zero
// selects DefaultMarkerSize.
func NewMergeOptions(markerSize int, level MergeLevel, favor MergeFavor, style MergeStyle,
	ancestorLabel, label1, label2 string, opts ...Option,
) (*MergeOptions, error) {
	switch {
	case markerSize < 0:
		return nil, fmt.Errorf("%w: marker size %d", ErrInvalidConfig, markerSize)
	case level < MergeMinimal || level > MergeZealousAlnum:
		return nil, fmt.Errorf("%w: merge level %d", ErrInvalidConfig, level)
	case favor < FavorNone || favor > FavorUnion:
		return nil, fmt.Errorf("%w: merge favor %d", ErrInvalidConfig, favor)
	case style < StyleNormal || style > StyleZealousDiff3:
		return nil, fmt.Errorf("%w: merge style %d", ErrInvalidConfig, style)
	}

	if markerSize == 0 {
		markerSize = DefaultMarkerSize
	}

	set := resolve(opts)

	err := set.alloc.Acquire(KindMergeOptions, len(ancestorLabel)+len(label1)+len(label2))
	if err != nil {
		return nil, err
	}

	return &MergeOptions{
		markerSize:    markerSize,
		level:         level,
		favor:         favor,
		style:         style,
		ancestorLabel: strings.Clone(ancestorLabel),
		label1:        strings.Clone(label1),
		label2:        strings.Clone(label2),
		alloc:         set.alloc,
	}, nil
}

// MarkerSize returns the conflict marker width.
func (m *MergeOptions) MarkerSize() int {
	if m == nil {
		return DefaultMarkerSize
	}

	return m.markerSize
}

// Level returns the merge level.
func (m *MergeOptions) Level() MergeLevel {
	if m == nil {
		return MergeMinimal
	}

	return m.level
}

// Favor returns the favor mode.
func (m *MergeOptions) Favor() MergeFavor {
	if m == nil {
		return FavorNone
	}

	return m.favor
}

// Style returns the marker style.
func (m *MergeOptions) Style() MergeStyle {
	if m == nil {
		return StyleNormal
	}

	return m.style
}

// AncestorLabel returns the label for the common ancestor section.
func (m *MergeOptions) AncestorLabel() string {
	if m == nil {
		return ""
	}

	return m.ancestorLabel
}

// Label1 returns the label for the first (ours) side.
func (m *MergeOptions) Label1() string {
	if m == nil {
		return ""
	}

	return m.label1
}

// Label2 returns the label for the second (theirs) side.
func (m *MergeOptions) Label2() string {
	if m == nil {
		return ""
	}

	return m.label2
}

// Destroy frees the label copies. It is safe to call more than once and on nil.
func (m *MergeOptions) Destroy() {
	if m == nil || m.destroyed {
		return
	}

	m.alloc.Release(KindMergeOptions, len(m.ancestorLabel)+len(m.label1)+len(m.label2))
	m.ancestorLabel, m.label1, m.label2 = "", "", ""
	m.destroyed = true
}

// MergeResult is the outcome of a three-way merge.
type MergeResult struct {
	// Automergeable is false when Contents carries conflict markers.
	Automergeable bool
	// Contents is the merged file.
	Contents []byte
	// Conflicts counts conflict regions in Contents.
	Conflicts int
}

// CountConflicts counts lines that open a conflict region of the given
// marker width, i.e. lines starting with exactly size '<' characters.
func CountConflicts(contents []byte, size int) int {
	if size <= 0 {
		size = DefaultMarkerSize
	}

	marker := strings.Repeat("<", size)
	count := 0

	for _, line := range SplitLines(contents) {
		if !strings.HasPrefix(string(line), marker) {
			continue
		}

		if len(line) == size || line[size] == ' ' {
			count++
		}
	}

	return count
}
