package xdiff

import (
	"fmt"
	"regexp"
	"regexp/syntax"
	"strings"
)

// PatternFlags select the dialect and matching mode of a Pattern. Values
// follow the POSIX regcomp flag bits.
type PatternFlags uint

// Pattern compile flags.
const (
	// PatternExtended selects POSIX extended syntax. Without it the pattern is basic syntax.
	PatternExtended PatternFlags = 1 << iota
	// PatternICase matches case-insensitively.
	PatternICase
	// PatternNewline stops '.' at newlines and lets '^' and '$' match at line boundaries.
	PatternNewline
	// PatternNoSub is accepted for compatibility; submatches are never reported.
	PatternNoSub
)

// Pattern is a compiled regular expression used for ignore lists and
// function-name drivers. Once handed to NewOptions it belongs to that Options.
type Pattern struct {
	re        *regexp.Regexp
	source    string
	flags     PatternFlags
	alloc     Allocator
	owner     *Options
	destroyed bool
}

// CompilePattern compiles text with POSIX leftmost-longest semantics.
// On failure the returned error wraps ErrPatternSyntax and nothing is retained.
func CompilePattern(text string, flags PatternFlags, opts ...Option) (*Pattern, error) {
	set := resolve(opts)

	src := text
	if flags&PatternExtended == 0 {
		src = basicToExtended(text)
	}

	parseFlags := syntax.POSIX
	if flags&PatternICase != 0 {
		parseFlags |= syntax.FoldCase
	}

	if flags&PatternNewline == 0 {
		parseFlags |= syntax.DotNL | syntax.OneLine
	}

	tree, err := syntax.Parse(src, parseFlags)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPatternSyntax, text, err)
	}

	re, err := regexp.Compile(tree.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPatternSyntax, text, err)
	}

	re.Longest()

	err = set.alloc.Acquire(KindPattern, len(text))
	if err != nil {
		return nil, err
	}

	return &Pattern{
		re:     re,
		source: strings.Clone(text),
		flags:  flags,
		alloc:  set.alloc,
	}, nil
}

// MustCompilePattern is like CompilePattern but panics on error.
// Use only for patterns fixed at build time.
func MustCompilePattern(text string, flags PatternFlags) *Pattern {
	p, err := CompilePattern(text, flags)
	if err != nil {
		panic(err)
	}

	return p
}

// Source returns the pattern text as supplied to CompilePattern.
func (p *Pattern) Source() string {
	if p == nil {
		return ""
	}

	return p.source
}

// Flags returns the compile flags.
func (p *Pattern) Flags() PatternFlags {
	if p == nil {
		return 0
	}

	return p.flags
}

// Match reports whether line contains a match. A destroyed pattern never matches.
func (p *Pattern) Match(line []byte) bool {
	if p == nil || p.destroyed {
		return false
	}

	return p.re.Match(line)
}

// Find returns the leftmost-longest match in line, or nil.
func (p *Pattern) Find(line []byte) []byte {
	if p == nil || p.destroyed {
		return nil
	}

	return p.re.Find(line)
}

// Owned reports whether the pattern belongs to an Options.
func (p *Pattern) Owned() bool {
	return p != nil && p.owner != nil
}

// Destroy releases the compiled form. It is safe to call more than once.
func (p *Pattern) Destroy() {
	if p == nil || p.destroyed {
		return
	}

	p.alloc.Release(KindPattern, len(p.source))
	p.re = nil
	p.destroyed = true
}

// basicToExtended rewrites POSIX basic syntax into extended syntax: escaped
// group, interval and alternation operators become bare, bare ones become literals.
func basicToExtended(text string) string {
	var out strings.Builder

	out.Grow(len(text))

	for i := 0; i < len(text); i++ {
		ch := text[i]

		switch {
		case ch == '\\' && i+1 < len(text):
			next := text[i+1]
			i++

			if strings.IndexByte("(){}|+?", next) >= 0 {
				out.WriteByte(next)

				continue
			}

			out.WriteByte('\\')
			out.WriteByte(next)
		case strings.IndexByte("(){}|+?", ch) >= 0:
			out.WriteByte('\\')
			out.WriteByte(ch)
		default:
			out.WriteByte(ch)
		}
	}

	return out.String()
}
