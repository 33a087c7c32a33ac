package xdiff_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// lines renders a hunk as unified-diff body lines.
func lines(t *testing.T, h *xdiff.Hunk) []string {
	t.Helper()

	out := make([]string, 0, h.ChangeCount())
	for _, c := range h.Changes() {
		out = append(out, string(c.Kind().Prefix())+c.Text())
	}

	return out
}

func diff(t *testing.T, oldText, newText string, opts *xdiff.Options, cfg *xdiff.EmitConfig) *xdiff.Result {
	t.Helper()

	a, err := xdiff.NewFile([]byte(oldText))
	require.NoError(t, err)
	t.Cleanup(a.Destroy)

	b, err := xdiff.NewFile([]byte(newText))
	require.NoError(t, err)
	t.Cleanup(b.Destroy)

	res, err := xdiff.SimpleDiff(a, b, opts, cfg)
	require.NoError(t, err)
	t.Cleanup(res.Destroy)

	return res
}

func emitConfig(t *testing.T, ctx, interhunk int, flags xdiff.EmitFlags) *xdiff.EmitConfig {
	t.Helper()

	cfg, err := xdiff.NewEmitConfig(ctx, interhunk, flags, nil, nil)
	require.NoError(t, err)
	t.Cleanup(cfg.Destroy)

	return cfg
}

func numbered(n int) string {
	var sb strings.Builder

	for i := 1; i <= n; i++ {
		sb.WriteString(strings.Repeat("l", i%5+1))
		sb.WriteString(string(rune('0' + i%10)))
		sb.WriteByte('\n')
	}

	return sb.String()
}

func replaceLine(text string, idx int, repl string) string {
	parts := strings.Split(text, "\n")
	parts[idx] = repl

	return strings.Join(parts, "\n")
}

func TestSimpleDiff_SingleLineChange(t *testing.T) {
	t.Parallel()

	res := diff(t, "a\n", "b\n", nil, nil)
	require.Equal(t, 1, res.HunkCount())

	h, err := res.Hunk(0)
	require.NoError(t, err)

	assert.Equal(t, xdiff.HunkHeader{OldStart: 1, OldCount: 1, NewStart: 1, NewCount: 1}, h.Header())
	assert.Equal(t, []string{"-a", "+b"}, lines(t, h))
}

func TestSimpleDiff_Identical(t *testing.T) {
	t.Parallel()

	assert.Zero(t, diff(t, "same\ntext\n", "same\ntext\n", nil, nil).HunkCount())
	assert.Zero(t, diff(t, "", "", nil, nil).HunkCount())
}

func TestSimpleDiff_ContextLines(t *testing.T) {
	t.Parallel()

	oldText := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	newText := "1\n2\n3\n4\nfive\n6\n7\n8\n9\n10\n"

	res := diff(t, oldText, newText, nil, nil)
	require.Equal(t, 1, res.HunkCount())

	h, err := res.Hunk(0)
	require.NoError(t, err)

	assert.Equal(t, xdiff.HunkHeader{OldStart: 2, OldCount: 7, NewStart: 2, NewCount: 7}, h.Header())
	assert.Equal(t, []string{" 2", " 3", " 4", "-5", "+five", " 6", " 7", " 8"}, lines(t, h))

	zero := diff(t, oldText, newText, nil, emitConfig(t, 0, 0, 0))
	h, err = zero.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"-5", "+five"}, lines(t, h))
	assert.Equal(t, 5, h.OldStart())
}

func TestSimpleDiff_HugeContext(t *testing.T) {
	t.Parallel()

	oldText := "a\nb\nc\n"
	newText := "a\nX\nc\n"

	for _, cfg := range []*xdiff.EmitConfig{
		emitConfig(t, math.MaxInt, 0, 0),
		emitConfig(t, math.MaxInt/2+1, math.MaxInt, 0),
		emitConfig(t, 1, math.MaxInt, 0),
	} {
		res := diff(t, oldText, newText, nil, cfg)
		require.Equal(t, 1, res.HunkCount())

		h, err := res.Hunk(0)
		require.NoError(t, err)
		assert.Equal(t, xdiff.HunkHeader{OldStart: 1, OldCount: 3, NewStart: 1, NewCount: 3}, h.Header())
		assert.Equal(t, []string{" a", "-b", "+X", " c"}, lines(t, h))
	}
}

func TestSimpleDiff_PureInsertAndDelete(t *testing.T) {
	t.Parallel()

	res := diff(t, "", "x\ny\n", nil, nil)
	h, err := res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, xdiff.HunkHeader{OldStart: 0, OldCount: 0, NewStart: 1, NewCount: 2}, h.Header())
	assert.Equal(t, []string{"+x", "+y"}, lines(t, h))

	res = diff(t, "x\ny\n", "", nil, nil)
	h, err = res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, xdiff.HunkHeader{OldStart: 1, OldCount: 2, NewStart: 0, NewCount: 0}, h.Header())
	assert.Equal(t, []string{"-x", "-y"}, lines(t, h))
}

func TestSimpleDiff_HunkSplittingAndInterhunk(t *testing.T) {
	t.Parallel()

	oldText := "1\n2\n3\n4\n5\n6\n7\n8\n9\n10\n"
	newText := "1\nB\n3\n4\n5\n6\n7\n8\nI\n10\n"

	split := diff(t, oldText, newText, nil, emitConfig(t, 1, 0, 0))
	require.Equal(t, 2, split.HunkCount())

	first, err := split.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{" 1", "-2", "+B", " 3"}, lines(t, first))

	second, err := split.Hunk(1)
	require.NoError(t, err)
	assert.Equal(t, xdiff.HunkHeader{OldStart: 8, OldCount: 3, NewStart: 8, NewCount: 3}, second.Header())

	merged := diff(t, oldText, newText, nil, emitConfig(t, 1, 4, 0))
	require.Equal(t, 1, merged.HunkCount())

	only, err := merged.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, xdiff.HunkHeader{OldStart: 1, OldCount: 10, NewStart: 1, NewCount: 10}, only.Header())
}

func TestSimpleDiff_WhitespaceFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   xdiff.Flags
		oldText string
		newText string
		hunks   int
	}{
		{"exact", 0, "a b\n", "a  b\n", 1},
		{"ignore all", xdiff.FlagIgnoreWhitespace, "a b\n", "ab\n", 0},
		{"ignore change", xdiff.FlagIgnoreWhitespaceChange, "a b\n", "a \t b  \n", 0},
		{"ignore change keeps insertion", xdiff.FlagIgnoreWhitespaceChange, "ab\n", "a b\n", 1},
		{"ignore at eol", xdiff.FlagIgnoreWhitespaceAtEOL, "x\n", "x  \t\n", 0},
		{"ignore cr", xdiff.FlagIgnoreCRAtEOL, "x\ny\n", "x\r\ny\r\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts, err := xdiff.NewOptions(tt.flags, nil, nil)
			require.NoError(t, err)
			t.Cleanup(opts.Destroy)

			assert.Equal(t, tt.hunks, diff(t, tt.oldText, tt.newText, opts, nil).HunkCount())
		})
	}
}

func TestSimpleDiff_IgnorePatterns(t *testing.T) {
	t.Parallel()

	p := xdiff.MustCompilePattern("^#", xdiff.PatternExtended)

	opts, err := xdiff.NewOptions(0, []*xdiff.Pattern{p}, nil)
	require.NoError(t, err)
	t.Cleanup(opts.Destroy)

	assert.Zero(t, diff(t, "x\n# one\ny\n", "x\n# two\ny\n", opts, nil).HunkCount())

	// An ignorable change next to a real one is still shown.
	res := diff(t, "x\n# one\ny\n", "x\n# two\nz\n", opts, emitConfig(t, 0, 0, 0))
	require.Equal(t, 1, res.HunkCount())

	h, err := res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"-# one", "-y", "+# two", "+z"}, lines(t, h))
}

func TestSimpleDiff_IgnoreBlankLines(t *testing.T) {
	t.Parallel()

	opts, err := xdiff.NewOptions(xdiff.FlagIgnoreBlankLines, nil, nil)
	require.NoError(t, err)
	t.Cleanup(opts.Destroy)

	assert.Zero(t, diff(t, "a\nb\n", "a\n\n  \nb\n", opts, nil).HunkCount())
	assert.Equal(t, 1, diff(t, "a\nb\n", "a\n\nc\n", opts, nil).HunkCount())
}

func TestSimpleDiff_Anchors(t *testing.T) {
	t.Parallel()

	opts, err := xdiff.NewOptions(0, nil, []string{"anchor"})
	require.NoError(t, err)
	t.Cleanup(opts.Destroy)

	res := diff(t, "x\nanchor\ny\n", "y\nanchor\nx\n", opts, emitConfig(t, 0, 0, 0))
	require.Equal(t, 2, res.HunkCount())

	first, err := res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"-x", "+y"}, lines(t, first))

	second, err := res.Hunk(1)
	require.NoError(t, err)
	assert.Equal(t, xdiff.HunkHeader{OldStart: 3, OldCount: 1, NewStart: 3, NewCount: 1}, second.Header())
	assert.Equal(t, []string{"-y", "+x"}, lines(t, second))
}

func TestSimpleDiff_FunctionNames(t *testing.T) {
	t.Parallel()

	oldText := "func main() {\n\tx := 1\n\ty := 2\n\tz := 3\n\tw := 4\n}\n"
	newText := replaceLine(oldText, 3, "\tz := 30")

	res := diff(t, oldText, newText, nil, emitConfig(t, 1, 0, xdiff.EmitFuncNames))
	h, err := res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, "func main() {", h.Function())
	assert.Equal(t, 3, h.OldStart())

	find := func(line []byte) (string, bool) {
		if strings.HasPrefix(string(line), "func ") {
			return "custom", true
		}

		return "", false
	}

	cfg, err := xdiff.NewEmitConfig(1, 0, xdiff.EmitFuncNames|xdiff.EmitFuncContext, find, nil)
	require.NoError(t, err)
	t.Cleanup(cfg.Destroy)

	res = diff(t, oldText, newText, nil, cfg)
	h, err = res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, 1, h.OldStart())
	assert.Equal(t, " func main() {", lines(t, h)[0])
}

func TestSimpleDiff_HunkFunc(t *testing.T) {
	t.Parallel()

	var got [][4]int

	cfg, err := xdiff.NewEmitConfig(0, 0, 0, nil, func(os, oc, ns, nc int) error {
		got = append(got, [4]int{os, oc, ns, nc})

		return nil
	})
	require.NoError(t, err)
	t.Cleanup(cfg.Destroy)

	res := diff(t, "a\nb\nc\n", "a\nB\nc\n", nil, cfg)

	assert.Zero(t, res.HunkCount())
	assert.Equal(t, [][4]int{{2, 1, 2, 1}}, got)
}

func TestSimpleDiff_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	res := diff(t, "a\nb", "a\nc", nil, nil)
	h, err := res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, []string{" a", "-b", "+c"}, lines(t, h))
}

func TestSimpleDiff_LargeInput(t *testing.T) {
	t.Parallel()

	oldText := numbered(2000)
	newText := replaceLine(oldText, 1000, "changed")

	opts, err := xdiff.NewOptions(xdiff.FlagNeedMinimal, nil, nil)
	require.NoError(t, err)
	t.Cleanup(opts.Destroy)

	res := diff(t, oldText, newText, opts, nil)
	require.Equal(t, 1, res.HunkCount())

	st := res.Stats()
	assert.Equal(t, 1, st.Additions)
	assert.Equal(t, 1, st.Deletions)
	assert.Equal(t, 6, st.Context)
}
