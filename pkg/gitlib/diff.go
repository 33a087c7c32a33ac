package gitlib

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/safeconv"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// unsupportedFlags are diff flags libgit2 does not expose.
const unsupportedFlags = xdiff.FlagIgnoreCRAtEOL | xdiff.FlagIgnoreBlankLines | xdiff.FlagHistogramDiff

// Engine is an xdiff.Engine and xdiff.MergeEngine backed by libgit2.
// Inputs are written to an in-memory object database for each call.
type Engine struct {
	mu   sync.Mutex
	repo *Repository
}

// NewEngine creates an Engine with its own in-memory repository.
func NewEngine() (*Engine, error) {
	repo, err := NewMemoryRepository()
	if err != nil {
		return nil, err
	}

	return &Engine{repo: repo}, nil
}

// Name identifies the engine in logs and metrics.
func (*Engine) Name() string { return "libgit2" }

// Free releases the in-memory repository.
func (e *Engine) Free() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repo != nil {
		e.repo.Free()
		e.repo = nil
	}
}

// Diff implements xdiff.Engine.
func (e *Engine) Diff(a, b *xdiff.File, opts *xdiff.Options, cfg *xdiff.EmitConfig, sink xdiff.Sink) error {
	diffOpts, err := diffOptions(opts, cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.repo == nil {
		return fmt.Errorf("%w: engine freed", xdiff.ErrInvalidState)
	}

	defer e.reset()

	oldBlob, err := e.repo.WriteBlob(a.Bytes())
	if err != nil {
		return err
	}
	defer oldBlob.Free()

	newBlob, err := e.repo.WriteBlob(b.Bytes())
	if err != nil {
		return err
	}
	defer newBlob.Free()

	state := &hunkState{
		sink:     sink,
		cfg:      cfg,
		oldLines: xdiff.SplitLines(a.Bytes()),
	}

	fileCallback := func(_ git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		return state.onHunk, nil
	}

	err = git2go.DiffBlobs(oldBlob.Native(), "", newBlob.Native(), "", &diffOpts, fileCallback, git2go.DiffDetailLines)
	if state.err != nil {
		return state.err
	}

	if err != nil {
		return fmt.Errorf("diff blobs: %w", err)
	}

	return nil
}

func (e *Engine) reset() {
	// Mempack reset failures leave only garbage objects behind.
	_ = e.repo.Reset() //nolint:errcheck // best-effort cleanup.
}

// diffOptions maps xdiff options onto libgit2 diff options.
func diffOptions(opts *xdiff.Options, cfg *xdiff.EmitConfig) (git2go.DiffOptions, error) {
	flags := opts.Flags()

	switch {
	case flags&unsupportedFlags != 0:
		return git2go.DiffOptions{}, fmt.Errorf("%w: diff flags %s", xdiff.ErrUnsupported, flags&unsupportedFlags)
	case opts.PatternCount() > 0:
		return git2go.DiffOptions{}, fmt.Errorf("%w: ignore patterns", xdiff.ErrUnsupported)
	case opts.AnchorCount() > 0:
		return git2go.DiffOptions{}, fmt.Errorf("%w: anchors", xdiff.ErrUnsupported)
	case cfg.Flags()&xdiff.EmitFuncContext != 0:
		return git2go.DiffOptions{}, fmt.Errorf("%w: function context", xdiff.ErrUnsupported)
	}

	diffOpts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return git2go.DiffOptions{}, fmt.Errorf("default diff options: %w", err)
	}

	diffOpts.Flags |= git2go.DiffForceText

	if flags&xdiff.FlagNeedMinimal != 0 {
		diffOpts.Flags |= git2go.DiffMinimal
	}

	if flags&xdiff.FlagIgnoreWhitespace != 0 {
		diffOpts.Flags |= git2go.DiffIgnoreWhitespace
	}

	if flags&xdiff.FlagIgnoreWhitespaceChange != 0 {
		diffOpts.Flags |= git2go.DiffIgnoreWhitespaceChange
	}

	if flags&xdiff.FlagIgnoreWhitespaceAtEOL != 0 {
		diffOpts.Flags |= git2go.DiffIgnoreWhitespaceEOL
	}

	if flags&xdiff.FlagPatienceDiff != 0 {
		diffOpts.Flags |= git2go.DiffPatience
	}

	diffOpts.ContextLines = clampUint32(cfg.ContextLines())
	diffOpts.InterhunkLines = clampUint32(cfg.InterhunkLines())

	return diffOpts, nil
}

// clampUint32 saturates a non-negative line count at math.MaxUint32.
func clampUint32(n int) uint32 {
	v, err := safeconv.Convert[uint32](n)
	if err != nil {
		return math.MaxUint32
	}

	return v
}

// hunkState forwards libgit2 hunk and line callbacks to an xdiff.Sink.
type hunkState struct {
	sink     xdiff.Sink
	cfg      *xdiff.EmitConfig
	oldLines [][]byte
	err      error
}

// stop records err so it survives libgit2's error translation.
func (s *hunkState) stop(err error) error {
	s.err = err

	return err
}

func (s *hunkState) onHunk(hunk git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
	hdr := xdiff.HunkHeader{
		OldStart: hunk.OldStart,
		OldCount: hunk.OldLines,
		NewStart: hunk.NewStart,
		NewCount: hunk.NewLines,
	}

	if hf := s.cfg.HunkFunc(); hf != nil {
		err := hf(hdr.OldStart, hdr.OldCount, hdr.NewStart, hdr.NewCount)
		if err != nil {
			return nil, s.stop(err)
		}

		return skipLine, nil
	}

	if s.cfg.Flags()&xdiff.EmitFuncNames != 0 {
		hdr.Function = s.functionName(hunk)
	}

	err := s.sink.OnHunk(hdr)
	if err != nil {
		return nil, s.stop(err)
	}

	return s.onLine, nil
}

func (s *hunkState) onLine(line git2go.DiffLine) error {
	var kind int

	switch line.Origin {
	case git2go.DiffLineContext:
		kind = xdiff.LineContext
	case git2go.DiffLineAddition:
		kind = xdiff.LineAddition
	case git2go.DiffLineDeletion:
		kind = xdiff.LineDeletion
	case git2go.DiffLineContextEOFNL,
		git2go.DiffLineAddEOFNL,
		git2go.DiffLineDelEOFNL,
		git2go.DiffLineFileHdr,
		git2go.DiffLineHunkHdr,
		git2go.DiffLineBinary:
		return nil
	}

	content := strings.TrimSuffix(line.Content, "\n")

	err := s.sink.OnLine(kind, []byte(content))
	if err != nil {
		return s.stop(err)
	}

	return nil
}

func skipLine(git2go.DiffLine) error { return nil }

// functionName uses the configured FindFunc when there is one and otherwise
// the text libgit2 placed after the hunk range.
func (s *hunkState) functionName(hunk git2go.DiffHunk) string {
	if find := s.cfg.FindFunc(); find != nil {
		before := hunk.OldStart
		if hunk.OldLines > 0 {
			before--
		}

		_, name := xdiff.FunctionLine(s.oldLines, before, find)

		return name
	}

	return headerFunction(hunk.Header)
}

// headerFunction extracts the trailing text of "@@ -a,b +c,d @@ text".
func headerFunction(header string) string {
	rest, ok := strings.CutPrefix(strings.TrimRight(header, "\r\n"), "@@")
	if !ok {
		return ""
	}

	_, text, ok := strings.Cut(rest, "@@")
	if !ok {
		return ""
	}

	return strings.TrimSpace(text)
}

// IsUnsupported reports whether err means libgit2 cannot honour the options,
// so the caller may fall back to the native engine.
func IsUnsupported(err error) bool {
	return errors.Is(err, xdiff.ErrUnsupported)
}
