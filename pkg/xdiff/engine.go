package xdiff

// Line kinds as passed to Sink.OnLine. Only the sign is significant.
const (
	LineDeletion = -1
	LineContext  = 0
	LineAddition = 1
)

// HunkHeader describes a hunk as the engine opens it. Starts are 1-based
// except that an empty side reports the line after which it sits.
type HunkHeader struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Function string
}

// Sink receives engine output. Every OnLine belongs to the most recent OnHunk.
// A non-nil error aborts the engine run.
type Sink interface {
	OnHunk(h HunkHeader) error
	OnLine(kind int, content []byte) error
}

// Engine computes a line diff between two files and streams the hunks into sink.
// A non-nil error means the run failed; sink may have seen partial output.
type Engine interface {
	Diff(a, b *File, opts *Options, cfg *EmitConfig, sink Sink) error
}

// MergeEngine performs three-way file merges.
type MergeEngine interface {
	Merge(ancestor, ours, theirs *File, opts *MergeOptions) (*MergeResult, error)
}
