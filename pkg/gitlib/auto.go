package gitlib

import (
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// AutoEngine diffs with libgit2 and hands calls whose options libgit2
// cannot honour to Fallback. Option checks run before any sink event, so a
// fallback never sees partial output.
type AutoEngine struct {
	*Engine

	Fallback xdiff.Engine
}

// NewAutoEngine wraps a fresh libgit2 engine around fallback.
func NewAutoEngine(fallback xdiff.Engine) (*AutoEngine, error) {
	eng, err := NewEngine()
	if err != nil {
		return nil, err
	}

	return &AutoEngine{Engine: eng, Fallback: fallback}, nil
}

// Name identifies the engine in logs and metrics.
func (*AutoEngine) Name() string { return "auto" }

// Diff implements xdiff.Engine.
func (a *AutoEngine) Diff(oldFile, newFile *xdiff.File, opts *xdiff.Options, cfg *xdiff.EmitConfig, sink xdiff.Sink) error {
	_, err := diffOptions(opts, cfg)
	if IsUnsupported(err) && a.Fallback != nil {
		return a.Fallback.Diff(oldFile, newFile, opts, cfg, sink)
	}

	return a.Engine.Diff(oldFile, newFile, opts, cfg, sink)
}
