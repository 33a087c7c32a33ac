package gitlib

import (
	"bytes"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/safeconv"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// regularFileMode is the git mode recorded for merged inputs.
const regularFileMode = 0o100644

// Merge implements xdiff.MergeEngine with git_merge_file.
// Zealous diff3 is rendered as diff3; merge levels at or above
// ZealousAlnum simplify alphanumeric-free regions.
func (e *Engine) Merge(ancestor, ours, theirs *xdiff.File, opts *xdiff.MergeOptions) (*xdiff.MergeResult, error) {
	mergeOpts, err := mergeFileOptions(opts)
	if err != nil {
		return nil, err
	}

	res, err := git2go.MergeFile(mergeInput(ancestor), mergeInput(ours), mergeInput(theirs), mergeOpts)
	if err != nil {
		return nil, fmt.Errorf("merge file: %w", err)
	}
	defer res.Free()

	contents := bytes.Clone(res.Contents)

	return &xdiff.MergeResult{
		Automergeable: res.Automergeable,
		Contents:      contents,
		Conflicts:     xdiff.CountConflicts(contents, opts.MarkerSize()),
	}, nil
}

func mergeInput(f *xdiff.File) git2go.MergeFileInput {
	in := git2go.MergeFileInput{Mode: regularFileMode}
	if f.Len() > 0 {
		in.Contents = f.Bytes()
	}

	return in
}

func mergeFileOptions(opts *xdiff.MergeOptions) (*git2go.MergeFileOptions, error) {
	marker, err := safeconv.Convert[uint16](opts.MarkerSize())
	if err != nil {
		return nil, fmt.Errorf("%w: marker size: %w", xdiff.ErrInvalidConfig, err)
	}

	out := &git2go.MergeFileOptions{
		AncestorLabel: opts.AncestorLabel(),
		OurLabel:      opts.Label1(),
		TheirLabel:    opts.Label2(),
		MarkerSize:    marker,
	}

	switch opts.Favor() {
	case xdiff.FavorNone:
		out.Favor = git2go.MergeFileFavorNormal
	case xdiff.FavorOurs:
		out.Favor = git2go.MergeFileFavorOurs
	case xdiff.FavorTheirs:
		out.Favor = git2go.MergeFileFavorTheirs
	case xdiff.FavorUnion:
		out.Favor = git2go.MergeFileFavorUnion
	}

	switch opts.Style() {
	case xdiff.StyleNormal:
		out.Flags |= git2go.MergeFileStyleMerge
	case xdiff.StyleDiff3, xdiff.StyleZealousDiff3:
		out.Flags |= git2go.MergeFileStyleDiff
	}

	if opts.Level() >= xdiff.MergeZealousAlnum {
		out.Flags |= git2go.MergeFileStyleSimplifyAlnum
	}

	return out, nil
}
