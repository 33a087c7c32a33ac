package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/config"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/gitlib"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/safeconv"
)

// stdinName selects standard input as a file argument.
const stdinName = "-"

// Input errors.
var (
	ErrFileTooLarge  = errors.New("file exceeds max_file_size")
	ErrStdinTwice    = errors.New("standard input given more than once")
	ErrNoRepoRevPath = errors.New("expected rev:path with --repo")
)

// inputReader loads the files named on the command line, either from disk
// and stdin or, with a repository, from rev:path specs.
type inputReader struct {
	stdin     io.Reader
	repo      *gitlib.Repository
	maxSize   int64
	stdinUsed bool
}

func newInputReader(stdin io.Reader, repoPath string, limits config.LimitsConfig) (*inputReader, error) {
	maxSize, err := limits.MaxFile()
	if err != nil {
		return nil, err
	}

	r := &inputReader{stdin: stdin, maxSize: maxSize}

	if repoPath != "" {
		r.repo, err = gitlib.OpenRepository(repoPath)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Close releases the repository.
func (r *inputReader) Close() {
	if r.repo != nil {
		r.repo.Free()
	}
}

// Read returns the contents of one argument.
func (r *inputReader) Read(name string) ([]byte, error) {
	data, err := r.read(name)
	if err != nil {
		return nil, err
	}

	if r.maxSize > 0 && int64(len(data)) > r.maxSize {
		return nil, fmt.Errorf("%w: %s is %s, limit %s", ErrFileTooLarge, name,
			humanize.Bytes(safeconv.MustIntToUint64(len(data))),
			humanize.Bytes(safeconv.Must[uint64](r.maxSize)))
	}

	return data, nil
}

func (r *inputReader) read(name string) ([]byte, error) {
	if r.repo != nil {
		data, err := r.repo.ReadRevisionFile(name)
		if errors.Is(err, gitlib.ErrNotBlob) {
			return nil, fmt.Errorf("%w: %w", ErrNoRepoRevPath, err)
		}

		return data, err
	}

	if name == stdinName {
		if r.stdinUsed {
			return nil, ErrStdinTwice
		}

		r.stdinUsed = true

		data, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}

		return data, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	return data, nil
}

// openOutput returns w for an empty path and otherwise creates the file.
func openOutput(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return w, func() error { return nil }, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}

	return f, f.Close, nil
}

// useColor resolves the color mode. Auto colors only a terminal stdout.
func useColor(mode, outputPath string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return outputPath == "" && !color.NoColor
	}
}
