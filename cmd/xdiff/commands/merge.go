package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/config"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/gitlib"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/render"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

const (
	// mergeArgCount is the number of arguments expected by the merge command.
	mergeArgCount = 3
	// maxLabels is the number of -L labels accepted: ours, base, theirs.
	maxLabels = 3
	// mergedFileMode is the mode of a merged file written in place.
	mergedFileMode = 0o644
)

// ErrTooManyLabels is returned when -L is given more than three times.
var ErrTooManyLabels = errors.New("at most three labels")

type mergeFlags struct {
	style      string
	favor      string
	level      string
	format     string
	repo       string
	labels     []string
	markerSize int
	diff3      bool
	zdiff3     bool
	ours       bool
	theirs     bool
	union      bool
	stdout     bool
}

// NewMergeCommand creates the merge command.
func NewMergeCommand(gf *globalFlags) *cobra.Command {
	mf := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge OURS BASE THEIRS",
		Short: "Three-way merge of two files against a common base",
		Long: `Merge the changes leading from BASE to THEIRS into OURS.

Like git merge-file, the result replaces OURS unless -p is given. Conflicts
are marked with <<<<<<<, ======= and >>>>>>> lines (plus ||||||| with
--diff3) and make the command exit with status 1.

Examples:
  xdiff merge -p mine.txt base.txt theirs.txt
  xdiff merge --diff3 -L mine -L base -L theirs mine.txt base.txt theirs.txt
  xdiff merge -p --repo . HEAD:a.go HEAD~3:a.go feature:a.go`,
		Args: cobra.ExactArgs(mergeArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, gf, mf, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&mf.style, "style", config.DefaultMergeStyle, "conflict style (merge, diff3, zdiff3)")
	fs.StringVar(&mf.favor, "favor", config.DefaultMergeFavor, "conflict resolution (none, ours, theirs, union)")
	fs.StringVar(&mf.level, "level", config.DefaultMergeLevel, "merge level (minimal, eager, zealous, zealous-alnum)")
	fs.StringVarP(&mf.format, "format", "f", "", "report format instead of the merged text (json, yaml, summary)")
	fs.StringVar(&mf.repo, "repo", "", "read rev:path arguments from this git repository")
	fs.StringArrayVarP(&mf.labels, "label", "L", nil, "conflict labels in order: ours, base, theirs")
	fs.IntVar(&mf.markerSize, "marker-size", config.DefaultMarkerSize, "conflict marker width")
	fs.BoolVar(&mf.diff3, "diff3", false, "shorthand for --style diff3")
	fs.BoolVar(&mf.zdiff3, "zdiff3", false, "shorthand for --style zdiff3")
	fs.BoolVar(&mf.ours, "ours", false, "shorthand for --favor ours")
	fs.BoolVar(&mf.theirs, "theirs", false, "shorthand for --favor theirs")
	fs.BoolVar(&mf.union, "union", false, "shorthand for --favor union")
	fs.BoolVarP(&mf.stdout, "stdout", "p", false, "print the result instead of replacing OURS")

	cmd.MarkFlagsMutuallyExclusive("diff3", "zdiff3", "style")
	cmd.MarkFlagsMutuallyExclusive("ours", "theirs", "union", "favor")

	return cmd
}

// apply overlays explicitly set flags on the configuration.
func (mf *mergeFlags) apply(cmd *cobra.Command, mc *config.MergeConfig) error {
	set := cmd.Flags().Changed

	overrideString(set("style"), &mc.Style, mf.style)
	overrideString(set("favor"), &mc.Favor, mf.favor)
	overrideString(set("level"), &mc.Level, mf.level)
	overrideInt(set("marker-size"), &mc.MarkerSize, mf.markerSize)

	overrideString(mf.diff3, &mc.Style, "diff3")
	overrideString(mf.zdiff3, &mc.Style, "zdiff3")
	overrideString(mf.ours, &mc.Favor, "ours")
	overrideString(mf.theirs, &mc.Favor, "theirs")
	overrideString(mf.union, &mc.Favor, "union")

	if len(mf.labels) > maxLabels {
		return ErrTooManyLabels
	}

	for i, dst := range []*string{&mc.OursLabel, &mc.AncestorLabel, &mc.TheirsLabel} {
		if i < len(mf.labels) {
			*dst = mf.labels[i]
		}
	}

	return nil
}

func runMerge(cmd *cobra.Command, gf *globalFlags, mf *mergeFlags, args []string) error {
	sess, err := newSession(gf, observability.ModeCLI, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer sess.close()

	cfg := sess.cfg

	err = mf.apply(cmd, &cfg.Merge)
	if err != nil {
		return err
	}

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	inputs, err := newInputReader(cmd.InOrStdin(), mf.repo, cfg.Limits)
	if err != nil {
		return err
	}
	defer inputs.Close()

	// Arguments are ours, base, theirs; the engine takes base first.
	data := make([][]byte, mergeArgCount)

	for i, name := range args {
		data[i], err = inputs.Read(name)
		if err != nil {
			return err
		}
	}

	doc, err := computeMerge(cmd, sess, data[1], data[0], data[2])
	if err != nil {
		return err
	}

	err = writeMerge(cmd, mf, args[0], doc)
	if err != nil {
		return err
	}

	if doc.Conflicts > 0 {
		return fmt.Errorf("%w: %d", ErrConflicts, doc.Conflicts)
	}

	return nil
}

func computeMerge(cmd *cobra.Command, sess *session, base, ours, theirs []byte) (render.MergeDocument, error) {
	tracker, err := sess.cfg.Limits.Allocator()
	if err != nil {
		return render.MergeDocument{}, err
	}

	alloc := xdiff.WithAllocator(tracker)

	opts, err := sess.cfg.Merge.Options(alloc)
	if err != nil {
		return render.MergeDocument{}, err
	}
	defer opts.Destroy()

	engine, err := gitlib.NewEngine()
	if err != nil {
		return render.MergeDocument{}, err
	}
	defer engine.Free()

	files := make([]*xdiff.File, 0, mergeArgCount)

	defer func() {
		for _, f := range files {
			f.Destroy()
		}
	}()

	for _, data := range [][]byte{base, ours, theirs} {
		f, fileErr := xdiff.NewFile(data, alloc)
		if fileErr != nil {
			return render.MergeDocument{}, fileErr
		}

		files = append(files, f)
	}

	recorder, err := observability.NewDiffMetrics(sess.providers.Meter)
	if err != nil {
		return render.MergeDocument{}, err
	}

	d := &xdiff.Differ{
		Engine:   engine,
		Logger:   sess.logger(),
		Tracer:   sess.providers.Tracer,
		Recorder: recorder,
	}

	res, err := d.Merge(cmd.Context(), files[0], files[1], files[2], opts)
	if err != nil {
		return render.MergeDocument{}, err
	}

	return render.NewMergeDocument(res, opts), nil
}

func writeMerge(cmd *cobra.Command, mf *mergeFlags, oursPath string, doc render.MergeDocument) error {
	out := cmd.OutOrStdout()

	switch mf.format {
	case "":
		if mf.stdout || mf.repo != "" || oursPath == stdinName {
			_, err := out.Write([]byte(doc.Contents))

			return err
		}

		err := os.WriteFile(oursPath, []byte(doc.Contents), mergedFileMode)
		if err != nil {
			return fmt.Errorf("write %s: %w", oursPath, err)
		}

		return nil
	case string(render.FormatSummary):
		return render.MergeSummary(out, doc)
	case string(render.FormatJSON):
		return render.JSON(out, doc)
	case string(render.FormatYAML):
		return render.YAML(out, doc)
	default:
		return fmt.Errorf("%w: %q", render.ErrUnknownFormat, mf.format)
	}
}
