package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/config"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/funcname"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/observability"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/render"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// diffArgCount is the number of arguments expected by the diff command.
const diffArgCount = 2

// diffFlagNames maps boolean CLI flags to xdiff flag names.
var diffFlagNames = []struct{ flag, name string }{ //nolint:gochecknoglobals // lookup table
	{"ignore-all-space", "ignore-whitespace"},
	{"ignore-space-change", "ignore-whitespace-change"},
	{"ignore-space-at-eol", "ignore-whitespace-at-eol"},
	{"ignore-cr-at-eol", "ignore-cr-at-eol"},
	{"ignore-blank-lines", "ignore-blank-lines"},
	{"minimal", "minimal"},
	{"patience", "patience"},
	{"histogram", "histogram"},
	{"indent-heuristic", "indent-heuristic"},
}

type diffFlags struct {
	format       string
	output       string
	color        string
	engine       string
	repo         string
	ignore       []string
	anchors      []string
	contextLines int
	interhunk    int
	ignoreCase   bool
	funcNames    bool
	funcContext  bool
	noHunkHeader bool
	validate     bool
	exitCode     bool
	text         bool
	switches     map[string]*bool
}

// NewDiffCommand creates the diff command.
func NewDiffCommand(gf *globalFlags) *cobra.Command {
	df := &diffFlags{switches: make(map[string]*bool, len(diffFlagNames))}

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare two files line by line",
		Long: `Compare two files line by line and print the differing hunks.

Either argument may be "-" for standard input. With --repo, arguments are
rev:path specs read from the repository instead of the working tree.

Examples:
  xdiff diff old.go new.go                     # Unified diff
  xdiff diff -w -U1 old.go new.go              # Ignore whitespace, one context line
  xdiff diff -I '^//' old.go new.go            # Ignore comment-only changes
  xdiff diff --repo . HEAD~1:main.go HEAD:main.go
  xdiff diff -f summary old.go new.go          # Hunk table`,
		Args: cobra.ExactArgs(diffArgCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, gf, df, args[0], args[1])
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&df.format, "format", "f", config.DefaultFormat, "output format (unified, json, yaml, summary)")
	fs.StringVarP(&df.output, "output", "o", "", "output file (default: stdout)")
	fs.StringVar(&df.color, "color", config.DefaultColor, "colorize output (auto, always, never)")
	fs.StringVar(&df.engine, "engine", config.DefaultEngine, "diff engine (native, libgit2, auto)")
	fs.StringVar(&df.repo, "repo", "", "read rev:path arguments from this git repository")
	fs.StringArrayVarP(&df.ignore, "ignore-matching-lines", "I", nil,
		"ignore changes whose lines all match this regular expression")
	fs.StringArrayVar(&df.anchors, "anchored", nil, "align lines starting with this text")
	fs.IntVarP(&df.contextLines, "unified", "U", config.DefaultContextLines, "lines of context")
	fs.IntVar(&df.interhunk, "inter-hunk-context", config.DefaultInterhunkLines,
		"merge hunks separated by up to this many lines")
	fs.BoolVarP(&df.ignoreCase, "ignore-case", "i", false, "match -I patterns case-insensitively")
	fs.BoolVarP(&df.funcNames, "function-names", "p", false, "show the enclosing function in hunk headers")
	fs.BoolVarP(&df.funcContext, "function-context", "W", false, "extend hunks to the enclosing function")
	fs.BoolVar(&df.noHunkHeader, "no-hunk-header", false, "omit @@ hunk headers")
	fs.BoolVar(&df.validate, "validate", false, "validate the result against the JSON schema")
	fs.BoolVar(&df.exitCode, "exit-code", false, "exit with status 1 when the inputs differ")
	fs.BoolVarP(&df.text, "text", "a", false, "diff binary files as text")

	shorthands := map[string]string{"ignore-all-space": "w", "ignore-space-change": "b"}

	for _, fn := range diffFlagNames {
		df.switches[fn.flag] = fs.BoolP(fn.flag, shorthands[fn.flag], false, "diff flag "+fn.name)
	}

	return cmd
}

// apply overlays explicitly set flags on the configuration.
func (df *diffFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := fs.Changed

	for _, fn := range diffFlagNames {
		if *df.switches[fn.flag] && !slices.Contains(cfg.Diff.Flags, fn.name) {
			cfg.Diff.Flags = append(cfg.Diff.Flags, fn.name)
		}
	}

	if set("ignore-matching-lines") {
		cfg.Diff.Ignore = append(cfg.Diff.Ignore, df.ignore...)
	}

	if set("anchored") {
		cfg.Diff.Anchors = append(cfg.Diff.Anchors, df.anchors...)
	}

	overrideInt(set("unified"), &cfg.Diff.ContextLines, df.contextLines)
	overrideInt(set("inter-hunk-context"), &cfg.Diff.InterhunkLines, df.interhunk)
	overrideBool(set("ignore-case"), &cfg.Diff.IgnoreCase, df.ignoreCase)
	overrideBool(set("function-names"), &cfg.Diff.FuncNames, df.funcNames)
	overrideBool(set("function-context"), &cfg.Diff.FuncContext, df.funcContext)
	overrideBool(set("no-hunk-header"), &cfg.Diff.NoHunkHeader, df.noHunkHeader)
	overrideString(set("format"), &cfg.Output.Format, df.format)
	overrideString(set("color"), &cfg.Output.Color, df.color)
	overrideString(set("engine"), &cfg.Engine.Name, df.engine)
}

func overrideInt(set bool, dst *int, v int) {
	if set {
		*dst = v
	}
}

func overrideBool(set bool, dst *bool, v bool) {
	if set {
		*dst = v
	}
}

func overrideString(set bool, dst *string, v string) {
	if set {
		*dst = v
	}
}

func runDiff(cmd *cobra.Command, gf *globalFlags, df *diffFlags, oldName, newName string) error {
	sess, err := newSession(gf, observability.ModeCLI, cmd.ErrOrStderr(), false)
	if err != nil {
		return err
	}
	defer sess.close()

	cfg := sess.cfg
	df.apply(cmd.Flags(), cfg)

	err = cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	inputs, err := newInputReader(cmd.InOrStdin(), df.repo, cfg.Limits)
	if err != nil {
		return err
	}
	defer inputs.Close()

	oldData, err := inputs.Read(oldName)
	if err != nil {
		return err
	}

	newData, err := inputs.Read(newName)
	if err != nil {
		return err
	}

	if !df.text && (enry.IsBinary(oldData) || enry.IsBinary(newData)) {
		return reportBinary(cmd, df, oldName, newName, bytes.Equal(oldData, newData))
	}

	doc, err := computeDiff(cmd, sess, oldData, newData, render.Source{
		OldName: oldName,
		NewName: newName,
		Engine:  cfg.Engine.Name,
	})
	if err != nil {
		return err
	}

	err = writeDiff(cmd, df, cfg, doc)
	if err != nil {
		return err
	}

	if df.exitCode && len(doc.Hunks) > 0 {
		return ErrDifferences
	}

	return nil
}

// computeDiff runs the configured engine under the configured memory budget.
func computeDiff(cmd *cobra.Command, sess *session, oldData, newData []byte, src render.Source) (render.Document, error) {
	cfg := sess.cfg

	tracker, err := cfg.Limits.Allocator()
	if err != nil {
		return render.Document{}, err
	}

	alloc := xdiff.WithAllocator(tracker)

	opts, err := cfg.Diff.Options(alloc)
	if err != nil {
		return render.Document{}, err
	}
	defer opts.Destroy()

	var find xdiff.FindFunc

	if cfg.Diff.FuncNames || cfg.Diff.FuncContext {
		lang := funcname.Detect(src.NewName, newData)

		driver, owned, driverErr := cfg.Driver(lang)
		if driverErr != nil {
			return render.Document{}, driverErr
		}

		if owned {
			defer driver.Destroy()
		}

		sess.logger().Debug("function-name driver", "language", lang, "driver", driver.Name())

		find = driver.FindFunc()
	}

	emit, err := cfg.Diff.EmitConfig(find, alloc)
	if err != nil {
		return render.Document{}, err
	}
	defer emit.Destroy()

	engine, release, err := cfg.Engine.NewEngine()
	if err != nil {
		return render.Document{}, err
	}
	defer release()

	a, err := xdiff.NewFile(oldData, alloc)
	if err != nil {
		return render.Document{}, err
	}
	defer a.Destroy()

	b, err := xdiff.NewFile(newData, alloc)
	if err != nil {
		return render.Document{}, err
	}
	defer b.Destroy()

	recorder, err := observability.NewDiffMetrics(sess.providers.Meter)
	if err != nil {
		return render.Document{}, err
	}

	d := &xdiff.Differ{
		Engine:   engine,
		Options:  []xdiff.Option{alloc},
		Logger:   sess.logger(),
		Tracer:   sess.providers.Tracer,
		Recorder: recorder,
	}

	res, err := d.Diff(cmd.Context(), a, b, opts, emit)
	if err != nil {
		return render.Document{}, err
	}
	defer res.Destroy()

	src.OldSize = a.Len()
	src.NewSize = b.Len()

	return render.NewDocument(src, res), nil
}

func writeDiff(cmd *cobra.Command, df *diffFlags, cfg *config.Config, doc render.Document) error {
	format, err := render.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	if df.validate {
		err = validateDocument(doc)
		if err != nil {
			return err
		}
	}

	w, closeOutput, err := openOutput(df.output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	err = render.Write(w, format, doc, render.UnifiedOptions{
		Color:        useColor(cfg.Output.Color, df.output),
		NoHunkHeader: cfg.Diff.NoHunkHeader,
	})

	closeErr := closeOutput()
	if err != nil {
		return err
	}

	return closeErr
}

// reportBinary prints git's one-line notice for differing binary inputs.
func reportBinary(cmd *cobra.Command, df *diffFlags, oldName, newName string, equal bool) error {
	if equal {
		return nil
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Binary files %s and %s differ\n", oldName, newName)
	if err != nil {
		return err
	}

	if df.exitCode {
		return ErrDifferences
	}

	return nil
}

func validateDocument(doc render.Document) error {
	var buf bytes.Buffer

	err := json.NewEncoder(&buf).Encode(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	return render.ValidateJSON(buf.Bytes())
}
