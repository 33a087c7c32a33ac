package render

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/safeconv"
)

// ErrInvalidDocument is returned by ValidateJSON when the input does not
// follow the document schema.
var ErrInvalidDocument = errors.New("invalid document")

//go:embed schema.json
var documentSchema []byte

// UnifiedOptions control unified output.
type UnifiedOptions struct {
	// Color forces ANSI colors on or off regardless of the terminal.
	Color bool
	// NoHunkHeader drops the "@@" lines.
	NoHunkHeader bool
}

// Write renders doc in the given format.
func Write(w io.Writer, f Format, doc Document, opts UnifiedOptions) error {
	switch f {
	case FormatUnified:
		return Unified(w, doc, opts)
	case FormatJSON:
		return JSON(w, doc)
	case FormatYAML:
		return YAML(w, doc)
	case FormatSummary:
		return Summary(w, doc)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
}

type palette struct {
	file, hunk, add, del *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		file: color.New(color.Bold),
		hunk: color.New(color.FgCyan),
		add:  color.New(color.FgGreen),
		del:  color.New(color.FgRed),
	}

	for _, c := range []*color.Color{p.file, p.hunk, p.add, p.del} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// HunkHeader formats the "@@ -a,b +c,d @@ function" line of a hunk. A count
// of one is omitted, as git does.
func HunkHeader(h Hunk) string {
	var b strings.Builder

	b.WriteString("@@ -")
	writeRange(&b, h.OldStart, h.OldCount)
	b.WriteString(" +")
	writeRange(&b, h.NewStart, h.NewCount)
	b.WriteString(" @@")

	if h.Function != "" {
		b.WriteByte(' ')
		b.WriteString(h.Function)
	}

	return b.String()
}

func writeRange(b *strings.Builder, start, count int) {
	b.WriteString(strconv.Itoa(start))

	if count != 1 {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(count))
	}
}

func prefix(kind string) string {
	switch kind {
	case "addition":
		return "+"
	case "deletion":
		return "-"
	default:
		return " "
	}
}

// Unified writes doc as a unified diff. Nothing is written for an empty diff.
func Unified(w io.Writer, doc Document, opts UnifiedOptions) error {
	if len(doc.Hunks) == 0 {
		return nil
	}

	p := newPalette(opts.Color)
	ew := &errWriter{w: w}

	ew.print(p.file, "--- "+doc.OldName)
	ew.print(p.file, "+++ "+doc.NewName)

	for _, h := range doc.Hunks {
		if !opts.NoHunkHeader {
			ew.print(p.hunk, HunkHeader(h))
		}

		for _, l := range h.Lines {
			switch l.Kind {
			case "addition":
				ew.print(p.add, prefix(l.Kind)+l.Text)
			case "deletion":
				ew.print(p.del, prefix(l.Kind)+l.Text)
			default:
				ew.print(nil, prefix(l.Kind)+l.Text)
			}
		}
	}

	return ew.err
}

// errWriter keeps the first write error and skips later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) print(c *color.Color, line string) {
	if e.err != nil {
		return
	}

	if c == nil {
		_, e.err = fmt.Fprintln(e.w, line)

		return
	}

	_, e.err = c.Fprintln(e.w, line)
}

// JSON writes doc as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// YAML writes v as YAML.
func YAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	err = enc.Close()
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	return nil
}

func bytesOf(n int) string {
	return humanize.Bytes(safeconv.MustIntToUint64(n))
}

// Summary writes the totals of doc and one row per hunk as tables.
func Summary(w io.Writer, doc Document) error {
	totals := table.NewWriter()
	totals.SetStyle(table.StyleLight)
	totals.AppendHeader(table.Row{"", "Name", "Size"})
	totals.AppendRow(table.Row{"old", doc.OldName, bytesOf(doc.OldSize)})
	totals.AppendRow(table.Row{"new", doc.NewName, bytesOf(doc.NewSize)})
	totals.AppendFooter(table.Row{"engine", doc.Engine, ""})

	hunks := table.NewWriter()
	hunks.SetStyle(table.StyleLight)
	hunks.AppendHeader(table.Row{"#", "Range", "Function", "+", "-"})

	for i, h := range doc.Hunks {
		var adds, dels int

		for _, l := range h.Lines {
			switch l.Kind {
			case "addition":
				adds++
			case "deletion":
				dels++
			}
		}

		header := HunkHeader(Hunk{OldStart: h.OldStart, OldCount: h.OldCount, NewStart: h.NewStart, NewCount: h.NewCount})
		hunks.AppendRow(table.Row{i + 1, header, h.Function, adds, dels})
	}

	hunks.AppendFooter(table.Row{"", fmt.Sprintf("%d hunks", doc.Stats.Hunks), "",
		doc.Stats.Additions, doc.Stats.Deletions})

	_, err := fmt.Fprintf(w, "%s\n%s\n", totals.Render(), hunks.Render())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

// MergeSummary writes a one-table overview of a merge.
func MergeSummary(w io.Writer, doc MergeDocument) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Automergeable", "Conflicts", "Style", "Favor", "Size"})
	t.AppendRow(table.Row{doc.Automergeable, doc.Conflicts, doc.Style, doc.Favor, bytesOf(doc.Size)})

	_, err := fmt.Fprintln(w, t.Render())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

// ValidateJSON checks data against the document schema.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(documentSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if result.Valid() {
		return nil
	}

	descs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		descs = append(descs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(descs, "; "))
}
