// Package render turns diff and merge results into unified, JSON, YAML and
// summary output.
package render

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// ErrUnknownFormat is returned for an unrecognized output format.
var ErrUnknownFormat = errors.New("unknown format")

// Format selects an output renderer.
type Format string

// Output formats.
const (
	FormatUnified Format = "unified"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatSummary Format = "summary"
)

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatUnified, FormatJSON, FormatYAML, FormatSummary}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))

	switch f {
	case FormatUnified, FormatJSON, FormatYAML, FormatSummary:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Line is one rendered hunk line.
type Line struct {
	Kind string `json:"kind" yaml:"kind"`
	Text string `json:"text" yaml:"text"`
}

// Hunk is one rendered hunk.
type Hunk struct {
	OldStart int    `json:"old_start"          yaml:"old_start"`
	OldCount int    `json:"old_count"          yaml:"old_count"`
	NewStart int    `json:"new_start"          yaml:"new_start"`
	NewCount int    `json:"new_count"          yaml:"new_count"`
	Function string `json:"function,omitempty" yaml:"function,omitempty"`
	Lines    []Line `json:"lines"              yaml:"lines"`
}

// Document is a serializable copy of a diff Result. It stays valid after the
// Result is destroyed.
type Document struct {
	OldName string      `json:"old_name" yaml:"old_name"`
	NewName string      `json:"new_name" yaml:"new_name"`
	OldSize int         `json:"old_size" yaml:"old_size"`
	NewSize int         `json:"new_size" yaml:"new_size"`
	Engine  string      `json:"engine"   yaml:"engine"`
	Stats   xdiff.Stats `json:"stats"    yaml:"stats"`
	Hunks   []Hunk      `json:"hunks"    yaml:"hunks"`
}

// Source names and sizes the two compared inputs.
type Source struct {
	OldName string
	NewName string
	OldSize int
	NewSize int
	Engine  string
}

// NewDocument copies res into a Document.
func NewDocument(src Source, res *xdiff.Result) Document {
	doc := Document{
		OldName: src.OldName,
		NewName: src.NewName,
		OldSize: src.OldSize,
		NewSize: src.NewSize,
		Engine:  src.Engine,
		Stats:   res.Stats(),
		Hunks:   make([]Hunk, 0, res.HunkCount()),
	}

	for _, h := range res.Hunks() {
		out := Hunk{
			OldStart: h.OldStart(),
			OldCount: h.OldCount(),
			NewStart: h.NewStart(),
			NewCount: h.NewCount(),
			Function: h.Function(),
			Lines:    make([]Line, 0, h.ChangeCount()),
		}

		for _, c := range h.Changes() {
			out.Lines = append(out.Lines, Line{Kind: c.Kind().String(), Text: c.Text()})
		}

		doc.Hunks = append(doc.Hunks, out)
	}

	return doc
}

// MergeDocument is a serializable merge outcome.
type MergeDocument struct {
	Automergeable bool   `json:"automergeable" yaml:"automergeable"`
	Conflicts     int    `json:"conflicts"     yaml:"conflicts"`
	Size          int    `json:"size"          yaml:"size"`
	Style         string `json:"style"         yaml:"style"`
	Favor         string `json:"favor"         yaml:"favor"`
	Contents      string `json:"contents"      yaml:"contents"`
}

// NewMergeDocument copies res into a MergeDocument.
func NewMergeDocument(res *xdiff.MergeResult, opts *xdiff.MergeOptions) MergeDocument {
	return MergeDocument{
		Automergeable: res.Automergeable,
		Conflicts:     res.Conflicts,
		Size:          len(res.Contents),
		Style:         opts.Style().String(),
		Favor:         opts.Favor().String(),
		Contents:      string(res.Contents),
	}
}
