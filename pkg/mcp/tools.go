package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/config"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/funcname"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/gitlib"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/render"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// Tool name constants.
const (
	ToolNameDiff  = "xdiff_diff"
	ToolNameMerge = "xdiff_merge"
)

// MaxInputBytes is the maximum size of each inline text input (1 MB).
const MaxInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	// ErrInputTooLarge indicates a text input exceeds MaxInputBytes.
	ErrInputTooLarge = errors.New("input exceeds maximum size")
	// ErrNegativeContext indicates a negative context line count.
	ErrNegativeContext = errors.New("context_lines must not be negative")
)

// Input types (auto-generate JSON schemas via struct tags).

// DiffInput is the input schema for the xdiff_diff tool.
type DiffInput struct {
	Old          string   `json:"old"                     jsonschema:"original text"`
	New          string   `json:"new"                     jsonschema:"modified text"`
	OldName      string   `json:"old_name,omitempty"      jsonschema:"label of the original text (default: a)"`
	NewName      string   `json:"new_name,omitempty"      jsonschema:"label of the modified text, also used to pick a function-name driver (default: b)"`
	Flags        []string `json:"flags,omitempty"         jsonschema:"diff flags, e.g. ignore-whitespace, ignore-blank-lines, patience, histogram, minimal"`
	Ignore       []string `json:"ignore,omitempty"        jsonschema:"extended regular expressions; changes whose lines all match do not open a hunk"`
	Anchors      []string `json:"anchors,omitempty"       jsonschema:"line prefixes forced to align"`
	ContextLines *int     `json:"context_lines,omitempty" jsonschema:"context lines around each change (default: 3)"`
	FuncNames    bool     `json:"func_names,omitempty"    jsonschema:"append the enclosing function name to each hunk header"`
	Engine       string   `json:"engine,omitempty"        jsonschema:"native, libgit2 or auto"`
	Format       string   `json:"format,omitempty"        jsonschema:"unified, json, yaml or summary (default: unified)"`
}

// MergeInput is the input schema for the xdiff_merge tool.
type MergeInput struct {
	Base        string `json:"base"                   jsonschema:"common ancestor text"`
	Ours        string `json:"ours"                   jsonschema:"our version"`
	Theirs      string `json:"theirs"                 jsonschema:"their version"`
	Style       string `json:"style,omitempty"        jsonschema:"merge, diff3 or zdiff3 (default: merge)"`
	Favor       string `json:"favor,omitempty"        jsonschema:"none, ours, theirs or union (default: none)"`
	Level       string `json:"level,omitempty"        jsonschema:"minimal, eager, zealous or zealous-alnum"`
	MarkerSize  int    `json:"marker_size,omitempty"  jsonschema:"conflict marker width (default: 7)"`
	BaseLabel   string `json:"base_label,omitempty"   jsonschema:"label for the base section of diff3 conflicts"`
	OursLabel   string `json:"ours_label,omitempty"   jsonschema:"label after the <<<<<<< marker"`
	TheirsLabel string `json:"theirs_label,omitempty" jsonschema:"label after the >>>>>>> marker"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// textResult builds a CallToolResult with rendered text and structured data.
func textResult(text string, value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: value}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return textResult(string(data), value)
}

// validateInputs checks every text input against MaxInputBytes.
func validateInputs(texts ...string) error {
	for _, text := range texts {
		if len(text) > MaxInputBytes {
			return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(text), MaxInputBytes)
		}
	}

	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}

// diffConfig overlays the call's options on the server defaults.
func (s *Server) diffConfig(in DiffInput) (config.DiffConfig, error) {
	dc := s.cfg.Diff

	if in.Flags != nil {
		dc.Flags = in.Flags
	}

	if in.Ignore != nil {
		dc.Ignore = in.Ignore
	}

	if in.Anchors != nil {
		dc.Anchors = in.Anchors
	}

	if in.ContextLines != nil {
		if *in.ContextLines < 0 {
			return dc, ErrNegativeContext
		}

		dc.ContextLines = *in.ContextLines
	}

	dc.FuncNames = dc.FuncNames || in.FuncNames

	return dc, nil
}

func (s *Server) handleDiff(ctx context.Context, _ *mcpsdk.CallToolRequest, in DiffInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateInputs(in.Old, in.New)
	if err != nil {
		return errorResult(err)
	}

	format, err := render.ParseFormat(orDefault(in.Format, string(render.FormatUnified)))
	if err != nil {
		return errorResult(err)
	}

	dc, err := s.diffConfig(in)
	if err != nil {
		return errorResult(err)
	}

	doc, err := s.diff(ctx, in, dc)
	if err != nil {
		return errorResult(err)
	}

	if format == render.FormatJSON {
		return jsonResult(doc)
	}

	var buf bytes.Buffer

	err = render.Write(&buf, format, doc, render.UnifiedOptions{NoHunkHeader: dc.NoHunkHeader})
	if err != nil {
		return errorResult(err)
	}

	return textResult(buf.String(), doc)
}

func (s *Server) diff(ctx context.Context, in DiffInput, dc config.DiffConfig) (render.Document, error) {
	opts, err := dc.Options()
	if err != nil {
		return render.Document{}, err
	}
	defer opts.Destroy()

	var find xdiff.FindFunc

	if dc.FuncNames {
		driver, owned, driverErr := s.cfg.Driver(funcname.Detect(in.NewName, []byte(in.New)))
		if driverErr != nil {
			return render.Document{}, driverErr
		}

		if owned {
			defer driver.Destroy()
		}

		find = driver.FindFunc()
	}

	emit, err := dc.EmitConfig(find)
	if err != nil {
		return render.Document{}, err
	}
	defer emit.Destroy()

	ec := s.cfg.Engine
	if in.Engine != "" {
		ec.Name = in.Engine
	}

	engine, release, err := ec.NewEngine()
	if err != nil {
		return render.Document{}, err
	}
	defer release()

	a, err := xdiff.NewFile([]byte(in.Old))
	if err != nil {
		return render.Document{}, err
	}
	defer a.Destroy()

	b, err := xdiff.NewFile([]byte(in.New))
	if err != nil {
		return render.Document{}, err
	}
	defer b.Destroy()

	res, err := s.differ(engine).Diff(ctx, a, b, opts, emit)
	if err != nil {
		return render.Document{}, err
	}
	defer res.Destroy()

	return render.NewDocument(render.Source{
		OldName: orDefault(in.OldName, "a"),
		NewName: orDefault(in.NewName, "b"),
		OldSize: a.Len(),
		NewSize: b.Len(),
		Engine:  ec.Name,
	}, res), nil
}

// mergeConfig overlays the call's options on the server defaults.
func (s *Server) mergeConfig(in MergeInput) config.MergeConfig {
	mc := s.cfg.Merge

	mc.Style = orDefault(in.Style, mc.Style)
	mc.Favor = orDefault(in.Favor, mc.Favor)
	mc.Level = orDefault(in.Level, mc.Level)
	mc.AncestorLabel = orDefault(in.BaseLabel, mc.AncestorLabel)
	mc.OursLabel = orDefault(in.OursLabel, mc.OursLabel)
	mc.TheirsLabel = orDefault(in.TheirsLabel, mc.TheirsLabel)

	if in.MarkerSize > 0 {
		mc.MarkerSize = in.MarkerSize
	}

	return mc
}

func (s *Server) handleMerge(ctx context.Context, _ *mcpsdk.CallToolRequest, in MergeInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateInputs(in.Base, in.Ours, in.Theirs)
	if err != nil {
		return errorResult(err)
	}

	mc := s.mergeConfig(in)

	opts, err := mc.Options()
	if err != nil {
		return errorResult(err)
	}
	defer opts.Destroy()

	engine, err := gitlib.NewEngine()
	if err != nil {
		return errorResult(err)
	}
	defer engine.Free()

	files := make([]*xdiff.File, 0, 3)

	defer func() {
		for _, f := range files {
			f.Destroy()
		}
	}()

	for _, text := range []string{in.Base, in.Ours, in.Theirs} {
		f, fileErr := xdiff.NewFile([]byte(text))
		if fileErr != nil {
			return errorResult(fileErr)
		}

		files = append(files, f)
	}

	res, err := s.differ(engine).Merge(ctx, files[0], files[1], files[2], opts)
	if err != nil {
		return errorResult(err)
	}

	return textResult(string(res.Contents), render.NewMergeDocument(res, opts))
}
