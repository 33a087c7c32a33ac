package commands_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdiffgo/cmd/xdiff/commands"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/render"
)

// cli runs the root command in an isolated directory with its own config.
type cli struct {
	t      *testing.T
	dir    string
	config string
}

func newCLI(t *testing.T, configBody string) *cli {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "xdiff.yaml")

	err := os.WriteFile(path, []byte(configBody), 0o600)
	require.NoError(t, err)

	return &cli{t: t, dir: dir, config: path}
}

func (c *cli) file(name, content string) string {
	c.t.Helper()

	path := filepath.Join(c.dir, name)

	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(c.t, err)

	return path
}

func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()

	root := commands.NewRootCommand()

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", c.config}, args...))

	err := root.Execute()

	return stdout.String(), stderr.String(), err
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, commands.ExitCode(nil))
	assert.Equal(t, 1, commands.ExitCode(commands.ErrDifferences))
	assert.Equal(t, 1, commands.ExitCode(errors.Join(errors.New("x"), commands.ErrConflicts)))
	assert.Equal(t, 2, commands.ExitCode(errors.New("boom")))
}

func TestRoot_Help(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")

	for _, sub := range []string{"diff", "merge", "mcp", "version"} {
		out, _, err := c.run("", sub, "--help")
		require.NoError(t, err, sub)
		assert.Contains(t, out, "xdiff", sub)
	}

	_, _, err := c.run("", "unknown")
	require.Error(t, err)
}

func TestDiff_Unified(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "output:\n  color: never\n")
	oldPath := c.file("old.txt", "one\ntwo\nthree\n")
	newPath := c.file("new.txt", "one\n2\nthree\n")

	out, _, err := c.run("", "diff", oldPath, newPath)
	require.NoError(t, err)

	assert.Contains(t, out, "--- "+oldPath)
	assert.Contains(t, out, "+++ "+newPath)
	assert.Contains(t, out, "@@ -1,3 +1,3 @@\n one\n-two\n+2\n three\n")

	_, _, err = c.run("", "diff", "--exit-code", oldPath, newPath)
	require.ErrorIs(t, err, commands.ErrDifferences)
}

func TestDiff_Identical(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")
	path := c.file("same.txt", "x\n")

	out, _, err := c.run("", "diff", "--exit-code", path, path)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDiff_Flags(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "output:\n  color: never\n")
	oldPath := c.file("old.txt", "a b\n# note\nkeep\n")
	newPath := c.file("new.txt", "a   b\n# changed note\nkeep\n")

	out, _, err := c.run("", "diff", "-w", "-I", "^#", oldPath, newPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, _, err = c.run("", "diff", "-U0", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "@@ -1,2 +1,2 @@")
	assert.NotContains(t, out, " keep")
}

func TestDiff_Stdin(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "output:\n  color: never\n")
	newPath := c.file("new.txt", "b\n")

	out, _, err := c.run("a\n", "diff", "-", newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "--- -")
	assert.Contains(t, out, "-a\n+b\n")

	_, _, err = c.run("a\n", "diff", "-", "-")
	require.ErrorIs(t, err, commands.ErrStdinTwice)
}

func TestDiff_JSONValidated(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")
	oldPath := c.file("old.txt", "a\n")
	newPath := c.file("new.txt", "b\n")

	out, _, err := c.run("", "diff", "-f", "json", "--validate", "--engine", "libgit2", oldPath, newPath)
	require.NoError(t, err)

	var doc render.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "libgit2", doc.Engine)
	assert.Equal(t, 1, doc.Stats.Additions)
	assert.Equal(t, 1, doc.Stats.Deletions)
	assert.Equal(t, 2, doc.OldSize)
}

func TestDiff_OutputFile(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")
	oldPath := c.file("old.txt", "a\n")
	newPath := c.file("new.txt", "b\n")
	outPath := filepath.Join(c.dir, "out.yaml")

	out, _, err := c.run("", "diff", "-f", "yaml", "-o", outPath, oldPath, newPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hunks:")
}

func TestDiff_FunctionNames(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "output:\n  color: never\n")
	src := "package main\n\nfunc main() {\n\ta := 1\n\tb := 2\n\tc := 3\n\td := 4\n\t_ = a + b + c + d\n}\n"
	oldPath := c.file("old.go", src)
	newPath := c.file("new.go", strings.Replace(src, "d := 4", "d := 5", 1))

	out, _, err := c.run("", "diff", "-p", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "@@ func main() {")
}

func TestDiff_Errors(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "limits:\n  max_file_size: 4B\n")
	small := c.file("small.txt", "a\n")
	big := c.file("big.txt", "0123456789\n")

	_, _, err := c.run("", "diff", small, big)
	require.ErrorIs(t, err, commands.ErrFileTooLarge)

	_, _, err = c.run("", "diff", small, filepath.Join(c.dir, "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = c.run("", "diff", "-f", "xml", small, small)
	require.ErrorIs(t, err, render.ErrUnknownFormat)

	_, _, err = c.run("", "diff", "-I", "(", small, small)
	require.Error(t, err)

	_, _, err = c.run("", "diff", "--repo", c.dir, "HEAD:a", "HEAD:b")
	require.Error(t, err)

	_, _, err = c.run("", "diff", small)
	require.Error(t, err)
}

func TestMerge_Clean(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")
	ours := c.file("ours.txt", "A\nb\nc\nd\ne\n")
	base := c.file("base.txt", "a\nb\nc\nd\ne\n")
	theirs := c.file("theirs.txt", "a\nb\nc\nd\nE\n")

	out, _, err := c.run("", "merge", "-p", ours, base, theirs)
	require.NoError(t, err)
	assert.Equal(t, "A\nb\nc\nd\nE\n", out)

	out, _, err = c.run("", "merge", ours, base, theirs)
	require.NoError(t, err)
	assert.Empty(t, out)

	merged, err := os.ReadFile(ours)
	require.NoError(t, err)
	assert.Equal(t, "A\nb\nc\nd\nE\n", string(merged))
}

func TestMerge_Conflict(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")
	ours := c.file("ours.txt", "mine\n")
	base := c.file("base.txt", "orig\n")
	theirs := c.file("theirs.txt", "yours\n")

	out, _, err := c.run("", "merge", "-p", "--diff3", "-L", "ours", "-L", "base", "-L", "theirs", ours, base, theirs)
	require.ErrorIs(t, err, commands.ErrConflicts)
	assert.Equal(t, 1, commands.ExitCode(err))

	assert.Contains(t, out, "<<<<<<< ours\nmine\n")
	assert.Contains(t, out, "||||||| base\norig\n")
	assert.Contains(t, out, "=======\nyours\n>>>>>>> theirs\n")

	out, _, err = c.run("", "merge", "--union", "-f", "json", ours, base, theirs)
	require.NoError(t, err)

	var doc render.MergeDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "union", doc.Favor)
	assert.Zero(t, doc.Conflicts)
	assert.Contains(t, doc.Contents, "mine\n")
	assert.Contains(t, doc.Contents, "yours\n")

	_, _, err = c.run("", "merge", "-L", "a", "-L", "b", "-L", "c", "-L", "d", ours, base, theirs)
	require.ErrorIs(t, err, commands.ErrTooManyLabels)

	_, _, err = c.run("", "merge", "--diff3", "--style", "merge", ours, base, theirs)
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "")

	out, _, err := c.run("", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "xdiff "))

	out, _, err = c.run("", "version", "-f", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"go_version"`)
}

func TestMCPCommand_Flags(t *testing.T) {
	t.Parallel()

	cmd := commands.NewRootCommand()

	mcpCmd, _, err := cmd.Find([]string{"mcp"})
	require.NoError(t, err)
	assert.Equal(t, "mcp", mcpCmd.Use)
	assert.NotEmpty(t, mcpCmd.Long)

	flag := mcpCmd.Flags().Lookup("debug")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.NotNil(t, mcpCmd.Flags().Lookup("metrics-addr"))
}

func TestDiff_Binary(t *testing.T) {
	t.Parallel()

	c := newCLI(t, "output:\n  color: never\n")
	oldPath := c.file("old.bin", "a\x00b\n")
	newPath := c.file("new.bin", "a\x00c\n")

	out, _, err := c.run("", "diff", "--exit-code", oldPath, newPath)
	require.ErrorIs(t, err, commands.ErrDifferences)
	assert.Equal(t, "Binary files "+oldPath+" and "+newPath+" differ\n", out)

	out, _, err = c.run("", "diff", oldPath, oldPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	out, _, err = c.run("", "diff", "-a", oldPath, newPath)
	require.NoError(t, err)
	assert.Contains(t, out, "+a\x00c")
}
