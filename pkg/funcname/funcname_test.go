package funcname_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/funcname"
	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Go", funcname.Detect("pkg/main.go", nil))
	assert.Equal(t, "Python", funcname.Detect("/tmp/tool.py", nil))
}

func TestBuiltinDrivers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lang string
		line string
		want string
		ok   bool
	}{
		{"Go", "func (s *Server) Run(ctx context.Context) error {", "func (s *Server) Run(ctx context.Context) error {", true},
		{"Go", "type Config struct {", "type Config struct {", true},
		{"Go", "\treturn nil", "", false},
		{"Python", "    def handle(self, req):", "def handle(self, req):", true},
		{"Python", "class Parser(Base):", "class Parser(Base):", true},
		{"Python", "    return x", "", false},
		{"Java", "    public void run() {", "public void run() {", true},
		{"Java", "    if (ready) {", "", false},
		{"Java", "    return compute(x);", "", false},
		{"C", "int main(int argc, char **argv)", "int main(int argc, char **argv)", true},
		{"C", "cleanup:", "", false},
		{"Rust", "pub fn parse(input: &str) -> Result<Ast> {", "pub fn parse(input: &str) -> Result<Ast> {", true},
		{"Rust", "impl Display for Token {", "impl Display for Token {", true},
		{"Ruby", "  def call(env)", "def call(env)", true},
		{"Shell", "deploy() {", "deploy() {", true},
		{"Markdown", "## Usage", "## Usage", true},
		{"Markdown", "plain text", "", false},
		{"JavaScript", "export async function load(url) {", "export async function load(url) {", true},
	}

	for _, tt := range tests {
		d, ok := funcname.Lookup(tt.lang)
		require.True(t, ok, tt.lang)

		got, matched := d.Match([]byte(tt.line))
		assert.Equal(t, tt.ok, matched, "%s: %q", tt.lang, tt.line)
		assert.Equal(t, tt.want, got, "%s: %q", tt.lang, tt.line)
	}
}

func TestLanguages(t *testing.T) {
	t.Parallel()

	langs := funcname.Languages()
	assert.Contains(t, langs, "Go")
	assert.IsNonDecreasing(t, langs)

	for _, lang := range langs {
		d, ok := funcname.Lookup(lang)
		require.True(t, ok, lang)
		assert.Equal(t, lang, d.Name())
	}

	_, ok := funcname.Lookup("Brainfuck")
	assert.False(t, ok)
}

func TestForFile(t *testing.T) {
	t.Parallel()

	d := funcname.ForFile("main.go", []byte("package main\n"))
	require.NotNil(t, d)
	assert.Equal(t, "Go", d.Name())
	assert.NotNil(t, d.FindFunc())

	none := funcname.ForFile("notes.unknownext", nil)
	assert.Nil(t, none)
	assert.Nil(t, none.FindFunc())
	assert.Empty(t, none.Name())
}

func TestNewDriver(t *testing.T) {
	t.Parallel()

	d, err := funcname.NewDriver("ini", "!^;\n^\\[.*\\]", false)
	require.NoError(t, err)

	defer d.Destroy()

	name, ok := d.Match([]byte("[server]"))
	assert.True(t, ok)
	assert.Equal(t, "[server]", name)

	_, ok = d.Match([]byte("; [comment]"))
	assert.False(t, ok)

	_, err = funcname.NewDriver("empty", "\n", false)
	require.ErrorIs(t, err, funcname.ErrEmptyDriver)

	_, err = funcname.NewDriver("broken", "^(", false)
	require.ErrorIs(t, err, xdiff.ErrPatternSyntax)
}

func TestNewDriver_IgnoreCase(t *testing.T) {
	t.Parallel()

	d, err := funcname.NewDriver("sql", "^create (procedure|function) .*", true)
	require.NoError(t, err)

	defer d.Destroy()

	name, ok := d.Match([]byte("CREATE PROCEDURE refresh()"))
	assert.True(t, ok)
	assert.Equal(t, "CREATE PROCEDURE refresh()", name)
}

func TestMatch_Truncates(t *testing.T) {
	t.Parallel()

	d, ok := funcname.Lookup("Go")
	require.True(t, ok)

	line := "func " + strings.Repeat("x", 120)

	name, matched := d.Match([]byte(line))
	require.True(t, matched)
	assert.Len(t, name, 80)
}

func TestDriverNamesHunks(t *testing.T) {
	t.Parallel()

	oldText := "package main\n\nfunc helper() int {\n\treturn 1\n}\n\nfunc main() {\n\ta := 1\n\tb := 2\n\tc := 3\n\td := 4\n}\n"
	newText := "package main\n\nfunc helper() int {\n\treturn 1\n}\n\nfunc main() {\n\ta := 1\n\tb := 2\n\tc := 3\n\td := 5\n}\n"

	a, err := xdiff.NewFile([]byte(oldText))
	require.NoError(t, err)

	b, err := xdiff.NewFile([]byte(newText))
	require.NoError(t, err)

	cfg, err := xdiff.NewEmitConfig(xdiff.DefaultContextLines, 0, xdiff.EmitFuncNames,
		funcname.ForFile("main.go", a.Bytes()).FindFunc(), nil)
	require.NoError(t, err)

	d := &xdiff.Differ{Logger: slog.New(slog.DiscardHandler)}

	res, err := d.Diff(context.Background(), a, b, nil, cfg)
	require.NoError(t, err)

	defer res.Destroy()

	h, err := res.Hunk(0)
	require.NoError(t, err)
	assert.Equal(t, "func main() {", h.Function())
}
