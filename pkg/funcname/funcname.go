// Package funcname provides hunk-header function-name drivers, the regular
// expressions that decide which line names the code a hunk belongs to.
package funcname

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/src-d/enry/v2"

	"github.com/Sumatoshi-tech/xdiffgo/pkg/xdiff"
)

// maxNameLen bounds the function text placed in a hunk header.
const maxNameLen = 80

// ErrEmptyDriver is returned by NewDriver when no rule is given.
var ErrEmptyDriver = errors.New("driver has no rules")

// builtins maps enry language names to rule lists. A leading '!' marks a
// rule whose match disqualifies the line.
//
//nolint:gochecknoglobals // lookup table.
var builtins = map[string][]string{
	"Go": {
		`^func[ \t].*`,
		`^type[ \t].*(struct|interface).*`,
	},
	"Python": {
		`^[ \t]*((class|(async[ \t]+)?def)[ \t].*)$`,
	},
	"Ruby": {
		`^[ \t]*((class|module|def)[ \t].*)$`,
	},
	"Java": {
		`!^[ \t]*(catch|do|for|if|instanceof|new|return|switch|throw|while)`,
		`^[ \t]*(([A-Za-z_<>&\[\]?.,0-9]*[ \t]+)+[A-Za-z_][A-Za-z_0-9]*[ \t]*\([^;]*)$`,
	},
	"C": {
		`!^[ \t]*[A-Za-z_][A-Za-z_0-9]*:`,
		`^[A-Za-z_].*\(.*`,
	},
	"C++": {
		`!^[ \t]*[A-Za-z_][A-Za-z_0-9]*:`,
		`^((::[ \t]*)?[A-Za-z_].*)$`,
	},
	"Rust": {
		`^[ \t]*((pub(\([^)]+\))?[ \t]+)?((async|const|unsafe|extern[ \t]+"[^"]+")[ \t]+)?(struct|enum|union|mod|trait|fn|impl|macro_rules!)[< \t]+[^;]*)$`,
	},
	"PHP": {
		`^[ \t]*(((public|protected|private|static|abstract|final)[ \t]+)*function.*)$`,
		`^[ \t]*((((final|abstract)[ \t]+)?class|enum|interface|trait).*)$`,
	},
	"JavaScript": {
		`^[ \t]*((export[ \t]+)?(default[ \t]+)?(async[ \t]+)?function.*)$`,
		`^[ \t]*((export[ \t]+)?class[ \t].*)$`,
	},
	"TypeScript": {
		`^[ \t]*((export[ \t]+)?(default[ \t]+)?(async[ \t]+)?function.*)$`,
		`^[ \t]*((export[ \t]+)?(abstract[ \t]+)?(class|interface)[ \t].*)$`,
	},
	"Shell": {
		`^[ \t]*([A-Za-z_][A-Za-z0-9_]*[ \t]*\(\)[ \t]*.*|function[ \t]+.*)$`,
	},
	"Markdown": {
		`^ {0,3}#{1,6}[ \t].*`,
	},
	"CSS": {
		`![:;][ \t]*$`,
		`^[:@.#]?[_a-z0-9].*$`,
	},
}

type rule struct {
	pattern *xdiff.Pattern
	negate  bool
}

// Driver names hunks for one language.
type Driver struct {
	name  string
	rules []rule
}

// NewDriver compiles a driver from git's xfuncname form: one POSIX extended
// expression per line, where a leading '!' negates the rule.
func NewDriver(name, expr string, icase bool) (*Driver, error) {
	return compile(name, strings.Split(expr, "\n"), icase)
}

func compile(name string, exprs []string, icase bool) (*Driver, error) {
	flags := xdiff.PatternExtended
	if icase {
		flags |= xdiff.PatternICase
	}

	d := &Driver{name: name}

	for _, expr := range exprs {
		if expr == "" {
			continue
		}

		src, negate := strings.CutPrefix(expr, "!")

		p, err := xdiff.CompilePattern(src, flags)
		if err != nil {
			d.Destroy()

			return nil, fmt.Errorf("driver %s: %w", name, err)
		}

		d.rules = append(d.rules, rule{pattern: p, negate: negate})
	}

	if len(d.rules) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDriver, name)
	}

	return d, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	if d == nil {
		return ""
	}

	return d.name
}

// Match returns the function text of line, or false when line does not
// name a function. The first matching rule decides.
func (d *Driver) Match(line []byte) (string, bool) {
	for _, r := range d.rules {
		m := r.pattern.Find(line)
		if m == nil {
			continue
		}

		if r.negate {
			return "", false
		}

		m = bytes.TrimSpace(m)
		if len(m) > maxNameLen {
			m = m[:maxNameLen]
		}

		return string(m), true
	}

	return "", false
}

// FindFunc returns the driver as an xdiff.FindFunc. A nil driver yields nil,
// which engines treat as the default rule.
func (d *Driver) FindFunc() xdiff.FindFunc {
	if d == nil {
		return nil
	}

	return d.Match
}

// Destroy releases the compiled patterns.
func (d *Driver) Destroy() {
	if d == nil {
		return
	}

	for _, r := range d.rules {
		r.pattern.Destroy()
	}

	d.rules = nil
}

//nolint:gochecknoglobals // compiled once on first lookup.
var compiled = sync.OnceValue(func() map[string]*Driver {
	out := make(map[string]*Driver, len(builtins))

	for lang, exprs := range builtins {
		d, err := compile(lang, exprs, lang == "CSS")
		if err != nil {
			panic(err)
		}

		out[lang] = d
	}

	return out
})

// Lookup returns the built-in driver for an enry language name.
func Lookup(lang string) (*Driver, bool) {
	d, ok := compiled()[lang]

	return d, ok
}

// Languages lists the languages with a built-in driver, sorted.
func Languages() []string {
	langs := make([]string, 0, len(builtins))
	for lang := range builtins {
		langs = append(langs, lang)
	}

	slices.Sort(langs)

	return langs
}

// Detect returns the language of a file from its name and, when the name is
// ambiguous, its content.
func Detect(filename string, content []byte) string {
	return enry.GetLanguage(filepath.Base(filename), content)
}

// ForFile returns the built-in driver for a file, or nil when its language
// has none.
func ForFile(filename string, content []byte) *Driver {
	d, ok := Lookup(Detect(filename, content))
	if !ok {
		return nil
	}

	return d
}
