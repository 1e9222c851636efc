// Package argspec builds the wake command-line parser from a declarative
// list of argument definitions.
package argspec

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// PortGroup tags the definitions that form the mutually exclusive group.
const PortGroup = "port_group"

var (
	// ErrSpecNotFound is returned when the declarative source does not exist.
	ErrSpecNotFound = errors.New("argument spec not found")
	// ErrInvalidSpec is returned for a malformed declarative source.
	ErrInvalidSpec = errors.New("invalid argument spec")
	// ErrUnknownType is returned for a type tag missing from Types.
	ErrUnknownType = errors.New("unknown argument type")
)

//go:embed args.toml
var defaultSpec []byte

// Definition describes one accepted flag or positional value.
type Definition struct {
	Flags    []string `toml:"flags"`
	Type     string   `toml:"type"`
	Default  any      `toml:"default"`
	Help     string   `toml:"help"`
	Required bool     `toml:"required"`
	Group    string   `toml:"group"`

	// Kind is resolved from Type by Load.
	Kind Kind `toml:"-"`
}

// Positional reports whether the definition is a positional argument:
// exactly one flag token and no option prefix.
func (d Definition) Positional() bool {
	return len(d.Flags) == 1 && !strings.HasPrefix(d.Flags[0], "-")
}

// Dest is the name the parsed value is stored under: the first long flag,
// else the short letter, else the positional name.
func (d Definition) Dest() string {
	if d.Positional() {
		return d.Flags[0]
	}
	if longs := d.longs(); len(longs) > 0 {
		return longs[0]
	}
	return d.Short()
}

// Short returns the single-letter form, or "" if there is none.
func (d Definition) Short() string {
	for _, f := range d.Flags {
		if len(f) == 2 && f[0] == '-' && f[1] != '-' {
			return f[1:]
		}
	}
	return ""
}

func (d Definition) longs() []string {
	var out []string
	for _, f := range d.Flags {
		if strings.HasPrefix(f, "--") {
			out = append(out, f[2:])
		}
	}
	return out
}

type source struct {
	Args []Definition `toml:"arg"`
}

// Loader reads argument definitions from a TOML source. An empty Path
// selects the definitions compiled into the binary.
type Loader struct {
	Path string
}

// NewLoader returns a Loader for the given path.
func NewLoader(path string) *Loader {
	return &Loader{Path: path}
}

// Load reads, validates and type-resolves the definitions.
func (l *Loader) Load() ([]Definition, error) {
	data := defaultSpec
	if l.Path != "" {
		var err error
		data, err = os.ReadFile(l.Path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSpecNotFound, l.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading argument spec %s: %w", l.Path, err)
		}
	}

	var src source
	if err := toml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	seen := map[string]bool{}
	for i := range src.Args {
		d := &src.Args[i]
		if err := resolve(d); err != nil {
			return nil, err
		}
		for _, tok := range append(d.names(), "dest:"+d.Dest()) {
			if seen[tok] {
				return nil, fmt.Errorf("%w: %s defined twice", ErrInvalidSpec, strings.TrimPrefix(tok, "dest:"))
			}
			seen[tok] = true
		}
	}
	return src.Args, nil
}

// Build loads the definitions and constructs a parser from them.
func (l *Loader) Build(prog, description string) (*Parser, error) {
	defs, err := l.Load()
	if err != nil {
		return nil, err
	}
	return Build(prog, description, defs), nil
}

func resolve(d *Definition) error {
	if len(d.Flags) == 0 {
		return fmt.Errorf("%w: definition without flags", ErrInvalidSpec)
	}
	shorts := 0
	for _, f := range d.Flags {
		if err := checkToken(f, len(d.Flags)); err != nil {
			return err
		}
		if len(f) == 2 && f[0] == '-' {
			shorts++
		}
	}
	if shorts > 1 {
		return fmt.Errorf("%w: %s has more than one short flag", ErrInvalidSpec, d.Flags[0])
	}

	if d.Type == "" {
		d.Kind = String
	} else {
		kind, ok := Types[d.Type]
		if !ok {
			return fmt.Errorf("%w %q for %s", ErrUnknownType, d.Type, d.Flags[0])
		}
		d.Kind = kind
	}

	if d.Group != "" && d.Group != PortGroup {
		return fmt.Errorf("%w: unknown group %q for %s", ErrInvalidSpec, d.Group, d.Flags[0])
	}

	def, err := d.Kind.coerce(d.Default)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSpec, d.Flags[0], err)
	}
	d.Default = def
	return nil
}

func checkToken(f string, count int) error {
	switch {
	case f == "" || f == "-" || f == "--":
		return fmt.Errorf("%w: bad flag token %q", ErrInvalidSpec, f)
	case f == "-h" || f == "--help":
		return fmt.Errorf("%w: %s is reserved", ErrInvalidSpec, f)
	case strings.HasPrefix(f, "--"):
		return nil
	case strings.HasPrefix(f, "-"):
		if len(f) != 2 {
			return fmt.Errorf("%w: short flag %q must be a single letter", ErrInvalidSpec, f)
		}
		return nil
	case count > 1:
		return fmt.Errorf("%w: positional %q cannot have other flag tokens", ErrInvalidSpec, f)
	}
	return nil
}

// names lists every token a definition claims, for duplicate detection.
func (d Definition) names() []string {
	if d.Positional() {
		return []string{d.Flags[0]}
	}
	out := []string{}
	if s := d.Short(); s != "" {
		out = append(out, "-"+s)
	}
	for _, l := range d.longs() {
		out = append(out, "--"+l)
	}
	return out
}
