package argspec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// ErrUsage wraps every error caused by the raw argument list.
	ErrUsage = errors.New("usage error")
	// ErrHelp is returned by Parse after help output was requested and printed.
	ErrHelp = errors.New("help requested")
)

// Parser matches raw argument lists against a set of definitions.
//
// A fresh cobra command is built for every Parse call, so one Parser can be
// reused without flag state leaking between parses.
type Parser struct {
	prog        string
	description string
	defs        []Definition
	positionals []Definition
	longs       map[string]string
	out         io.Writer
}

// Build constructs a parser for prog from already loaded definitions.
func Build(prog, description string, defs []Definition) *Parser {
	p := &Parser{
		prog:        prog,
		description: description,
		defs:        defs,
		longs:       map[string]string{},
		out:         os.Stdout,
	}
	for _, d := range defs {
		if d.Positional() {
			p.positionals = append(p.positionals, d)
			continue
		}
		for _, l := range d.longs() {
			p.longs[l] = d.Dest()
		}
		if len(d.longs()) == 0 {
			p.longs[d.Dest()] = d.Dest()
		}
	}
	return p
}

// SetOutput redirects help and usage text.
func (p *Parser) SetOutput(w io.Writer) {
	p.out = w
}

// Usage returns the usage text.
func (p *Parser) Usage() string {
	return p.command(&Values{}).UsageString()
}

// Parse matches args against the definitions. Flags and positional values
// may appear in any order.
func (p *Parser) Parse(args []string) (*Values, error) {
	if args == nil {
		// cobra falls back to os.Args on a nil slice
		args = []string{}
	}
	values := &Values{}
	cmd := p.command(values)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if values.values == nil {
		return nil, ErrHelp
	}
	return values, nil
}

func (p *Parser) command(values *Values) *cobra.Command {
	cmd := &cobra.Command{
		Use:               p.use(),
		Short:             p.description,
		Long:              p.long(),
		Args:              p.checkPositionals,
		SilenceErrors:     true,
		SilenceUsage:      true,
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		RunE: func(cmd *cobra.Command, args []string) error {
			return values.collect(cmd.Flags(), p.defs, p.positionals, args)
		},
	}
	cmd.SetOut(p.out)
	cmd.SetErr(p.out)

	fs := cmd.Flags()
	fs.SetNormalizeFunc(p.normalize)

	// at most one member of the group may be given
	var group []string
	for _, d := range p.defs {
		if d.Positional() {
			continue
		}
		addFlag(fs, d)
		if d.Group == PortGroup {
			group = append(group, d.Dest())
		}
		if d.Required {
			_ = cmd.MarkFlagRequired(d.Dest())
		}
	}
	if len(group) > 1 {
		cmd.MarkFlagsMutuallyExclusive(group...)
	}
	return cmd
}

func addFlag(fs *pflag.FlagSet, d Definition) {
	name, short := d.Dest(), d.Short()
	switch d.Kind {
	case Int:
		def, _ := d.Default.(int)
		fs.IntP(name, short, def, d.Help)
	case Float:
		def, _ := d.Default.(float64)
		fs.Float64P(name, short, def, d.Help)
	case Bool:
		def, _ := d.Default.(bool)
		fs.BoolP(name, short, def, d.Help)
	default:
		def, _ := d.Default.(string)
		fs.StringP(name, short, def, d.Help)
	}
}

// normalize maps long flag aliases and unambiguous prefixes to the
// destination name, so --l resolves to --list.
func (p *Parser) normalize(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if dest, ok := p.longs[name]; ok {
		return pflag.NormalizedName(dest)
	}
	match := ""
	for long, dest := range p.longs {
		if !strings.HasPrefix(long, name) {
			continue
		}
		if match != "" && match != dest {
			return pflag.NormalizedName(name)
		}
		match = dest
	}
	if match == "" {
		return pflag.NormalizedName(name)
	}
	return pflag.NormalizedName(match)
}

func (p *Parser) checkPositionals(_ *cobra.Command, args []string) error {
	if len(args) > len(p.positionals) {
		return fmt.Errorf("unrecognized arguments: %s", strings.Join(args[len(p.positionals):], " "))
	}
	var missing []string
	for i, d := range p.positionals {
		if d.Required && i >= len(args) {
			missing = append(missing, d.Dest())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("the following arguments are required: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (p *Parser) use() string {
	parts := []string{p.prog}
	for _, d := range p.positionals {
		if d.Required {
			parts = append(parts, "<"+d.Dest()+">")
		} else {
			parts = append(parts, "["+d.Dest()+"]")
		}
	}
	return strings.Join(parts, " ")
}

func (p *Parser) long() string {
	if len(p.positionals) == 0 {
		return p.description
	}
	var b strings.Builder
	b.WriteString(p.description)
	b.WriteString("\n\nArguments:\n")
	for _, d := range p.positionals {
		fmt.Fprintf(&b, "  %-12s %s\n", d.Dest(), d.Help)
	}
	return strings.TrimRight(b.String(), "\n")
}
