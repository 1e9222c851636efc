package argspec

import (
	"fmt"

	"github.com/spf13/pflag"
)

// Values is the result of a successful Parse, keyed by destination name.
type Values struct {
	values map[string]any
	set    map[string]bool
}

func (v *Values) collect(fs *pflag.FlagSet, defs, positionals []Definition, args []string) error {
	v.values = map[string]any{}
	v.set = map[string]bool{}

	for _, d := range defs {
		if d.Positional() {
			continue
		}
		name := d.Dest()
		var (
			val any
			err error
		)
		switch d.Kind {
		case Int:
			val, err = fs.GetInt(name)
		case Float:
			val, err = fs.GetFloat64(name)
		case Bool:
			val, err = fs.GetBool(name)
		default:
			val, err = fs.GetString(name)
		}
		if err != nil {
			return err
		}
		v.values[name] = val
		v.set[name] = fs.Changed(name)
	}

	for i, d := range positionals {
		name := d.Dest()
		if i >= len(args) {
			v.values[name] = d.Default
			continue
		}
		val, err := d.Kind.Parse(args[i])
		if err != nil {
			return fmt.Errorf("argument %s: %v", name, err)
		}
		v.values[name] = val
		v.set[name] = true
	}
	return nil
}

// Get returns the value stored under name. ok is false when the argument
// has no value at all (an absent positional without a default).
func (v *Values) Get(name string) (val any, ok bool) {
	val = v.values[name]
	return val, val != nil
}

// IsSet reports whether name was given on the command line.
func (v *Values) IsSet(name string) bool {
	return v.set[name]
}

// String returns a str argument, or "" when it has no value.
func (v *Values) String(name string) string {
	s, _ := v.values[name].(string)
	return s
}

// Int returns an int argument, or 0 when it has no value.
func (v *Values) Int(name string) int {
	n, _ := v.values[name].(int)
	return n
}

// Float returns a float argument, or 0 when it has no value.
func (v *Values) Float(name string) float64 {
	f, _ := v.values[name].(float64)
	return f
}

// Bool returns a bool argument, or false when it has no value.
func (v *Values) Bool(name string) bool {
	b, _ := v.values[name].(bool)
	return b
}
