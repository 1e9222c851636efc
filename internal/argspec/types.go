package argspec

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the value type of an argument.
type Kind int

const (
	String Kind = iota
	Int
	Float
	Bool
)

// Types maps the type tags accepted in the declarative source to their Kind.
// The loader resolves tags through it and the builder registers flags by it.
var Types = map[string]Kind{
	"str":   String,
	"int":   Int,
	"float": Float,
	"bool":  Bool,
}

func (k Kind) String() string {
	for tag, kind := range Types {
		if kind == k {
			return tag
		}
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Parse coerces a raw command-line token to the Kind's Go type
// (string, int, float64 or bool).
func (k Kind) Parse(s string) (any, error) {
	switch k {
	case Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid int value: %q", s)
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value: %q", s)
		}
		return f, nil
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool value: %q", s)
		}
		return b, nil
	default:
		return s, nil
	}
}

// coerce converts a decoded TOML default to the Kind's Go type.
func (k Kind) coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		return k.Parse(s)
	}
	switch k {
	case Int:
		switch n := v.(type) {
		case int64:
			return int(n), nil
		case float64:
			if n == math.Trunc(n) {
				return int(n), nil
			}
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case String:
		switch v.(type) {
		case int64, float64, bool:
			return fmt.Sprint(v), nil
		}
	}
	return nil, fmt.Errorf("default %v is not a valid %s", v, k)
}
