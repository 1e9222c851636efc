package wake

import "errors"

// Error categories. Each maps to a distinct process exit status.
var (
	ErrUsage         = errors.New("usage")
	ErrParse         = errors.New("invalid arguments")
	ErrConfigMissing = errors.New("not found")
	ErrUnknownHost   = errors.New("unknown host")
	ErrRelay         = errors.New("SSH WoL failed")
	ErrInvalidHost   = errors.New("invalid host entry")
	ErrSend          = errors.New("sending magic packet")
)

// ExitCode maps an error returned by Run to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 1
	case errors.Is(err, ErrParse), errors.Is(err, ErrConfigMissing):
		return 2
	case errors.Is(err, ErrUnknownHost):
		return 3
	case errors.Is(err, ErrRelay):
		return 4
	case errors.Is(err, ErrInvalidHost):
		return 5
	case errors.Is(err, ErrSend):
		return 6
	default:
		return 1
	}
}
