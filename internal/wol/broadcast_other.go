//go:build !unix

package wol

import (
	"errors"
	"syscall"
)

func enableBroadcast(syscall.RawConn) error {
	return errors.New("SO_BROADCAST not supported on this platform")
}
