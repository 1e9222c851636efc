// Package relay wakes a host by running a wake-on-LAN utility on another
// machine reached through an ssh alias.
package relay

import (
	"context"
	"errors"
	"net"
)

// ErrRemoteFailed is returned when the remote command did not exit with status zero.
var ErrRemoteFailed = errors.New("remote wake command failed")

// Relay runs the remote wake command for mac on alias.
type Relay interface {
	Wake(ctx context.Context, alias string, mac net.HardwareAddr) error
}

// RemoteCommand is the command line run on the relay host.
func RemoteCommand(command string, mac net.HardwareAddr) string {
	return command + " " + mac.String()
}
