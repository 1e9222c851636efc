package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// Exec relays through the local ssh client binary, so the alias is resolved
// with the user's full ssh configuration.
type Exec struct {
	Binary  string
	Command string
	Stdout  io.Writer
	Stderr  io.Writer
	log     zerolog.Logger
}

// NewExec returns an Exec relay running binary with the remote command.
func NewExec(binary, command string, log zerolog.Logger) *Exec {
	return &Exec{
		Binary:  binary,
		Command: command,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		log:     log,
	}
}

// Wake runs `<binary> -- <alias> "<command> <mac>"` and waits for it to
// exit. The "--" keeps an alias starting with '-' from being read as a
// client option. Cancelling ctx kills the client.
func (e *Exec) Wake(ctx context.Context, alias string, mac net.HardwareAddr) error {
	remote := RemoteCommand(e.Command, mac)
	cmd := exec.CommandContext(ctx, e.Binary, "--", alias, remote)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.WaitDelay = time.Second

	e.log.Debug().
		Str("binary", e.Binary).
		Str("alias", alias).
		Str("command", remote).
		Msg("Running remote wake command")

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s on %s: %v", ErrRemoteFailed, remote, alias, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s on %s exited with status %d", ErrRemoteFailed, remote, alias, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: running %s: %v", ErrRemoteFailed, e.Binary, err)
	}
	return nil
}
