package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"wake/internal/sshconfig"
	"wake/pkg/config"
)

var defaultIdentities = []string{"~/.ssh/id_ed25519", "~/.ssh/id_ecdsa", "~/.ssh/id_rsa"}

// Native relays through an in-process SSH client. The alias is resolved
// through the HostName, User, Port and IdentityFile options of the ssh
// config. Host keys must already be present in known_hosts.
type Native struct {
	SSHConfig   *sshconfig.Config
	Command     string
	KnownHosts  string
	DialTimeout time.Duration
	Stdout      io.Writer
	log         zerolog.Logger
}

// NewNative returns a Native relay.
func NewNative(cfg *sshconfig.Config, command, knownHostsPath string, log zerolog.Logger) *Native {
	if cfg == nil {
		cfg = &sshconfig.Config{}
	}
	return &Native{
		SSHConfig:   cfg,
		Command:     command,
		KnownHosts:  knownHostsPath,
		DialTimeout: 10 * time.Second,
		Stdout:      os.Stdout,
		log:         log,
	}
}

// Wake opens a session to alias and runs the remote wake command in it.
// Cancelling ctx closes the connection.
func (n *Native) Wake(ctx context.Context, alias string, mac net.HardwareAddr) error {
	h, err := n.SSHConfig.Lookup(alias)
	if err != nil {
		return err
	}
	host, port, username := h.HostName, h.Port, h.User
	if host == "" {
		host = alias
	}
	if port == "" {
		port = "22"
	}
	if username == "" {
		if usr, err := user.Current(); err == nil {
			username = usr.Username
		}
	}
	addr := net.JoinHostPort(host, port)

	hostKeyCallback, err := knownhosts.New(n.KnownHosts)
	if err != nil {
		return fmt.Errorf("loading known_hosts %s: %w", n.KnownHosts, err)
	}

	auth, closeAgent := n.authMethods(h)
	defer closeAgent()
	if len(auth) == 0 {
		return fmt.Errorf("no ssh credentials for %s: start ssh-agent or set IdentityFile", alias)
	}

	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         n.DialTimeout,
	}

	d := net.Dialer{Timeout: n.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("SSH dial to %s: %w", addr, err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return fmt.Errorf("SSH handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()
	stop := context.AfterFunc(ctx, func() { client.Close() })
	defer stop()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("creating SSH session: %w", err)
	}
	defer session.Close()

	remote := RemoteCommand(n.Command, mac)
	n.log.Debug().
		Str("alias", alias).
		Str("addr", addr).
		Str("user", username).
		Str("command", remote).
		Msg("Running remote wake command")

	output, err := session.CombinedOutput(remote)
	if len(output) > 0 {
		if _, werr := n.Stdout.Write(output); werr != nil {
			n.log.Debug().Err(werr).Str("alias", alias).Msg("Failed to copy remote output")
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %s on %s: %v", ErrRemoteFailed, remote, alias, ctxErr)
		}
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s on %s exited with status %d", ErrRemoteFailed, remote, alias, exitErr.ExitStatus())
		}
		return fmt.Errorf("%w: %s on %s: %v", ErrRemoteFailed, remote, alias, err)
	}
	return nil
}

// authMethods offers the ssh-agent keys first, then any readable,
// unencrypted identity file.
func (n *Native) authMethods(h sshconfig.Host) ([]ssh.AuthMethod, func()) {
	var methods []ssh.AuthMethod
	closeAgent := func() {}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			n.log.Warn().Err(err).Msg("Failed to reach ssh-agent")
		} else {
			closeAgent = func() { conn.Close() }
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	files := h.IdentityFiles
	if len(files) == 0 {
		files = defaultIdentities
	}
	var signers []ssh.Signer
	for _, f := range files {
		path := config.ExpandPath(f)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			n.log.Debug().Err(err).Str("identity", path).Msg("Skipping identity file")
			continue
		}
		signers = append(signers, signer)
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}
	return methods, closeAgent
}
