// Package wake implements the wake CLI: list registry hosts, list ssh
// aliases, or wake a host directly or through an ssh relay.
package wake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"

	"wake/internal/argspec"
	"wake/internal/registry"
	"wake/internal/relay"
	"wake/internal/sshconfig"
	"wake/internal/wol"
	"wake/pkg/config"
	"wake/pkg/logger"
)

const (
	progName    = "wake"
	description = "Send Wake-on-LAN packets"
	usageLine   = "Usage: wake <device-name> | wake --list"

	// sentinel --ssh value that lists aliases instead of relaying
	listAliases = "list"
	echoPort    = 7
)

var maxTimeoutSeconds = float64(math.MaxInt64) / float64(time.Second)

// App holds the process-level collaborators of one wake invocation.
type App struct {
	Out        io.Writer
	Err        io.Writer
	ConfigPath string
	// SpecPath selects the argument definitions; empty uses the built-in set.
	SpecPath string

	cfg *config.Config
	log zerolog.Logger
}

// NewApp returns an App wired to the process stdout/stderr and the
// per-user config file.
func NewApp() *App {
	return &App{
		Out:        os.Stdout,
		Err:        os.Stderr,
		ConfigPath: config.DefaultPath,
		log:        zerolog.Nop(),
	}
}

// Main runs args and returns the process exit status. Failures are
// reported on Out with an [ERROR] tag; Err only carries log output.
func (a *App) Main(ctx context.Context, args []string) int {
	err := a.Run(ctx, args)
	if err != nil && err != ErrUsage {
		fmt.Fprintf(a.Out, "[ERROR] %v\n", err)
	}
	return ExitCode(err)
}

// Run executes one invocation.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.Out, usageLine)
		return ErrUsage
	}

	parser, err := argspec.NewLoader(a.SpecPath).Build(progName, description)
	if err != nil {
		return fmt.Errorf("loading argument spec: %w", err)
	}
	parser.SetOutput(a.Out)

	opts, err := parser.Parse(args)
	if errors.Is(err, argspec.ErrHelp) {
		return nil
	}
	if err != nil {
		fmt.Fprint(a.Out, parser.Usage())
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	if err := a.setup(opts); err != nil {
		return err
	}

	switch {
	case opts.Bool("list"):
		return a.listHosts()
	case opts.String("ssh") == listAliases:
		return a.listSSHHosts()
	case opts.Bool("interfaces"):
		return a.listInterfaces()
	}

	// an absent name resolves like any other unknown host
	name := opts.String("name")
	h, err := a.hostDetails(name)
	if err != nil {
		return err
	}
	mac, err := wol.ParseMAC(h.MAC)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidHost, name, err)
	}

	if alias := opts.String("ssh"); alias != "" {
		timeout, err := a.relayTimeout(opts)
		if err != nil {
			return err
		}
		return a.wakeViaRelay(ctx, h, mac, alias, timeout)
	}

	port, err := a.targetPort(opts, h)
	if err != nil {
		return err
	}
	return a.wakeDirect(ctx, h, mac, port)
}

// setup loads the config named by --config (or the default one, which may
// be absent) and starts the logger.
func (a *App) setup(opts *argspec.Values) error {
	var err error
	if opts.IsSet("config") {
		path := opts.String("config")
		a.cfg, err = config.Load(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %w: %s", ErrConfigMissing, path)
		}
	} else {
		a.cfg, err = config.LoadOrDefault(a.ConfigPath)
	}
	if err != nil {
		return err
	}

	level := a.cfg.Wake.LogLevel
	if opts.Bool("verbose") {
		level = "debug"
	}
	a.log = logger.New(a.Err, level, !logger.IsTerminal(a.Err))
	return nil
}

func (a *App) loadRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(a.cfg.Wake.Registry)
	if errors.Is(err, registry.ErrNotFound) {
		return nil, fmt.Errorf("config XML %w: %s", ErrConfigMissing, a.cfg.Wake.Registry)
	}
	return reg, err
}

func (a *App) hostDetails(name string) (registry.Host, error) {
	reg, err := a.loadRegistry()
	if err != nil {
		return registry.Host{}, err
	}
	h, ok := reg.Lookup(name)
	if !ok {
		return registry.Host{}, fmt.Errorf("%w: '%s' not specified. Try 'wake --list'", ErrUnknownHost, name)
	}
	return h, nil
}

func (a *App) targetPort(opts *argspec.Values, h registry.Host) (int, error) {
	switch {
	case opts.IsSet("port"):
		port := opts.Int("port")
		if port < 1 || port > 65535 {
			return 0, fmt.Errorf("%w: port %d out of range", ErrParse, port)
		}
		return port, nil
	case opts.Bool("echo"):
		return echoPort, nil
	}
	port, err := h.PortNumber()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidHost, err)
	}
	return port, nil
}

func (a *App) relayTimeout(opts *argspec.Values) (time.Duration, error) {
	if opts.IsSet("timeout") {
		secs := opts.Float("timeout")
		if math.IsNaN(secs) || secs < 0 || secs > maxTimeoutSeconds {
			return 0, fmt.Errorf("%w: timeout %v out of range", ErrParse, secs)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	return a.cfg.Relay.ParseTimeout()
}

func (a *App) wakeDirect(ctx context.Context, h registry.Host, mac net.HardwareAddr, port int) error {
	if h.Address == "" {
		return fmt.Errorf("%w: host '%s' has no address", ErrInvalidHost, h.Name)
	}

	a.log.Debug().
		Str("host", h.Name).
		Str("mac", mac.String()).
		Str("protocol", h.Protocol).
		Msg("Waking host directly")

	if err := wol.NewSender(a.log).Send(ctx, h.Address, port, wol.NewPacket(mac)); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	fmt.Fprintf(a.Out, "[SUCCESS] Sent WoL to %s (%s) via %s:%d\n", h.Name, h.MAC, h.Address, port)
	return nil
}

func (a *App) wakeViaRelay(ctx context.Context, h registry.Host, mac net.HardwareAddr, alias string, timeout time.Duration) error {
	r, err := a.newRelay()
	if err != nil {
		return err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	a.log.Debug().
		Str("host", h.Name).
		Str("alias", alias).
		Str("mode", a.cfg.Relay.Mode).
		Dur("timeout", timeout).
		Msg("Waking host through relay")

	if err := r.Wake(ctx, alias, mac); err != nil {
		return fmt.Errorf("%w: %w", ErrRelay, err)
	}
	fmt.Fprintf(a.Out, "[SUCCESS] Sent WoL to %s via SSH host '%s'\n", mac, alias)
	return nil
}

func (a *App) newRelay() (relay.Relay, error) {
	switch a.cfg.Relay.Mode {
	case "exec":
		r := relay.NewExec(a.cfg.Relay.SSHBinary, a.cfg.Relay.Command, a.log)
		r.Stdout = a.Out
		r.Stderr = a.Err
		return r, nil
	case "native":
		sshCfg, err := sshconfig.Load(a.cfg.Relay.SSHConfig)
		if errors.Is(err, sshconfig.ErrNotFound) {
			sshCfg, err = &sshconfig.Config{}, nil
		}
		if err != nil {
			return nil, err
		}
		r := relay.NewNative(sshCfg, a.cfg.Relay.Command, a.cfg.Relay.KnownHosts, a.log)
		r.Stdout = a.Out
		return r, nil
	default:
		return nil, fmt.Errorf("unknown relay mode %q (want exec or native)", a.cfg.Relay.Mode)
	}
}

// Run is the process entry point used by main.
func Run(args []string) int {
	return NewApp().Main(context.Background(), args)
}
