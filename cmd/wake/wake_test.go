package wake

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wake/internal/wol"
)

// fakeClient writes an executable shell script standing in for ssh.
func fakeClient(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ssh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

type fixture struct {
	dir        string
	configPath string
	registry   string
	sshConfig  string
	out, err   *bytes.Buffer
}

func newFixture(t *testing.T, relay string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:        dir,
		configPath: filepath.Join(dir, "config.toml"),
		registry:   filepath.Join(dir, "wol_hosts.xml"),
		sshConfig:  filepath.Join(dir, "ssh_config"),
		out:        &bytes.Buffer{},
		err:        &bytes.Buffer{},
	}
	cfg := fmt.Sprintf("[wake]\nregistry = %q\n\n[relay]\nssh_config = %q\n%s\n", f.registry, f.sshConfig, relay)
	require.NoError(t, os.WriteFile(f.configPath, []byte(cfg), 0644))
	return f
}

func (f *fixture) writeRegistry(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(f.registry, []byte(content), 0644))
}

func (f *fixture) run(args ...string) int {
	app := &App{Out: f.out, Err: f.err, ConfigPath: f.configPath}
	return app.Main(context.Background(), args)
}

func TestRun_NoArgs(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, 1, f.run())
	assert.Contains(t, f.out.String(), usageLine)
	assert.Empty(t, f.err.String())
}

func TestRun_Help(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, 0, f.run("--help"))
	assert.Contains(t, f.out.String(), "--list")
	assert.Contains(t, f.out.String(), "--ssh")
}

func TestRun_DirectSend(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	f := newFixture(t, "")
	f.writeRegistry(t, fmt.Sprintf(`<hosts>
  <defaults address="127.0.0.1" protocol="udp"/>
  <host name="boulder01" mac="AA-BB-CC-DD-EE-FF" port="%d"/>
</hosts>`, port))

	require.Equal(t, 0, f.run("boulder01"), f.out.String())
	assert.Equal(t,
		fmt.Sprintf("[SUCCESS] Sent WoL to boulder01 (AA-BB-CC-DD-EE-FF) via 127.0.0.1:%d\n", port),
		f.out.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)

	mac, err := wol.ParseMAC("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)
	assert.Equal(t, wol.NewPacket(mac), buf[:n])
}

func TestRun_PortOverride(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	f := newFixture(t, "")
	f.writeRegistry(t, `<hosts><host name="nas" mac="11:22:33:44:55:66" address="127.0.0.1" port="9"/></hosts>`)

	// the flag may come before the name
	require.Equal(t, 0, f.run("--port", fmt.Sprint(port), "nas"), f.out.String())
	assert.Contains(t, f.out.String(), fmt.Sprintf("via 127.0.0.1:%d", port))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 512)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, wol.PacketSize, n)
}

func TestRun_UnknownHost(t *testing.T) {
	f := newFixture(t, "")
	f.writeRegistry(t, `<hosts><host name="nas" mac="11:22:33:44:55:66"/></hosts>`)

	assert.Equal(t, 3, f.run("ghost"))
	assert.Contains(t, f.out.String(), "[ERROR] unknown host: 'ghost' not specified. Try 'wake --list'")
	assert.NotContains(t, f.err.String(), "[ERROR]")
}

func TestRun_MissingRegistry(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, 2, f.run("nas"))
	assert.Contains(t, f.out.String(), "[ERROR] config XML not found")
}

func TestRun_NoNameWithFlags(t *testing.T) {
	for _, args := range [][]string{{"--port", "9"}, {"-v"}, {"--ssh", "HomePi"}} {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			f := newFixture(t, "")
			assert.Equal(t, 2, f.run(args...), "missing registry is reported first")

			f = newFixture(t, "")
			f.writeRegistry(t, `<hosts><host name="nas" mac="11:22:33:44:55:66"/></hosts>`)
			assert.Equal(t, 3, f.run(args...))
			assert.Contains(t, f.out.String(), "[ERROR] unknown host: '' not specified")
		})
	}
}

func TestRun_TimeoutOutOfRange(t *testing.T) {
	for _, v := range []string{"NaN", "Inf", "1e20", "-1"} {
		t.Run(v, func(t *testing.T) {
			f := newFixture(t, `ssh_binary = "true"`)
			f.writeRegistry(t, `<hosts><host name="nas" mac="AA:BB:CC:DD:EE:FF"/></hosts>`)
			assert.Equal(t, 2, f.run("nas", "--ssh", "HomePi", "--timeout="+v))
			assert.Contains(t, f.out.String(), "out of range")
		})
	}
}

func TestRun_MissingExplicitConfig(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, 2, f.run("--config", filepath.Join(f.dir, "absent.toml"), "--list"))
	assert.Contains(t, f.out.String(), "absent.toml")
}

func TestRun_InvalidHostEntry(t *testing.T) {
	tests := []struct {
		name     string
		registry string
	}{
		{"bad mac", `<hosts><host name="h" mac="not-a-mac" address="127.0.0.1" port="9"/></hosts>`},
		{"no address", `<hosts><host name="h" mac="AA:BB:CC:DD:EE:FF" port="9"/></hosts>`},
		{"no port", `<hosts><host name="h" mac="AA:BB:CC:DD:EE:FF" address="127.0.0.1"/></hosts>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			f.writeRegistry(t, tt.registry)
			assert.Equal(t, 5, f.run("h"))
		})
	}
}

func TestRun_ParseErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"port and echo", []string{"h", "--port", "9", "--echo"}},
		{"non-numeric port", []string{"h", "--port", "nine"}},
		{"unknown flag", []string{"h", "--bogus"}},
		{"two names", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "")
			assert.Equal(t, 2, f.run(tt.args...))
			assert.Contains(t, f.out.String(), "[ERROR]")
		})
	}
}

func TestRun_List(t *testing.T) {
	f := newFixture(t, "")
	f.writeRegistry(t, `<hosts>
  <defaults port="9"/>
  <host name="zeta" mac="11:22:33:44:55:66" address="10.0.0.9"/>
  <host name="alpha" mac="AA:BB:CC:DD:EE:FF"/>
</hosts>`)

	require.Equal(t, 0, f.run("--list"))
	out := f.out.String()
	assert.Contains(t, out, "Hosts (2 found)")
	assert.Contains(t, out, "MAC Address")
	assert.Contains(t, out, "10.0.0.9:9")
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "zeta"))
}

func TestRun_ListIgnoresName(t *testing.T) {
	f := newFixture(t, "")
	f.writeRegistry(t, `<hosts/>`)

	assert.Equal(t, 0, f.run("ghost", "--l"))
	assert.Contains(t, f.out.String(), "Hosts (0 found)")
	assert.NotContains(t, f.out.String(), "ghost")
}

func TestRun_SSHList(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, os.WriteFile(f.sshConfig, []byte(
		"Host *\n  ServerAliveInterval 30\n\nHost HomePi\n  HostName 192.168.1.2\n  User pi\n"), 0644))

	require.Equal(t, 0, f.run("--ssh", "list", "ignored"))
	out := f.out.String()
	assert.Contains(t, out, "SSH Hosts (1 found)")
	assert.Contains(t, out, "HomePi")
	assert.Contains(t, out, "192.168.1.2")
	assert.NotContains(t, out, "*")
	assert.NotContains(t, out, "ignored")
}

func TestRun_SSHListMissingConfig(t *testing.T) {
	f := newFixture(t, "")
	assert.Equal(t, 0, f.run("--ssh", "list"))
	assert.Contains(t, f.out.String(), "[ERROR] No SSH config found at "+f.sshConfig)
}

func TestRun_SSHListNoAliases(t *testing.T) {
	f := newFixture(t, "")
	require.NoError(t, os.WriteFile(f.sshConfig, []byte("Host *\n  User me\n"), 0644))
	assert.Equal(t, 0, f.run("--ssh", "list"))
	assert.Contains(t, f.out.String(), "[INFO] No SSH hosts found")
}

func TestRun_Relay(t *testing.T) {
	f := newFixture(t, `ssh_binary = "true"`)
	f.writeRegistry(t, `<hosts><host name="nas" mac="AA-BB-CC-DD-EE-FF"/></hosts>`)

	require.Equal(t, 0, f.run("nas", "--ssh", "HomePi"), f.out.String())
	assert.Equal(t, "[SUCCESS] Sent WoL to aa:bb:cc:dd:ee:ff via SSH host 'HomePi'\n", f.out.String())
}

func TestRun_RelayCommandLine(t *testing.T) {
	f := newFixture(t, fmt.Sprintf("ssh_binary = %q", fakeClient(t, `printf '%s|' "$@"`)))
	f.writeRegistry(t, `<hosts><host name="nas" mac="AA-BB-CC-DD-EE-FF"/></hosts>`)

	require.Equal(t, 0, f.run("nas", "--ssh", "HomePi"), f.out.String())
	assert.True(t, strings.HasPrefix(f.out.String(), "--|HomePi|wakeonlan aa:bb:cc:dd:ee:ff|"), f.out.String())
}

func TestRun_RelayFailure(t *testing.T) {
	f := newFixture(t, `ssh_binary = "false"`)
	f.writeRegistry(t, `<hosts><host name="nas" mac="AA:BB:CC:DD:EE:FF"/></hosts>`)

	assert.Equal(t, 4, f.run("nas", "--ssh", "HomePi"))
	assert.Contains(t, f.out.String(), "[ERROR] SSH WoL failed")
	assert.NotContains(t, f.out.String(), "[SUCCESS]")
}

func TestRun_RelayTimeout(t *testing.T) {
	f := newFixture(t, fmt.Sprintf("ssh_binary = %q", fakeClient(t, "exec sleep 5")))
	f.writeRegistry(t, `<hosts><host name="nas" mac="AA:BB:CC:DD:EE:FF"/></hosts>`)

	start := time.Now()
	assert.Equal(t, 4, f.run("nas", "--ssh", "HomePi", "--timeout", "0.1"))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRun_UnknownRelayMode(t *testing.T) {
	f := newFixture(t, `mode = "telepathy"`)
	f.writeRegistry(t, `<hosts><host name="nas" mac="AA:BB:CC:DD:EE:FF"/></hosts>`)

	assert.Equal(t, 1, f.run("nas", "--ssh", "HomePi"))
	assert.Contains(t, f.out.String(), "unknown relay mode")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(ErrUsage))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("x: %w", ErrParse)))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("x: %w", ErrConfigMissing)))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("x: %w", ErrUnknownHost)))
	assert.Equal(t, 4, ExitCode(fmt.Errorf("x: %w", ErrRelay)))
	assert.Equal(t, 5, ExitCode(fmt.Errorf("x: %w", ErrInvalidHost)))
	assert.Equal(t, 6, ExitCode(fmt.Errorf("x: %w", ErrSend)))
	assert.Equal(t, 1, ExitCode(assert.AnError))
}
