package wake

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"wake/internal/netinfo"
	"wake/internal/sshconfig"
)

const unset = "-"

// emitTable renders rows under headers on the App's output, framed by
// blank lines.
func (a *App) emitTable(title string, headers []string, rows [][]string) {
	fmt.Fprintf(a.Out, "\n  %s\n\n", title)
	table := tablewriter.NewWriter(a.Out)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
	fmt.Fprintln(a.Out)
}

func orUnset(s string) string {
	if s == "" {
		return unset
	}
	return s
}

func (a *App) listHosts() error {
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}

	hosts := reg.Hosts()
	rows := make([][]string, 0, len(hosts))
	for _, h := range hosts {
		endpoint := unset
		if h.Address != "" || h.Port != "" {
			endpoint = net.JoinHostPort(orUnset(h.Address), orUnset(h.Port))
		}
		rows = append(rows, []string{h.Name, orUnset(h.MAC), endpoint, orUnset(h.Protocol)})
	}
	a.emitTable(fmt.Sprintf("Hosts (%d found)", len(hosts)),
		[]string{"Host", "MAC Address", "Address:Port", "Protocol"}, rows)
	return nil
}

func (a *App) listSSHHosts() error {
	path := a.cfg.Relay.SSHConfig
	cfg, err := sshconfig.Load(path)
	if errors.Is(err, sshconfig.ErrNotFound) {
		fmt.Fprintf(a.Out, "[ERROR] No SSH config found at %s\n", path)
		return nil
	}
	if err != nil {
		return err
	}

	aliases := cfg.Aliases()
	if len(aliases) == 0 {
		fmt.Fprintf(a.Out, "[INFO] No SSH hosts found in %s\n", path)
		return nil
	}

	rows := make([][]string, 0, len(aliases))
	for _, alias := range aliases {
		h, err := cfg.Lookup(alias)
		if err != nil {
			return err
		}
		rows = append(rows, []string{alias, orUnset(h.HostName), orUnset(h.User), orUnset(h.Port)})
	}
	a.emitTable(fmt.Sprintf("SSH Hosts (%d found)", len(aliases)),
		[]string{"Alias", "HostName", "User", "Port"}, rows)
	return nil
}

func (a *App) listInterfaces() error {
	ifaces, err := netinfo.Collect()
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(ifaces))
	for _, iface := range ifaces {
		rows = append(rows, []string{
			iface.Name,
			orUnset(iface.MAC),
			iface.CIDR,
			iface.Broadcast,
			strconv.FormatBool(iface.Up),
		})
	}
	a.emitTable(fmt.Sprintf("Interfaces (%d found)", len(ifaces)),
		[]string{"Interface", "MAC Address", "Address", "Broadcast", "Up"}, rows)
	return nil
}
