// Package netinfo lists local network interfaces and the IPv4 broadcast
// addresses a magic packet can be sent to.
package netinfo

import (
	"fmt"
	"net"
	"sort"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// Interface is one local interface address.
type Interface struct {
	Name      string
	MAC       string
	CIDR      string
	Broadcast string
	Up        bool
}

// Collect returns every non-loopback IPv4 interface address, sorted by
// interface name.
func Collect() ([]Interface, error) {
	stats, err := psnet.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("listing interfaces: %w", err)
	}
	return fromStats(stats), nil
}

func fromStats(stats psnet.InterfaceStatList) []Interface {
	var out []Interface
	for _, st := range stats {
		if hasFlag(st.Flags, "loopback") {
			continue
		}
		up := hasFlag(st.Flags, "up")
		for _, a := range st.Addrs {
			_, ipNet, err := net.ParseCIDR(a.Addr)
			if err != nil || ipNet.IP.To4() == nil {
				continue
			}
			out = append(out, Interface{
				Name:      st.Name,
				MAC:       st.HardwareAddr,
				CIDR:      a.Addr,
				Broadcast: BroadcastIP(ipNet).String(),
				Up:        up,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BroadcastIP returns the directed broadcast address of an IPv4 network,
// or nil for IPv6.
func BroadcastIP(n *net.IPNet) net.IP {
	ip := n.IP.To4()
	if ip == nil {
		return nil
	}
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	broadcastIP := make(net.IP, len(ip))
	for i := range ip {
		broadcastIP[i] = ip[i] | ^mask[i]
	}
	return broadcastIP
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
