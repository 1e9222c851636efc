// Package registry reads the per-user XML file that maps host names to
// their Wake-on-LAN parameters.
package registry

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
)

// ErrNotFound is returned when the registry file does not exist.
var ErrNotFound = errors.New("registry not found")

// Host attribute names, shared by <host> and <defaults>.
const (
	AttrMAC      = "mac"
	AttrAddress  = "address"
	AttrPort     = "port"
	AttrProtocol = "protocol"
)

var attributes = []string{AttrMAC, AttrAddress, AttrPort, AttrProtocol}

// Host is one named entry in the registry. An empty field is unset: neither
// the host element nor <defaults> supplied it.
type Host struct {
	Name     string
	MAC      string
	Address  string
	Port     string
	Protocol string
}

// PortNumber parses the port attribute.
func (h Host) PortNumber() (int, error) {
	if h.Port == "" {
		return 0, fmt.Errorf("host %q has no port", h.Name)
	}
	port, err := strconv.Atoi(h.Port)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("host %q has invalid port %q", h.Name, h.Port)
	}
	return port, nil
}

// Registry is the set of hosts read from one registry file.
type Registry struct {
	Path  string
	hosts map[string]Host
}

type element struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

type document struct {
	Defaults *element  `xml:"defaults"`
	Hosts    []element `xml:"host"`
}

// Load parses the registry at path. Hosts without a name are skipped.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry %s: %w", path, err)
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing registry %s: %w", path, err)
	}

	defaults := map[string]string{}
	if doc.Defaults != nil {
		defaults = doc.Defaults.attrs()
	}

	reg := &Registry{Path: path, hosts: map[string]Host{}}
	for _, el := range doc.Hosts {
		attrs := el.attrs()
		name := attrs["name"]
		if name == "" {
			continue
		}
		values := map[string]string{}
		for _, at := range attributes {
			values[at], _ = Resolve(defaults, attrs, at)
		}
		reg.hosts[name] = Host{
			Name:     name,
			MAC:      values[AttrMAC],
			Address:  values[AttrAddress],
			Port:     values[AttrPort],
			Protocol: values[AttrProtocol],
		}
	}
	return reg, nil
}

// Resolve looks up attribute key for one host: the host's own value if
// present, else the <defaults> value. ok is false when neither has it.
func Resolve(defaults, attrs map[string]string, key string) (value string, ok bool) {
	if v, ok := attrs[key]; ok {
		return v, true
	}
	v, ok := defaults[key]
	return v, ok
}

func (e element) attrs() map[string]string {
	out := make(map[string]string, len(e.Attrs))
	for _, a := range e.Attrs {
		out[a.Name.Local] = a.Value
	}
	return out
}

// Lookup returns the host registered under name.
func (r *Registry) Lookup(name string) (Host, bool) {
	h, ok := r.hosts[name]
	return h, ok
}

// Hosts returns every host sorted by name.
func (r *Registry) Hosts() []Host {
	out := make([]Host, 0, len(r.hosts))
	for _, h := range r.hosts {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of named hosts.
func (r *Registry) Len() int {
	return len(r.hosts)
}
