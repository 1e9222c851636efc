// Package sshconfig reads host aliases from an OpenSSH client config file.
package sshconfig

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// ErrNotFound is returned when the config file does not exist.
var ErrNotFound = errors.New("ssh config not found")

// Host holds the settings that apply to one alias. Empty fields were not
// configured.
type Host struct {
	Alias         string
	HostName      string
	User          string
	Port          string
	IdentityFiles []string
}

// Config is a parsed ssh client config. The zero value has no hosts.
type Config struct {
	Path string
	cfg  *ssh_config.Config
}

// Load parses the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes config text from r.
func Parse(r io.Reader) (*Config, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return nil, err
	}
	return &Config{cfg: cfg}, nil
}

// Aliases returns the sorted, de-duplicated concrete host aliases. Patterns
// containing wildcards, "*" included, and negated patterns are skipped.
func (c *Config) Aliases() []string {
	if c.cfg == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, h := range c.cfg.Hosts {
		for _, pat := range h.Patterns {
			p := pat.String()
			if p == "" || strings.ContainsAny(p, "*?") || strings.HasPrefix(p, "!") || seen[p] {
				continue
			}
			// a negated entry in the same block excludes the alias
			if !h.Matches(p) {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Lookup collects the settings for alias. As in ssh, the first value found
// in a matching block wins, and IdentityFile accumulates.
func (c *Config) Lookup(alias string) (Host, error) {
	h := Host{Alias: alias}
	if c.cfg == nil {
		return h, nil
	}

	for key, dst := range map[string]*string{
		"HostName": &h.HostName,
		"User":     &h.User,
		"Port":     &h.Port,
	} {
		v, err := c.cfg.Get(alias, key)
		if err != nil {
			return h, fmt.Errorf("looking up %s for %s: %w", key, alias, err)
		}
		*dst = v
	}

	files, err := c.cfg.GetAll(alias, "IdentityFile")
	if err != nil {
		return h, fmt.Errorf("looking up IdentityFile for %s: %w", alias, err)
	}
	h.IdentityFiles = files
	return h, nil
}
