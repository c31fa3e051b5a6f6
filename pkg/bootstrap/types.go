// Package bootstrap loads the declarative list of capability providers to launch.
package bootstrap

import "strings"

// Transport names accepted in provider entries.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// ProviderEntry describes how to reach one provider. Stdio providers set Command
// (and optionally Args/Env); remote providers set URL and optionally Headers.
type ProviderEntry struct {
	Command    string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args       []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env        map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	URL        string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Transport  string            `json:"transport,omitempty" yaml:"transport,omitempty"`
	MinVersion string            `json:"minVersion,omitempty" yaml:"minVersion,omitempty"`
	Disabled   bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
}

// EffectiveTransport returns the explicit transport or infers one from the entry.
func (e ProviderEntry) EffectiveTransport() string {
	if t := strings.ToLower(strings.TrimSpace(e.Transport)); t != "" {
		return t
	}
	if e.Command != "" {
		return TransportStdio
	}
	if e.URL != "" {
		return TransportHTTP
	}
	return ""
}

// EnvList flattens Env into KEY=VALUE pairs for process spawning.
func (e ProviderEntry) EnvList() []string {
	if len(e.Env) == 0 {
		return nil
	}
	out := make([]string, 0, len(e.Env))
	for k, v := range e.Env {
		out = append(out, k+"="+v)
	}
	return out
}

// Provider is a named entry.
type Provider struct {
	Name string
	ProviderEntry
}

// ProviderConfig is the root of the provider configuration file. Entry order
// follows the file so startup connects providers in a predictable sequence.
type ProviderConfig struct {
	Source  string
	entries map[string]ProviderEntry
	order   []string
}

// NewProviderConfig builds a config from ordered providers (used by tests and callers
// that assemble providers programmatically).
func NewProviderConfig(providers ...Provider) *ProviderConfig {
	cfg := &ProviderConfig{entries: make(map[string]ProviderEntry, len(providers))}
	for _, p := range providers {
		cfg.set(p.Name, p.ProviderEntry)
	}
	return cfg
}

func (c *ProviderConfig) set(name string, entry ProviderEntry) {
	if _, exists := c.entries[name]; !exists {
		c.order = append(c.order, name)
	}
	c.entries[name] = entry
}

// Get returns a provider entry by name.
func (c *ProviderConfig) Get(name string) (ProviderEntry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Names returns all provider names in file order, including disabled ones.
func (c *ProviderConfig) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Providers returns enabled providers in file order.
func (c *ProviderConfig) Providers() []Provider {
	out := make([]Provider, 0, len(c.order))
	for _, name := range c.order {
		e := c.entries[name]
		if e.Disabled {
			continue
		}
		out = append(out, Provider{Name: name, ProviderEntry: e})
	}
	return out
}
