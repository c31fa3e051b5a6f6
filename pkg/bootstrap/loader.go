package bootstrap

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const logPrefix = "bootstrap:loader"

// EnvConfigFile names the environment variable consulted after explicit paths.
const EnvConfigFile = "CAPCHAT_SERVER_CONFIG"

// DefaultPaths are tried after explicit paths and the environment variable.
var DefaultPaths = []string{"server_config.json", "server_config.yaml", "config/server_config.json"}

// ErrNoConfig is returned when none of the candidate paths exists.
var ErrNoConfig = errors.New("no provider configuration file found")

// LoadProviderConfig loads the provider list from the first existing path. Explicit
// paths are tried first, then CAPCHAT_SERVER_CONFIG, then DefaultPaths. A file that
// exists but cannot be read or parsed is an error; the caller treats it as fatal.
func LoadProviderConfig(logger *zap.Logger, paths ...string) (*ProviderConfig, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	all := make([]string, 0, len(paths)+len(DefaultPaths)+1)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, DefaultPaths...)

	for _, p := range all {
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", logPrefix, p, err)
		}
		cfg, err := ParseProviderConfig(data)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to parse %s: %w", logPrefix, p, err)
		}
		cfg.Source = p
		logger.Info("loaded provider config", zap.String("path", p), zap.Int("providers", len(cfg.order)))
		return cfg, nil
	}
	return nil, fmt.Errorf("%s - %w (tried %v)", logPrefix, ErrNoConfig, all)
}

// ParseProviderConfig parses a JSON or YAML document with a top-level mcpServers map.
// JSON is parsed by the YAML decoder so both formats keep their key order.
func ParseProviderConfig(data []byte) (*ProviderConfig, error) {
	var root struct {
		Servers yaml.Node `yaml:"mcpServers"`
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	cfg := &ProviderConfig{entries: make(map[string]ProviderEntry)}
	if root.Servers.Kind == 0 {
		return cfg, nil
	}
	if root.Servers.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("mcpServers must be a mapping, got line %d", root.Servers.Line)
	}
	for i := 0; i+1 < len(root.Servers.Content); i += 2 {
		name := root.Servers.Content[i].Value
		var entry ProviderEntry
		if err := root.Servers.Content[i+1].Decode(&entry); err != nil {
			return nil, fmt.Errorf("provider %q: %w", name, err)
		}
		cfg.set(name, entry)
	}
	return cfg, nil
}
