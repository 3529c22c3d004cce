// Package config provides configuration management for lanscope.
//
// The config file says what to sweep and how hard: targets, posture,
// discovery and probe methods, and where the classification cache lives.
// The cache itself is data, not configuration, and can be deleted at any
// time; the next sweep rebuilds it.
//
// Config file locations (priority order):
//  1. $LANSCOPE_CONFIG
//  2. ./lanscope.yaml
//  3. $XDG_CONFIG_HOME/lanscope/config.yaml
//  4. ~/.config/lanscope/config.yaml
//  5. /etc/lanscope/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTarget is swept when the config names no targets
const DefaultTarget = "192.168.1.0/24"

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Posture == "" {
		c.Posture = PostureBalanced
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreSQLite
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath(c.Store.Backend)
	}
	if len(c.Targets) == 0 {
		c.Targets = []string{DefaultTarget}
	}
	if c.Discovery.Method == "" {
		c.Discovery.Method = MethodAuto
	}
	if c.Probe.Method == "" {
		c.Probe.Method = MethodAuto
	}
}

func defaultStorePath(backend StoreBackend) string {
	if backend == StoreJSON {
		return filepath.Join(DefaultDataDir(), "device_cache.json")
	}
	return filepath.Join(DefaultDataDir(), "lanscope.db")
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreSQLite, StoreJSON:
	default:
		return fmt.Errorf("store.backend: unknown backend %q (want sqlite or json)", c.Store.Backend)
	}

	switch c.Discovery.Method {
	case MethodAuto, MethodNmap:
	case MethodARP:
		if c.Discovery.Interface == "" {
			return fmt.Errorf("discovery.interface is required for arp discovery")
		}
	default:
		return fmt.Errorf("discovery.method: unknown method %q (want auto, nmap or arp)", c.Discovery.Method)
	}

	switch c.Probe.Method {
	case MethodAuto, MethodNmap, MethodTCP:
	default:
		return fmt.Errorf("probe.method: unknown method %q (want auto, nmap or tcp)", c.Probe.Method)
	}

	for _, t := range c.Targets {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("targets: empty target")
		}
	}

	if c.Behavior != nil && c.Behavior.MaxConcurrentProbes != nil && *c.Behavior.MaxConcurrentProbes < 1 {
		return fmt.Errorf("behavior.max_concurrent_probes must be at least 1")
	}
	return nil
}

// EffectiveBehavior returns behavior profile with overrides applied
func (c *Config) EffectiveBehavior() BehaviorProfile {
	base := c.Posture.GetProfile()

	if c.Behavior == nil {
		return base
	}

	// Apply overrides
	if c.Behavior.SweepInterval != nil {
		base.SweepInterval = c.Behavior.SweepInterval.Duration()
	}
	if c.Behavior.ProbeTimeout != nil {
		base.ProbeTimeout = c.Behavior.ProbeTimeout.Duration()
	}
	if c.Behavior.DiscoveryTimeout != nil {
		base.DiscoveryTimeout = c.Behavior.DiscoveryTimeout.Duration()
	}
	if c.Behavior.MaxConcurrentProbes != nil {
		base.MaxConcurrentProbes = *c.Behavior.MaxConcurrentProbes
	}

	return base
}
