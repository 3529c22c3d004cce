package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version   int               `yaml:"version"`
	Posture   Posture           `yaml:"posture"`
	Behavior  *BehaviorOverride `yaml:"behavior,omitempty"`
	Store     StoreConfig       `yaml:"store"`
	Targets   []string          `yaml:"targets"`
	Discovery DiscoveryConfig   `yaml:"discovery"`
	Probe     ProbeConfig       `yaml:"probe"`
	Vendors   VendorsConfig     `yaml:"vendors"`
	History   HistoryConfig     `yaml:"history"`
}

// BehaviorOverride allows overriding posture defaults
type BehaviorOverride struct {
	SweepInterval       *Duration `yaml:"sweep_interval,omitempty"`
	ProbeTimeout        *Duration `yaml:"probe_timeout,omitempty"`
	DiscoveryTimeout    *Duration `yaml:"discovery_timeout,omitempty"`
	MaxConcurrentProbes *int      `yaml:"max_concurrent_probes,omitempty"`
}

// StoreBackend selects where classification records persist
type StoreBackend string

const (
	StoreSQLite StoreBackend = "sqlite"
	StoreJSON   StoreBackend = "json"
)

// StoreConfig holds cache persistence settings
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"`
	Path    string       `yaml:"path"`
}

// Method names a discovery or probe implementation
type Method string

const (
	MethodAuto Method = "auto" // pick by available privileges and tools
	MethodNmap Method = "nmap"
	MethodARP  Method = "arp"
	MethodTCP  Method = "tcp"
)

// DiscoveryConfig holds host discovery settings
type DiscoveryConfig struct {
	Method    Method `yaml:"method"`
	Interface string `yaml:"interface,omitempty"` // required for arp
	MDNS      bool   `yaml:"mdns"`
}

// ProbeConfig holds port probe settings
type ProbeConfig struct {
	Method Method `yaml:"method"`
	Ports  string `yaml:"ports,omitempty"` // empty = nmap -F / built-in TCP list
}

// VendorsConfig points at an optional nmap-format OUI file
type VendorsConfig struct {
	File string `yaml:"file,omitempty"`
}

// HistoryConfig enables the PostgreSQL sighting history
type HistoryConfig struct {
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
