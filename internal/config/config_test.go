package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestParsePosture(t *testing.T) {
	tests := []struct {
		input string
		want  Posture
	}{
		{"stealth", PostureStealth},
		{"cautious", PostureCautious},
		{"balanced", PostureBalanced},
		{"aggressive", PostureAggressive},
		{"", PostureBalanced},
		{"reckless", PostureBalanced},
		{" Aggressive ", PostureAggressive},
	}

	for _, tt := range tests {
		if got := ParsePosture(tt.input); got != tt.want {
			t.Errorf("ParsePosture(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestPostureGetProfile(t *testing.T) {
	balanced := PostureBalanced.GetProfile()
	if balanced.SweepInterval != 30*time.Second {
		t.Errorf("balanced SweepInterval = %s, want 30s", balanced.SweepInterval)
	}

	stealth := PostureStealth.GetProfile()
	if stealth.MaxConcurrentProbes != 1 {
		t.Errorf("stealth MaxConcurrentProbes = %d, want 1 (no prefetch)", stealth.MaxConcurrentProbes)
	}

	aggressive := PostureAggressive.GetProfile()
	if aggressive.SweepInterval >= balanced.SweepInterval {
		t.Error("aggressive should sweep more often than balanced")
	}

	unknown := Posture("unknown").GetProfile()
	if unknown != balanced {
		t.Error("unknown posture should fall back to balanced")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/var/lib/test")
	cfg := DefaultConfig()

	if cfg.Version != 1 {
		t.Errorf("Version = %d, want 1", cfg.Version)
	}
	if cfg.Posture != PostureBalanced {
		t.Errorf("Posture = %s, want balanced", cfg.Posture)
	}
	if cfg.Store.Backend != StoreSQLite {
		t.Errorf("Store.Backend = %s, want sqlite", cfg.Store.Backend)
	}
	if cfg.Store.Path != "/var/lib/test/lanscope/lanscope.db" {
		t.Errorf("Store.Path = %s", cfg.Store.Path)
	}
	if len(cfg.Targets) != 1 || cfg.Targets[0] != DefaultTarget {
		t.Errorf("Targets = %v, want [%s]", cfg.Targets, DefaultTarget)
	}
	if cfg.Discovery.Method != MethodAuto || cfg.Probe.Method != MethodAuto {
		t.Errorf("methods = %s/%s, want auto/auto", cfg.Discovery.Method, cfg.Probe.Method)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEffectiveBehavior(t *testing.T) {
	cfg := DefaultConfig()

	// No overrides
	if cfg.EffectiveBehavior() != PostureBalanced.GetProfile() {
		t.Error("without overrides the posture profile should be used")
	}

	interval := Duration(10 * time.Minute)
	probes := 7
	cfg.Behavior = &BehaviorOverride{
		SweepInterval:       &interval,
		MaxConcurrentProbes: &probes,
	}

	b := cfg.EffectiveBehavior()
	if b.SweepInterval != 10*time.Minute {
		t.Errorf("SweepInterval = %s, want 10m", b.SweepInterval)
	}
	if b.MaxConcurrentProbes != 7 {
		t.Errorf("MaxConcurrentProbes = %d, want 7", b.MaxConcurrentProbes)
	}
	if b.ProbeTimeout != PostureBalanced.GetProfile().ProbeTimeout {
		t.Error("ProbeTimeout should keep the posture default")
	}
}

func TestValidate(t *testing.T) {
	zero := 0
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "json store", mutate: func(c *Config) { c.Store.Backend = StoreJSON }},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantErr: "store.backend"},
		{name: "arp without interface", mutate: func(c *Config) { c.Discovery.Method = MethodARP }, wantErr: "discovery.interface"},
		{name: "arp with interface", mutate: func(c *Config) {
			c.Discovery.Method = MethodARP
			c.Discovery.Interface = "eth0"
		}},
		{name: "tcp discovery", mutate: func(c *Config) { c.Discovery.Method = MethodTCP }, wantErr: "discovery.method"},
		{name: "arp probe", mutate: func(c *Config) { c.Probe.Method = MethodARP }, wantErr: "probe.method"},
		{name: "blank target", mutate: func(c *Config) { c.Targets = []string{" "} }, wantErr: "targets"},
		{name: "zero probes", mutate: func(c *Config) { c.Behavior = &BehaviorOverride{MaxConcurrentProbes: &zero} }, wantErr: "max_concurrent_probes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestResolveMethods(t *testing.T) {
	tests := []struct {
		name          string
		discovery     Method
		probe         Method
		iface         string
		env           Environment
		wantDiscovery Method
		wantProbe     Method
	}{
		{
			name:          "nmap installed",
			discovery:     MethodAuto,
			probe:         MethodAuto,
			env:           Environment{NmapPath: "/usr/bin/nmap"},
			wantDiscovery: MethodNmap,
			wantProbe:     MethodNmap,
		},
		{
			name:          "root without nmap uses arp and tcp",
			discovery:     MethodAuto,
			probe:         MethodAuto,
			iface:         "eth0",
			env:           Environment{CanRawSocket: true},
			wantDiscovery: MethodARP,
			wantProbe:     MethodTCP,
		},
		{
			name:          "root without interface falls back to nmap",
			discovery:     MethodAuto,
			probe:         MethodAuto,
			env:           Environment{CanRawSocket: true},
			wantDiscovery: MethodNmap,
			wantProbe:     MethodTCP,
		},
		{
			name:          "explicit choices win",
			discovery:     MethodARP,
			probe:         MethodTCP,
			iface:         "eth0",
			env:           Environment{NmapPath: "/usr/bin/nmap", CanRawSocket: true},
			wantDiscovery: MethodARP,
			wantProbe:     MethodTCP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Discovery.Method = tt.discovery
			cfg.Discovery.Interface = tt.iface
			cfg.Probe.Method = tt.probe

			if got := cfg.ResolveDiscoveryMethod(tt.env); got != tt.wantDiscovery {
				t.Errorf("discovery = %s, want %s", got, tt.wantDiscovery)
			}
			if got := cfg.ResolveProbeMethod(tt.env); got != tt.wantProbe {
				t.Errorf("probe = %s, want %s", got, tt.wantProbe)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Posture = PostureAggressive
	cfg.Targets = []string{"10.0.0.0/24", "10.0.1.5"}
	cfg.Store = StoreConfig{Backend: StoreJSON, Path: filepath.Join(tmpDir, "cache.json")}
	cfg.Discovery = DiscoveryConfig{Method: MethodARP, Interface: "eth0", MDNS: true}
	timeout := Duration(5 * time.Second)
	cfg.Behavior = &BehaviorOverride{ProbeTimeout: &timeout}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}

	if loaded.Posture != PostureAggressive {
		t.Errorf("Posture = %s, want %s", loaded.Posture, PostureAggressive)
	}
	if len(loaded.Targets) != 2 || loaded.Targets[1] != "10.0.1.5" {
		t.Errorf("Targets = %v", loaded.Targets)
	}
	if loaded.Store != cfg.Store {
		t.Errorf("Store = %+v, want %+v", loaded.Store, cfg.Store)
	}
	if loaded.Discovery != cfg.Discovery {
		t.Errorf("Discovery = %+v, want %+v", loaded.Discovery, cfg.Discovery)
	}
	if loaded.EffectiveBehavior().ProbeTimeout != 5*time.Second {
		t.Errorf("ProbeTimeout = %s, want 5s", loaded.EffectiveBehavior().ProbeTimeout)
	}
}

func TestLoadFromPath_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, _, err := LoadFromPath(filepath.Join(tmpDir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("targets: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(bad); err == nil {
		t.Error("expected parse error")
	}

	invalid := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("store:\n  backend: redis\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(invalid); err == nil {
		t.Error("expected validation error")
	}

	badDuration := filepath.Join(tmpDir, "duration.yaml")
	if err := os.WriteFile(badDuration, []byte("behavior:\n  sweep_interval: soon\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := LoadFromPath(badDuration); err == nil {
		t.Error("expected duration parse error")
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	t.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	// Should find config in working directory
	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// Explicit path doesn't exist, should fall back
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	if FindConfigPath() == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	// Explicit path that exists wins
	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if got := FindConfigPath(); got != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", got, explicit)
	}
}

func TestDuration(t *testing.T) {
	d := Duration(5 * time.Minute)

	if d.Duration() != 5*time.Minute {
		t.Errorf("Duration() = %s, want 5m", d.Duration())
	}

	marshaled, err := d.MarshalYAML()
	if err != nil {
		t.Fatalf("MarshalYAML() error: %v", err)
	}
	if marshaled != "5m0s" {
		t.Errorf("MarshalYAML() = %v, want 5m0s", marshaled)
	}

	var parsed struct {
		Interval Duration `yaml:"interval"`
	}
	if err := yaml.Unmarshal([]byte("interval: 90s\n"), &parsed); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if parsed.Interval.Duration() != 90*time.Second {
		t.Errorf("parsed = %s, want 90s", parsed.Interval.Duration())
	}
}
