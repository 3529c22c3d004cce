package config

import (
	"strings"
	"time"
)

// Posture defines behavioral aggressiveness
type Posture string

const (
	PostureStealth    Posture = "stealth"    // Minimal footprint, slow sweeps, one probe at a time
	PostureCautious   Posture = "cautious"   // Conservative timing
	PostureBalanced   Posture = "balanced"   // Default home network behavior
	PostureAggressive Posture = "aggressive" // Fast, wide prefetch
)

// ParsePosture accepts a posture name in any case. Unknown names fall
// back to PostureBalanced.
func ParsePosture(s string) Posture {
	p := Posture(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := PostureProfiles[p]; ok {
		return p
	}
	return PostureBalanced
}

// BehaviorProfile defines timing and concurrency settings
type BehaviorProfile struct {
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	ProbeTimeout        time.Duration `yaml:"probe_timeout"`
	DiscoveryTimeout    time.Duration `yaml:"discovery_timeout"`
	MaxConcurrentProbes int           `yaml:"max_concurrent_probes"` // 1 disables prefetch
}

// PostureProfiles maps postures to their default behavior profiles
var PostureProfiles = map[Posture]BehaviorProfile{
	PostureStealth: {
		SweepInterval:       30 * time.Minute,
		ProbeTimeout:        60 * time.Second,
		DiscoveryTimeout:    10 * time.Minute,
		MaxConcurrentProbes: 1,
	},
	PostureCautious: {
		SweepInterval:       5 * time.Minute,
		ProbeTimeout:        45 * time.Second,
		DiscoveryTimeout:    5 * time.Minute,
		MaxConcurrentProbes: 2,
	},
	PostureBalanced: {
		SweepInterval:       30 * time.Second,
		ProbeTimeout:        30 * time.Second,
		DiscoveryTimeout:    2 * time.Minute,
		MaxConcurrentProbes: 4,
	},
	PostureAggressive: {
		SweepInterval:       15 * time.Second,
		ProbeTimeout:        15 * time.Second,
		DiscoveryTimeout:    time.Minute,
		MaxConcurrentProbes: 16,
	},
}

// GetProfile returns the behavior profile for a posture
func (p Posture) GetProfile() BehaviorProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
