package domain

import "time"

// DiscoveredHost is a host reported by a discovery sweep
type DiscoveredHost struct {
	IP       string `json:"ip" yaml:"ip"`
	MAC      string `json:"mac" yaml:"mac"`
	Hostname string `json:"hostname,omitempty" yaml:"hostname,omitempty"` // mDNS, if enrichment ran
}

// ClassifiedHost is one row of sweep output
type ClassifiedHost struct {
	IP             string `json:"ip" yaml:"ip"`
	MAC            string `json:"mac" yaml:"mac"`
	Hostname       string `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	Classification string `json:"classification" yaml:"classification"`
	Confidence     int    `json:"confidence" yaml:"confidence"`
	Cached         bool   `json:"cached" yaml:"cached"`
}

// Sweep summarises one discovery-and-classify pass
type Sweep struct {
	ID         string           `json:"id" yaml:"id"`
	Target     string           `json:"target" yaml:"target"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
	Hosts      []ClassifiedHost `json:"hosts" yaml:"hosts"`
}

// Duration returns how long the sweep took
func (s *Sweep) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
