package adapter

import (
	"context"

	"lanscope/internal/domain"
)

// Discoverer finds live hosts and their hardware addresses in a target range
type Discoverer interface {
	Discover(ctx context.Context, target string) ([]domain.DiscoveredHost, error)
}

// Prober reports open ports on a single host. Failures are carried in the
// result, never returned separately.
type Prober interface {
	ProbePorts(ctx context.Context, ip string) domain.ProbeResult
}

var (
	_ Discoverer = (*NmapScanner)(nil)
	_ Discoverer = (*ARPDiscoverer)(nil)
	_ Discoverer = (*MDNSEnricher)(nil)
	_ Prober     = (*NmapScanner)(nil)
	_ Prober     = (*TCPProber)(nil)
)
