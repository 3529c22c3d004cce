package adapter

import "time"

// NmapOption is a functional option for configuring NmapScanner
type NmapOption func(*NmapScanner)

// WithDiscoveryTimeout bounds a whole ping sweep
func WithDiscoveryTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		if d > 0 {
			n.discoveryTimeout = d
		}
	}
}

// WithProbeTimeout bounds a single host's port scan (--host-timeout)
func WithProbeTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		if d > 0 {
			n.probeTimeout = d
		}
	}
}

// WithPortRange replaces fast mode with an explicit port list.
// Format: "80,443,8080" or "1-1000" or "22,80-443,8080".
// Invalid specifications are ignored and fast mode stays in effect.
func WithPortRange(ports string) NmapOption {
	return func(n *NmapScanner) {
		if _, err := ParsePortSpec(ports); err == nil {
			n.portRange = ports
		}
	}
}

// WithFastMode restores nmap's -F top-100 port scan
func WithFastMode() NmapOption {
	return func(n *NmapScanner) {
		n.portRange = ""
	}
}

// WithHostDiscoveryOnProbe makes port probes ping the host first instead of
// treating it as online (-Pn). Useful only when probing hosts that were not
// just discovered.
func WithHostDiscoveryOnProbe(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		n.skipHostDiscovery = !enabled
	}
}

// withRunner swaps the nmap invocation, for tests
func withRunner(r nmapRunner) NmapOption {
	return func(n *NmapScanner) {
		n.run = r
	}
}
