package adapter

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"lanscope/internal/domain"
)

// nmapRunner executes one nmap invocation and returns its parsed report
type nmapRunner func(ctx context.Context, opts []nmap.Option) (*nmap.Run, []string, error)

// NmapScanner discovers hosts with an nmap ping scan and probes ports with
// nmap fast mode
type NmapScanner struct {
	discoveryTimeout  time.Duration
	probeTimeout      time.Duration
	portRange         string // empty means -F
	skipHostDiscovery bool
	run               nmapRunner

	mu           sync.Mutex
	lastScanTime time.Time
}

// NewNmapScanner creates a scanner backed by the nmap binary on PATH
func NewNmapScanner(opts ...NmapOption) *NmapScanner {
	n := &NmapScanner{
		discoveryTimeout:  2 * time.Minute,
		probeTimeout:      30 * time.Second,
		skipHostDiscovery: true,
		run:               runNmap,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// LastScanTime returns when the last discovery sweep finished
func (n *NmapScanner) LastScanTime() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastScanTime
}

// Discover runs a ping scan (-sn) over target and returns every live host
// nmap resolved a MAC address for, in scan order
func (n *NmapScanner) Discover(ctx context.Context, target string) ([]domain.DiscoveredHost, error) {
	ctx, cancel := context.WithTimeout(ctx, n.discoveryTimeout)
	defer cancel()

	log.Printf("Nmap: ping scan of %s", target)
	start := time.Now()

	result, warnings, err := n.run(ctx, n.discoveryOptions(target))
	logWarnings(warnings)
	if err != nil {
		return nil, fmt.Errorf("nmap ping scan of %s: %w", target, err)
	}

	hosts := parseDiscovery(result)

	n.mu.Lock()
	n.lastScanTime = time.Now()
	n.mu.Unlock()

	log.Printf("Nmap: ping scan of %s found %d hosts with MAC addresses in %v",
		target, len(hosts), time.Since(start).Round(time.Millisecond))
	return hosts, nil
}

// ProbePorts scans ip and reports its open TCP ports. A host that does not
// answer within the probe timeout yields an empty, successful result.
func (n *NmapScanner) ProbePorts(ctx context.Context, ip string) domain.ProbeResult {
	// The context gets slack over --host-timeout so nmap can report the
	// timeout itself rather than being killed.
	ctx, cancel := context.WithTimeout(ctx, n.probeTimeout+10*time.Second)
	defer cancel()

	result, warnings, err := n.run(ctx, n.probeOptions(ip))
	logWarnings(warnings)
	if err != nil {
		return domain.ProbeFailed(fmt.Errorf("nmap port scan of %s: %w", ip, err))
	}
	return domain.ProbeOK(parseOpenPorts(result, ip)...)
}

func (n *NmapScanner) discoveryOptions(target string) []nmap.Option {
	return []nmap.Option{
		nmap.WithTargets(target),
		nmap.WithPingScan(),
	}
}

func (n *NmapScanner) probeOptions(ip string) []nmap.Option {
	opts := []nmap.Option{
		nmap.WithTargets(ip),
		nmap.WithHostTimeout(n.probeTimeout),
	}
	if n.portRange == "" {
		opts = append(opts, nmap.WithFastMode())
	} else {
		opts = append(opts, nmap.WithPorts(n.portRange))
	}
	if n.skipHostDiscovery {
		opts = append(opts, nmap.WithSkipHostDiscovery())
	}
	return opts
}

func runNmap(ctx context.Context, opts []nmap.Option) (*nmap.Run, []string, error) {
	scanner, err := nmap.NewScanner(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create nmap scanner: %w", err)
	}

	result, warnings, err := scanner.Run()
	var w []string
	if warnings != nil {
		w = *warnings
	}
	if err != nil {
		return nil, w, err
	}
	return result, w, nil
}

func logWarnings(warnings []string) {
	for _, w := range warnings {
		log.Printf("Nmap: warning: %s", w)
	}
}

// parseDiscovery extracts (IP, MAC, hostname) from a ping scan report.
// Hosts that are down or have no MAC (the scanning machine itself, or
// anything past a router) are skipped.
func parseDiscovery(result *nmap.Run) []domain.DiscoveredHost {
	if result == nil {
		return nil
	}

	hosts := make([]domain.DiscoveredHost, 0, len(result.Hosts))
	for _, host := range result.Hosts {
		if host.Status.State != "up" {
			continue
		}

		var ip, mac string
		for _, addr := range host.Addresses {
			switch addr.AddrType {
			case "ipv4":
				ip = addr.Addr
			case "mac":
				mac = domain.NormalizeMAC(addr.Addr)
			}
		}
		if ip == "" {
			continue
		}
		if mac == "" {
			log.Printf("Nmap: %s has no MAC address in scan results, skipping", ip)
			continue
		}

		h := domain.DiscoveredHost{IP: ip, MAC: mac}
		if len(host.Hostnames) > 0 {
			h.Hostname = strings.TrimSuffix(host.Hostnames[0].Name, ".")
		}
		hosts = append(hosts, h)
	}
	return hosts
}

// parseOpenPorts returns the sorted open port numbers reported for ip
func parseOpenPorts(result *nmap.Run, ip string) []int {
	if result == nil {
		return nil
	}

	var ports []int
	for _, host := range result.Hosts {
		if !hostHasAddr(host, ip) {
			continue
		}
		for _, port := range host.Ports {
			if port.State.State != "open" {
				continue
			}
			ports = append(ports, int(port.ID))
		}
	}
	sort.Ints(ports)
	return ports
}

func hostHasAddr(host nmap.Host, ip string) bool {
	for _, addr := range host.Addresses {
		if addr.Addr == ip {
			return true
		}
	}
	return false
}
