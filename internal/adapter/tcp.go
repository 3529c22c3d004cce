package adapter

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"lanscope/internal/domain"
)

// TCPConfig holds TCP connect probe settings
type TCPConfig struct {
	Ports       []int
	DialTimeout time.Duration
	Concurrency int
}

// DefaultTCPConfig returns the FastPorts list with short dial timeouts
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		Ports:       FastPorts,
		DialTimeout: 500 * time.Millisecond,
		Concurrency: 16,
	}
}

// TCPProber finds open ports by completing TCP handshakes. It needs neither
// the nmap binary nor raw sockets.
type TCPProber struct {
	config TCPConfig
	dial   func(ctx context.Context, network, addr string) (net.Conn, error)
}

// NewTCPProber creates a connect prober; zero fields in cfg take defaults
func NewTCPProber(cfg TCPConfig) *TCPProber {
	def := DefaultTCPConfig()
	if len(cfg.Ports) == 0 {
		cfg.Ports = def.Ports
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}

	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	return &TCPProber{config: cfg, dial: dialer.DialContext}
}

// Ports returns the port list this prober checks
func (p *TCPProber) Ports() []int {
	out := make([]int, len(p.config.Ports))
	copy(out, p.config.Ports)
	return out
}

// ProbePorts connects to every configured port on ip. Refused or timed out
// connections count as closed; only an unusable address or a cancelled
// context fails the probe.
func (p *TCPProber) ProbePorts(ctx context.Context, ip string) domain.ProbeResult {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return domain.ProbeFailed(fmt.Errorf("tcp probe: %w: %q", domain.ErrInvalidIP, ip))
	}

	jobs := make(chan int)
	results := make(chan int)
	var wg sync.WaitGroup

	workers := p.config.Concurrency
	if workers > len(p.config.Ports) {
		workers = len(p.config.Ports)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range jobs {
				if p.probePort(ctx, addr, port) {
					results <- port
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, port := range p.config.Ports {
			select {
			case jobs <- port:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var open []int
	for port := range results {
		open = append(open, port)
	}

	if err := ctx.Err(); err != nil {
		return domain.ProbeFailed(fmt.Errorf("tcp probe of %s: %w", ip, err))
	}
	return domain.ProbeOK(open...)
}

// probePort attempts to connect to a TCP port
func (p *TCPProber) probePort(ctx context.Context, addr netip.Addr, port int) bool {
	conn, err := p.dial(ctx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
