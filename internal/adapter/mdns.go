package adapter

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"lanscope/internal/domain"
)

var mdnsGroup = &net.UDPAddr{IP: net.IPv4(224, 0, 0, 251), Port: 5353}

// MDNSEnricher decorates a Discoverer, filling in hostnames that devices
// announce over multicast DNS. Lookup failures leave hostnames as they were.
type MDNSEnricher struct {
	next    Discoverer
	iface   string
	timeout time.Duration
	lookup  func(ctx context.Context, iface string, timeout time.Duration) (map[string]string, error)
}

// NewMDNSEnricher wraps next. iface may be empty to use the system default
// multicast interface.
func NewMDNSEnricher(next Discoverer, iface string, timeout time.Duration) *MDNSEnricher {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &MDNSEnricher{next: next, iface: iface, timeout: timeout, lookup: mdnsNameByIP}
}

// Discover delegates to the wrapped discoverer then merges mDNS names into
// hosts that have none
func (m *MDNSEnricher) Discover(ctx context.Context, target string) ([]domain.DiscoveredHost, error) {
	hosts, err := m.next.Discover(ctx, target)
	if err != nil || len(hosts) == 0 {
		return hosts, err
	}

	names, err := m.lookup(ctx, m.iface, m.timeout)
	if err != nil {
		log.Printf("mDNS: hostname lookup failed: %v", err)
		return hosts, nil
	}

	merged := 0
	for i := range hosts {
		if hosts[i].Hostname != "" {
			continue
		}
		if name, ok := names[hosts[i].IP]; ok {
			hosts[i].Hostname = name
			merged++
		}
	}
	log.Printf("mDNS: %d names heard, %d hosts named", len(names), merged)
	return hosts, nil
}

// mdnsQuery builds the DNS-SD service enumeration query
func mdnsQuery() ([]byte, error) {
	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn("_services._dns-sd._udp.local"), dns.TypePTR)
	q.RecursionDesired = false
	return q.Pack()
}

// mdnsNameByIP sends a service enumeration query and listens for answers
// until timeout, mapping every advertised A/AAAA address to its name
func mdnsNameByIP(ctx context.Context, iface string, timeout time.Duration) (map[string]string, error) {
	var ifi *net.Interface
	if iface != "" {
		var err error
		if ifi, err = net.InterfaceByName(iface); err != nil {
			return nil, fmt.Errorf("interface %s: %w", iface, err)
		}
	}

	conn, err := net.ListenMulticastUDP("udp4", ifi, mdnsGroup)
	if err != nil {
		return nil, fmt.Errorf("mdns listen: %w", err)
	}
	defer conn.Close()
	_ = conn.SetReadBuffer(1 << 20)

	query, err := mdnsQuery()
	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	if _, err := conn.WriteToUDP(query, mdnsGroup); err != nil {
		return nil, fmt.Errorf("mdns send: %w", err)
	}

	out := make(map[string]string)
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 65536)

	for time.Now().Before(deadline) && ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}

		msg := new(dns.Msg)
		if err := msg.Unpack(buf[:n]); err != nil {
			continue
		}
		namesFromMessage(msg, out)
	}
	return out, nil
}

// namesFromMessage records the owner name of every address record in the
// answer and additional sections. First name heard for an address wins.
func namesFromMessage(msg *dns.Msg, out map[string]string) {
	records := make([]dns.RR, 0, len(msg.Answer)+len(msg.Extra))
	records = append(records, msg.Answer...)
	records = append(records, msg.Extra...)

	for _, rr := range records {
		var ip string
		switch r := rr.(type) {
		case *dns.A:
			ip = r.A.String()
		case *dns.AAAA:
			ip = r.AAAA.String()
		default:
			continue
		}
		if _, ok := out[ip]; ok {
			continue
		}
		out[ip] = strings.TrimSuffix(rr.Header().Name, ".")
	}
}
