package adapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/netip"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mdlayher/arp"
	"lanscope/internal/domain"
)

// maxARPHosts caps a sweep at a /16
const maxARPHosts = 1 << 16

// arpConn is the slice of *arp.Client the discoverer uses
type arpConn interface {
	Request(ip netip.Addr) error
	// ReadReply returns the sender of the next ARP reply; a zero address
	// means the frame was not a reply
	ReadReply() (netip.Addr, net.HardwareAddr, error)
	SetReadDeadline(t time.Time) error
	Close() error
}

type arpClient struct {
	c *arp.Client
}

func (a arpClient) Request(ip netip.Addr) error       { return a.c.Request(ip) }
func (a arpClient) SetReadDeadline(t time.Time) error { return a.c.SetReadDeadline(t) }
func (a arpClient) Close() error                      { return a.c.Close() }
func (a arpClient) ReadReply() (netip.Addr, net.HardwareAddr, error) {
	pkt, _, err := a.c.Read()
	if err != nil {
		return netip.Addr{}, nil, err
	}
	if pkt.Operation != arp.OperationReply {
		return netip.Addr{}, nil, nil
	}
	return pkt.SenderIP, pkt.SenderHardwareAddr, nil
}

// ARPDiscoverer sends an ARP request to every address in the target range on
// one interface and collects replies for a fixed window
type ARPDiscoverer struct {
	iface  string
	window time.Duration
	dial   func(iface string) (arpConn, error)
}

// NewARPDiscoverer creates a discoverer bound to the named interface.
// window is how long replies are collected after the first request.
func NewARPDiscoverer(iface string, window time.Duration) *ARPDiscoverer {
	if window <= 0 {
		window = 3 * time.Second
	}
	return &ARPDiscoverer{iface: iface, window: window, dial: dialARP}
}

func dialARP(name string) (arpConn, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("interface %s: %w", name, err)
	}
	c, err := arp.Dial(ifi)
	if err != nil {
		return nil, fmt.Errorf("arp dial on %s: %w", name, err)
	}
	return arpClient{c: c}, nil
}

// Discover ARPs every host address in target and returns the responders
// sorted by IP
func (a *ARPDiscoverer) Discover(ctx context.Context, target string) ([]domain.DiscoveredHost, error) {
	prefix, err := parseTarget(target)
	if err != nil {
		return nil, err
	}
	addrs, err := hostAddrs(prefix)
	if err != nil {
		return nil, err
	}

	conn, err := a.dial(a.iface)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Replies are read while requests go out; the listening window only
	// starts once the last request has been sent.
	var until atomic.Int64
	setDeadline := func(t time.Time) error {
		if d, ok := ctx.Deadline(); ok && (t.IsZero() || d.Before(t)) {
			t = d
		}
		if !t.IsZero() {
			until.Store(t.UnixNano())
		}
		return conn.SetReadDeadline(t)
	}
	if err := setDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("arp set deadline: %w", err)
	}

	log.Printf("ARP: requesting %d addresses in %s on %s", len(addrs), prefix, a.iface)

	var mu sync.Mutex
	found := make(map[netip.Addr]string)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			ip, mac, err := conn.ReadReply()
			if err != nil {
				var ne net.Error
				if errors.As(err, &ne) && ne.Timeout() {
					return
				}
				if ctx.Err() != nil {
					return
				}
				if u := until.Load(); u != 0 && time.Now().UnixNano() >= u {
					return
				}
				continue
			}
			if !ip.IsValid() || !prefix.Contains(ip) || len(mac) == 0 {
				continue
			}
			mu.Lock()
			if _, ok := found[ip]; !ok {
				found[ip] = domain.NormalizeMAC(mac.String())
			}
			mu.Unlock()
		}
	}()

	// Unblock the reader if the caller gives up early.
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	for _, ip := range addrs {
		if ctx.Err() != nil {
			break
		}
		if err := conn.Request(ip); err != nil {
			log.Printf("ARP: request for %s failed: %v", ip, err)
		}
	}

	if ctx.Err() == nil {
		if err := setDeadline(time.Now().Add(a.window)); err != nil {
			log.Printf("ARP: set deadline: %v", err)
			conn.SetReadDeadline(time.Now())
		}
	}
	<-done

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("arp sweep of %s: %w", prefix, err)
	}

	mu.Lock()
	defer mu.Unlock()
	hosts := make([]domain.DiscoveredHost, 0, len(found))
	for ip, mac := range found {
		hosts = append(hosts, domain.DiscoveredHost{IP: ip.String(), MAC: mac})
	}
	sort.Slice(hosts, func(i, j int) bool {
		return netip.MustParseAddr(hosts[i].IP).Less(netip.MustParseAddr(hosts[j].IP))
	})

	log.Printf("ARP: %d hosts answered in %s", len(hosts), prefix)
	return hosts, nil
}

// parseTarget accepts an IPv4 CIDR or a single IPv4 address
func parseTarget(target string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(target); err == nil {
		if !prefix.Addr().Is4() {
			return netip.Prefix{}, fmt.Errorf("%w: %q", domain.ErrInvalidIP, target)
		}
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(target)
	if err != nil || !addr.Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %q", domain.ErrInvalidIP, target)
	}
	return netip.PrefixFrom(addr, 32), nil
}

// hostAddrs lists the usable host addresses of an IPv4 prefix. Network and
// broadcast addresses are left out for prefixes shorter than /31.
func hostAddrs(prefix netip.Prefix) ([]netip.Addr, error) {
	size := 1 << (32 - prefix.Bits())
	if size > maxARPHosts {
		return nil, fmt.Errorf("prefix %s too large for ARP sweep (max /16)", prefix)
	}

	addrs := make([]netip.Addr, 0, size)
	for ip := prefix.Addr(); prefix.Contains(ip); ip = ip.Next() {
		addrs = append(addrs, ip)
	}
	if prefix.Bits() < 31 && len(addrs) > 2 {
		addrs = addrs[1 : len(addrs)-1]
	}
	return addrs, nil
}
