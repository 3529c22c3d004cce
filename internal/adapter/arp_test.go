package adapter

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"
)

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// fakeARP answers requests for addresses in its table, once per request
type fakeARP struct {
	mu       sync.Mutex
	table    map[netip.Addr]net.HardwareAddr
	replies  chan netip.Addr
	requests int
	closed   bool
	deadline time.Time
	delay    time.Duration // per request
}

func newFakeARP(table map[string]string) *fakeARP {
	f := &fakeARP{
		table:   make(map[netip.Addr]net.HardwareAddr),
		replies: make(chan netip.Addr, 1024),
	}
	for ip, mac := range table {
		hw, _ := net.ParseMAC(mac)
		f.table[netip.MustParseAddr(ip)] = hw
	}
	return f
}

func (f *fakeARP) Request(ip netip.Addr) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	if _, ok := f.table[ip]; ok {
		f.replies <- ip
		// Duplicate replies must be collapsed.
		f.replies <- ip
	}
	return nil
}

// ReadReply blocks until a reply arrives or the read deadline passes
func (f *fakeARP) ReadReply() (netip.Addr, net.HardwareAddr, error) {
	for {
		select {
		case ip := <-f.replies:
			f.mu.Lock()
			defer f.mu.Unlock()
			return ip, f.table[ip], nil
		case <-time.After(5 * time.Millisecond):
			f.mu.Lock()
			d := f.deadline
			f.mu.Unlock()
			if !d.IsZero() && !time.Now().Before(d) {
				return netip.Addr{}, nil, timeoutError{}
			}
		}
	}
}

func (f *fakeARP) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	return nil
}

func (f *fakeARP) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestARPDiscoverer_Discover(t *testing.T) {
	fake := newFakeARP(map[string]string{
		"192.168.1.20": "b8:27:eb:00:00:01",
		"192.168.1.3":  "00:11:22:33:44:55",
		"10.0.0.1":     "aa:aa:aa:aa:aa:aa",
	})

	d := NewARPDiscoverer("eth0", 200*time.Millisecond)
	d.dial = func(iface string) (arpConn, error) {
		if iface != "eth0" {
			t.Errorf("expected interface eth0, got %s", iface)
		}
		return fake, nil
	}

	hosts, err := d.Discover(context.Background(), "192.168.1.0/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hosts) != 2 {
		t.Fatalf("expected 2 hosts, got %+v", hosts)
	}
	if hosts[0].IP != "192.168.1.3" || hosts[0].MAC != "00:11:22:33:44:55" {
		t.Errorf("unexpected first host: %+v", hosts[0])
	}
	if hosts[1].IP != "192.168.1.20" || hosts[1].MAC != "B8:27:EB:00:00:01" {
		t.Errorf("unexpected second host: %+v", hosts[1])
	}
	if fake.requests != 254 {
		t.Errorf("expected 254 requests, got %d", fake.requests)
	}
	if !fake.closed {
		t.Error("expected connection to be closed")
	}
}

func TestARPDiscoverer_WindowStartsAfterLastRequest(t *testing.T) {
	fake := newFakeARP(map[string]string{
		"192.168.1.250": "b8:27:eb:00:00:fa",
	})
	// Sending all 254 requests takes longer than the listening window.
	fake.delay = time.Millisecond

	d := NewARPDiscoverer("eth0", 50*time.Millisecond)
	d.dial = func(string) (arpConn, error) { return fake, nil }

	hosts, err := d.Discover(context.Background(), "192.168.1.0/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 1 || hosts[0].IP != "192.168.1.250" {
		t.Errorf("expected late host 192.168.1.250, got %+v", hosts)
	}
}

func TestARPDiscoverer_DialError(t *testing.T) {
	d := NewARPDiscoverer("nope0", time.Second)
	d.dial = func(string) (arpConn, error) {
		return nil, errors.New("no such interface")
	}
	if _, err := d.Discover(context.Background(), "192.168.1.0/24"); err == nil {
		t.Fatal("expected dial error")
	}
}

func TestARPDiscoverer_InvalidTarget(t *testing.T) {
	d := NewARPDiscoverer("eth0", time.Second)
	d.dial = func(string) (arpConn, error) {
		t.Fatal("dial should not be reached")
		return nil, nil
	}

	for _, target := range []string{"", "banana", "fe80::/64", "10.0.0.0/8"} {
		if _, err := d.Discover(context.Background(), target); err == nil {
			t.Errorf("expected error for target %q", target)
		}
	}
}

func TestHostAddrs(t *testing.T) {
	tests := []struct {
		prefix    string
		wantLen   int
		wantFirst string
		wantLast  string
	}{
		{prefix: "192.168.1.0/24", wantLen: 254, wantFirst: "192.168.1.1", wantLast: "192.168.1.254"},
		{prefix: "10.0.0.0/30", wantLen: 2, wantFirst: "10.0.0.1", wantLast: "10.0.0.2"},
		{prefix: "10.0.0.0/31", wantLen: 2, wantFirst: "10.0.0.0", wantLast: "10.0.0.1"},
		{prefix: "10.0.0.7/32", wantLen: 1, wantFirst: "10.0.0.7", wantLast: "10.0.0.7"},
	}

	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			addrs, err := hostAddrs(netip.MustParsePrefix(tt.prefix))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(addrs) != tt.wantLen {
				t.Fatalf("expected %d addresses, got %d", tt.wantLen, len(addrs))
			}
			if addrs[0].String() != tt.wantFirst {
				t.Errorf("expected first %s, got %s", tt.wantFirst, addrs[0])
			}
			if addrs[len(addrs)-1].String() != tt.wantLast {
				t.Errorf("expected last %s, got %s", tt.wantLast, addrs[len(addrs)-1])
			}
		})
	}
}

func TestParseTarget(t *testing.T) {
	p, err := parseTarget("192.168.1.77/24")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.String() != "192.168.1.0/24" {
		t.Errorf("expected masked prefix, got %s", p)
	}

	p, err = parseTarget("192.168.1.77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Bits() != 32 {
		t.Errorf("expected /32 for single address, got %s", p)
	}
}
