package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lanscope/internal/cache"
	"lanscope/internal/classify"
	"lanscope/internal/domain"
	"lanscope/internal/vendor"
)

// ============================================================================
// Test Doubles
// ============================================================================

type fakeDiscoverer struct {
	hosts []domain.DiscoveredHost
	err   error
	calls int
}

func (f *fakeDiscoverer) Discover(ctx context.Context, target string) ([]domain.DiscoveredHost, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.DiscoveredHost, len(f.hosts))
	copy(out, f.hosts)
	return out, nil
}

// mapProber answers from a fixed table and tracks calls and concurrency
type mapProber struct {
	ports map[string][]int
	delay time.Duration

	mu          sync.Mutex
	calls       map[string]int
	inFlight    int
	maxInFlight int
}

func newMapProber(ports map[string][]int) *mapProber {
	return &mapProber{ports: ports, calls: make(map[string]int)}
}

func (p *mapProber) ProbePorts(ctx context.Context, ip string) domain.ProbeResult {
	p.mu.Lock()
	p.calls[ip]++
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	p.mu.Unlock()

	if p.delay > 0 {
		time.Sleep(p.delay)
	}

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return domain.ProbeOK(p.ports[ip]...)
}

func (p *mapProber) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

type memStore struct {
	mu      sync.Mutex
	records map[string]domain.CacheRecord
	loadErr error
	saveErr error
}

func (s *memStore) Load(ctx context.Context) (map[string]domain.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make(map[string]domain.CacheRecord, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out, nil
}

func (s *memStore) Save(ctx context.Context, records map[string]domain.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.records = records
	return nil
}

func (s *memStore) Close() error { return nil }

type fakeRecorder struct {
	sweeps []*domain.Sweep
	err    error
}

func (r *fakeRecorder) Record(ctx context.Context, sweep *domain.Sweep) error {
	r.sweeps = append(r.sweeps, sweep)
	return r.err
}

var fixedNow = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func newTestDiscovery(d HostDiscoverer, p classify.PortProber, store *memStore, opts ...DiscoveryOption) *Discovery {
	opts = append([]DiscoveryOption{WithEngineOptions(classify.WithClock(func() time.Time { return fixedNow }))}, opts...)
	return NewDiscovery(d, vendor.Default(), p, cache.New(store), opts...)
}

// ============================================================================
// DiscoverAndClassify
// ============================================================================

func TestDiscoverAndClassify(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{
		{IP: "192.168.1.10", MAC: "b8:27:eb:11:22:33", Hostname: "pi.local"},
		{IP: "192.168.1.11", MAC: "AA:BB:CC:DD:EE:FF"},
		{IP: "192.168.1.12", MAC: "F4:F2:6D:AA:BB:CC"},
	}}
	prober := newMapProber(map[string][]int{"192.168.1.11": {22, 1883}})
	store := &memStore{}
	d := newTestDiscovery(disc, prober, store)

	hosts, err := d.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.ClassifiedHost{
		{IP: "192.168.1.10", MAC: "B8:27:EB:11:22:33", Hostname: "pi.local", Classification: "Dev Board: Raspberry Pi", Confidence: 90},
		{IP: "192.168.1.11", MAC: "AA:BB:CC:DD:EE:FF", Classification: "IoT Device: Unknown", Confidence: 30},
		{IP: "192.168.1.12", MAC: "F4:F2:6D:AA:BB:CC", Classification: "AP: TP-Link Router", Confidence: 90},
	}
	assertHosts(t, want, hosts)

	if prober.total() != 3 {
		t.Errorf("expected 3 probes, got %d", prober.total())
	}
	if len(store.records) != 3 {
		t.Errorf("expected 3 persisted records, got %d", len(store.records))
	}

	// Second sweep is served from cache without probing.
	hosts, err = d.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range want {
		want[i].Cached = true
	}
	assertHosts(t, want, hosts)
	if prober.total() != 3 {
		t.Errorf("expected no further probes, got %d total", prober.total())
	}
}

func TestDiscoverAndClassify_ForceRefresh(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{{IP: "192.168.1.10", MAC: "AA:BB:CC:DD:EE:FF"}}}
	prober := newMapProber(map[string][]int{"192.168.1.10": {1883}})
	store := &memStore{records: map[string]domain.CacheRecord{
		"AA:BB:CC:DD:EE:FF": {IP: "192.168.1.10", Classification: "Stale", Confidence: 5, LastSeen: fixedNow.Add(-time.Hour)},
	}}
	d := newTestDiscovery(disc, prober, store)

	hosts, err := d.DiscoverAndClassify(context.Background(), "192.168.1.10", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 1 || hosts[0].Cached || hosts[0].Classification != "IoT Device: Unknown" {
		t.Fatalf("unexpected hosts: %+v", hosts)
	}
	rec := store.records["AA:BB:CC:DD:EE:FF"]
	if rec.Classification != "IoT Device: Unknown" || !rec.LastSeen.Equal(fixedNow) {
		t.Errorf("stale record not overwritten: %+v", rec)
	}
}

func TestDiscoverAndClassify_InvalidTarget(t *testing.T) {
	for _, target := range []string{"", "banana", "192.168.1.0/33", "fe80::/64", "300.1.1.1"} {
		t.Run(target, func(t *testing.T) {
			disc := &fakeDiscoverer{}
			d := newTestDiscovery(disc, newMapProber(nil), &memStore{})

			_, err := d.DiscoverAndClassify(context.Background(), target, false)
			if !errors.Is(err, ErrInvalidTarget) {
				t.Fatalf("expected ErrInvalidTarget, got %v", err)
			}
			if disc.calls != 0 {
				t.Error("discoverer should not be called for an invalid target")
			}
		})
	}
}

func TestDiscoverAndClassify_DiscoveryFailureIsEmpty(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	disc := &fakeDiscoverer{err: errors.New("nmap: executable not found")}
	d := newTestDiscovery(disc, newMapProber(nil), &memStore{}, WithEventBus(bus))

	hosts, err := d.DiscoverAndClassify(context.Background(), "10.0.0.0/24", false)
	if err != nil {
		t.Fatalf("expected discovery failure to degrade to empty, got %v", err)
	}
	if hosts == nil || len(hosts) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", hosts)
	}

	got := drain(events)
	wantTypes := []EventType{EventSweepStarted, EventDiscoveryFailed, EventSweepCompleted}
	assertEventTypes(t, wantTypes, got)
}

func TestDiscoverAndClassify_CacheLoadFailurePublishesNothing(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{{IP: "10.0.0.5", MAC: "B8:27:EB:00:00:01"}}}
	prober := newMapProber(nil)
	store := &memStore{loadErr: errors.New("disk on fire")}
	d := newTestDiscovery(disc, prober, store, WithEventBus(bus))

	sweep, err := d.Sweep(context.Background(), "10.0.0.0/24", false)
	if err == nil {
		t.Fatal("expected cache load error")
	}
	if sweep != nil {
		t.Errorf("expected nil sweep, got %+v", sweep)
	}
	if got := drain(events); len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
	if n := prober.total(); n != 0 {
		t.Errorf("expected no probes, got %d", n)
	}
}

func TestDiscoverAndClassify_SkipsInvalidHosts(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{
		{IP: "192.168.1.10", MAC: "not-a-mac"},
		{IP: "192.168.1.999", MAC: "AA:BB:CC:DD:EE:01"},
		{IP: "192.168.1.12", MAC: "AA:BB:CC:DD:EE:02"},
	}}
	prober := newMapProber(nil)
	d := newTestDiscovery(disc, prober, &memStore{})

	hosts, err := d.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 1 || hosts[0].IP != "192.168.1.12" {
		t.Fatalf("expected only the valid host, got %+v", hosts)
	}
	if prober.total() != 1 {
		t.Errorf("invalid hosts must not be probed, got %d probes", prober.total())
	}
}

func TestDiscoverAndClassify_RepeatedMACSeesEarlierWrite(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{
		{IP: "192.168.1.10", MAC: "AA:BB:CC:DD:EE:FF"},
		{IP: "192.168.1.20", MAC: "aa:bb:cc:dd:ee:ff"},
	}}
	prober := newMapProber(map[string][]int{"192.168.1.10": {5683}})
	d := newTestDiscovery(disc, prober, &memStore{})

	hosts, err := d.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("expected both occurrences, got %+v", hosts)
	}
	if hosts[0].Cached || !hosts[1].Cached {
		t.Errorf("expected miss then hit, got %+v", hosts)
	}
	if hosts[1].Classification != hosts[0].Classification || hosts[1].Confidence != hosts[0].Confidence {
		t.Errorf("second occurrence should echo the first: %+v", hosts)
	}
	if prober.total() != 1 {
		t.Errorf("expected a single probe, got %d", prober.total())
	}
}

func TestDiscoverAndClassify_PersistFailure(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{
		{IP: "192.168.1.10", MAC: "B8:27:EB:11:22:33"},
		{IP: "192.168.1.11", MAC: "AA:BB:CC:DD:EE:FF"},
	}}
	store := &memStore{saveErr: errors.New("disk full")}
	d := newTestDiscovery(disc, newMapProber(nil), store)

	hosts, err := d.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if !errors.Is(err, classify.ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if len(hosts) != 2 {
		t.Fatalf("expected results despite persist failure, got %+v", hosts)
	}
	if hosts[0].Classification != "Dev Board: Raspberry Pi" {
		t.Errorf("unexpected classification %q", hosts[0].Classification)
	}
}

func TestDiscoverAndClassify_Prefetch(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{
		{IP: "192.168.1.10", MAC: "AA:BB:CC:00:00:01"},
		{IP: "192.168.1.11", MAC: "AA:BB:CC:00:00:02"},
		{IP: "192.168.1.12", MAC: "AA:BB:CC:00:00:03"},
		{IP: "192.168.1.13", MAC: "AA:BB:CC:00:00:04"},
		{IP: "192.168.1.14", MAC: "AA:BB:CC:00:00:05"},
		{IP: "192.168.1.10", MAC: "AA:BB:CC:00:00:01"},
		{IP: "192.168.1.15", MAC: "B8:27:EB:00:00:01"},
	}}
	ports := map[string][]int{"192.168.1.11": {1883}, "192.168.1.13": {5683}}
	store := &memStore{records: map[string]domain.CacheRecord{
		"B8:27:EB:00:00:01": {IP: "192.168.1.15", Classification: "Dev Board: Raspberry Pi", Confidence: 90, LastSeen: fixedNow},
	}}

	prober := newMapProber(ports)
	prober.delay = 20 * time.Millisecond
	d := newTestDiscovery(disc, prober, store, WithMaxConcurrentProbes(2))

	hosts, err := d.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same answers as a strictly sequential sweep.
	seqDisc := &fakeDiscoverer{hosts: disc.hosts}
	seqStore := &memStore{records: map[string]domain.CacheRecord{
		"B8:27:EB:00:00:01": store.records["B8:27:EB:00:00:01"],
	}}
	seq := newTestDiscovery(seqDisc, newMapProber(ports), seqStore)
	want, err := seq.DiscoverAndClassify(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertHosts(t, want, hosts)

	if prober.total() != 5 {
		t.Errorf("expected one probe per distinct cache miss (5), got %d", prober.total())
	}
	if prober.maxInFlight > 2 {
		t.Errorf("expected at most 2 concurrent probes, saw %d", prober.maxInFlight)
	}
}

func TestDiscoverAndClassify_Events(t *testing.T) {
	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{
		{IP: "192.168.1.10", MAC: "AA:BB:CC:00:00:01"},
		{IP: "192.168.1.11", MAC: "AA:BB:CC:00:00:02"},
	}}
	d := newTestDiscovery(disc, newMapProber(nil), &memStore{}, WithEventBus(bus))

	sweep, err := d.Sweep(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := drain(events)
	assertEventTypes(t, []EventType{EventSweepStarted, EventHostClassified, EventHostClassified, EventSweepCompleted}, got)
	for _, ev := range got {
		if ev.SweepID != sweep.ID {
			t.Errorf("event %s carries sweep ID %q, want %q", ev.Type, ev.SweepID, sweep.ID)
		}
	}

	completed, ok := got[len(got)-1].Payload.(SweepCompletedPayload)
	if !ok {
		t.Fatalf("unexpected completion payload %T", got[len(got)-1].Payload)
	}
	if completed.Hosts != 2 || completed.Cached != 0 {
		t.Errorf("unexpected completion payload: %+v", completed)
	}
}

func TestDiscoverAndClassify_Recorder(t *testing.T) {
	disc := &fakeDiscoverer{hosts: []domain.DiscoveredHost{{IP: "192.168.1.10", MAC: "AA:BB:CC:00:00:01"}}}
	rec := &fakeRecorder{err: errors.New("postgres down")}
	d := newTestDiscovery(disc, newMapProber(nil), &memStore{}, WithRecorder(rec))

	sweep, err := d.Sweep(context.Background(), "192.168.1.0/24", false)
	if err != nil {
		t.Fatalf("recorder failure must not fail the sweep: %v", err)
	}
	if len(rec.sweeps) != 1 || rec.sweeps[0] != sweep {
		t.Fatalf("expected the sweep to be recorded once, got %d", len(rec.sweeps))
	}
	if sweep.ID == "" || sweep.FinishedAt.Before(sweep.StartedAt) {
		t.Errorf("unexpected sweep metadata: %+v", sweep)
	}
}

func TestValidateTarget(t *testing.T) {
	tests := []struct {
		target string
		valid  bool
	}{
		{"192.168.1.0/24", true},
		{"10.0.0.5", true},
		{"10.0.0.5/32", true},
		{"", false},
		{"10.0.0.0/", false},
		{"::1", false},
		{"example.com", false},
	}

	for _, tt := range tests {
		err := ValidateTarget(tt.target)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateTarget(%q): expected valid=%v, got %v", tt.target, tt.valid, err)
		}
	}
}

// ============================================================================
// Helpers
// ============================================================================

func assertHosts(t *testing.T, want, got []domain.ClassifiedHost) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d hosts, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("host %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func drain(ch chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func assertEventTypes(t *testing.T, want []EventType, got []Event) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i].Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], got[i].Type)
		}
	}
}
