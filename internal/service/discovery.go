package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/netip"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	"lanscope/internal/cache"
	"lanscope/internal/classify"
	"lanscope/internal/domain"
	"lanscope/internal/vendor"
)

// ErrInvalidTarget is returned for targets that are neither an IPv4 CIDR
// nor a single IPv4 address
var ErrInvalidTarget = errors.New("invalid target")

// HostDiscoverer finds live (IP, MAC) pairs in a target range
type HostDiscoverer interface {
	Discover(ctx context.Context, target string) ([]domain.DiscoveredHost, error)
}

// SightingRecorder keeps a history of what each sweep saw
type SightingRecorder interface {
	Record(ctx context.Context, sweep *domain.Sweep) error
}

// Discovery runs sweeps: discover hosts, then classify each against the
// shared cache
type Discovery struct {
	discoverer HostDiscoverer
	cache      *cache.Cache
	engine     *classify.Engine
	memo       *probeMemo

	maxConcurrentProbes int
	eventBus            *EventBus
	recorder            SightingRecorder
	engineOpts          []classify.Option
}

// DiscoveryOption configures a Discovery
type DiscoveryOption func(*Discovery)

// WithMaxConcurrentProbes enables port probe prefetch when n > 1
func WithMaxConcurrentProbes(n int) DiscoveryOption {
	return func(d *Discovery) {
		d.maxConcurrentProbes = n
	}
}

// WithEventBus publishes sweep events to bus
func WithEventBus(bus *EventBus) DiscoveryOption {
	return func(d *Discovery) {
		d.eventBus = bus
	}
}

// WithRecorder records every completed sweep
func WithRecorder(r SightingRecorder) DiscoveryOption {
	return func(d *Discovery) {
		d.recorder = r
	}
}

// WithEngineOptions passes options through to the classification engine
func WithEngineOptions(opts ...classify.Option) DiscoveryOption {
	return func(d *Discovery) {
		d.engineOpts = append(d.engineOpts, opts...)
	}
}

// NewDiscovery wires a discoverer, vendor directory, port prober and cache
// into a sweep runner
func NewDiscovery(discoverer HostDiscoverer, vendors vendor.Source, prober classify.PortProber, c *cache.Cache, opts ...DiscoveryOption) *Discovery {
	d := &Discovery{
		discoverer:          discoverer,
		cache:               c,
		memo:                newProbeMemo(prober),
		maxConcurrentProbes: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.engine = classify.New(vendors, d.memo, d.engineOpts...)
	return d
}

// DiscoverAndClassify sweeps target and returns one classified host per
// discovered host, in discovery order. Hosts that fail validation are left
// out. A non-nil error alongside results reports persistence failures
// (errors.Is(err, classify.ErrPersist)).
func (d *Discovery) DiscoverAndClassify(ctx context.Context, target string, forceRefresh bool) ([]domain.ClassifiedHost, error) {
	sweep, err := d.Sweep(ctx, target, forceRefresh)
	if sweep == nil {
		return nil, err
	}
	return sweep.Hosts, err
}

// Sweep is DiscoverAndClassify with the sweep's identity and timing
func (d *Discovery) Sweep(ctx context.Context, target string, forceRefresh bool) (*domain.Sweep, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	// A sweep that cannot load the cache never starts, so no event is left open.
	if err := d.cache.Load(ctx); err != nil {
		return nil, fmt.Errorf("load cache: %w", err)
	}

	sweep := &domain.Sweep{
		ID:        newSweepID(),
		Target:    target,
		StartedAt: startedAt,
		Hosts:     []domain.ClassifiedHost{},
	}
	d.publish(EventSweepStarted, sweep.ID, SweepStartedPayload{Target: target, Force: forceRefresh})
	log.Printf("Discovery: sweep %s of %s started (force=%v)", sweep.ID, target, forceRefresh)

	hosts, err := d.discoverer.Discover(ctx, target)
	if err != nil {
		log.Printf("Discovery: host discovery of %s failed, treating as empty: %v", target, err)
		d.publish(EventDiscoveryFailed, sweep.ID, DiscoveryFailedPayload{Target: target, Error: err.Error()})
		hosts = nil
	}

	if d.maxConcurrentProbes > 1 {
		if ips := d.missIPs(hosts, forceRefresh); len(ips) > 0 {
			d.memo.prefetch(ctx, ips, d.maxConcurrentProbes)
		}
	}
	defer d.memo.reset()

	var persistErrs []error
	cached, skipped := 0, 0
	for _, h := range hosts {
		res, err := d.engine.Classify(ctx, d.cache, h.IP, h.MAC, forceRefresh)
		if err != nil && !errors.Is(err, classify.ErrPersist) {
			log.Printf("Discovery: skipping host %s (%s): %v", h.IP, h.MAC, err)
			skipped++
			continue
		}
		if err != nil {
			log.Printf("Discovery: %v", err)
			persistErrs = append(persistErrs, err)
		}

		ch := domain.ClassifiedHost{
			IP:             h.IP,
			MAC:            domain.NormalizeMAC(h.MAC),
			Hostname:       h.Hostname,
			Classification: res.Classification,
			Confidence:     res.Confidence,
			Cached:         res.Cached,
		}
		if ch.Cached {
			cached++
		}
		sweep.Hosts = append(sweep.Hosts, ch)
		d.publish(EventHostClassified, sweep.ID, ch)
	}

	sweep.FinishedAt = time.Now().UTC()
	d.publish(EventSweepCompleted, sweep.ID, SweepCompletedPayload{
		Target:        target,
		Hosts:         len(sweep.Hosts),
		Cached:        cached,
		Skipped:       skipped,
		PersistErrors: len(persistErrs),
		DurationMS:    sweep.Duration().Milliseconds(),
	})
	log.Printf("Discovery: sweep %s of %s classified %d hosts (%d cached, %d skipped) in %v",
		sweep.ID, target, len(sweep.Hosts), cached, skipped, sweep.Duration().Round(time.Millisecond))

	if d.recorder != nil {
		if err := d.recorder.Record(ctx, sweep); err != nil {
			log.Printf("Discovery: recording sweep %s failed: %v", sweep.ID, err)
		}
	}

	return sweep, errors.Join(persistErrs...)
}

// missIPs lists the IPs that classification will have to probe: the first
// occurrence of each valid MAC that the cache cannot answer
func (d *Discovery) missIPs(hosts []domain.DiscoveredHost, forceRefresh bool) []string {
	seen := make(map[string]bool)
	seenIP := make(map[string]bool)
	var ips []string
	for _, h := range hosts {
		if domain.ValidateMAC(h.MAC) != nil || domain.ValidateIP(h.IP) != nil {
			continue
		}
		mac := domain.NormalizeMAC(h.MAC)
		if seen[mac] {
			continue
		}
		seen[mac] = true
		if !forceRefresh {
			if _, ok := d.cache.Get(mac); ok {
				continue
			}
		}
		if !seenIP[h.IP] {
			seenIP[h.IP] = true
			ips = append(ips, h.IP)
		}
	}
	return ips
}

func (d *Discovery) publish(t EventType, sweepID string, payload interface{}) {
	d.eventBus.Publish(Event{Type: t, SweepID: sweepID, Payload: payload})
}

// ValidateTarget accepts an IPv4 CIDR prefix or a single IPv4 address
func ValidateTarget(target string) error {
	if prefix, err := netip.ParsePrefix(target); err == nil {
		if !prefix.Addr().Is4() {
			return fmt.Errorf("%w: %q is not IPv4", ErrInvalidTarget, target)
		}
		return nil
	}
	if addr, err := netip.ParseAddr(target); err == nil && addr.Is4() {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidTarget, target)
}

func newSweepID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("sweep-%d", time.Now().UnixNano())
	}
	return id.String()
}
