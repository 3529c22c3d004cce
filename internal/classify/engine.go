package classify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"lanscope/internal/cache"
	"lanscope/internal/domain"
	"lanscope/internal/vendor"
)

// ErrPersist marks a classification that was computed but not durably stored
var ErrPersist = errors.New("classification not persisted")

// PortProber reports open ports on a host
type PortProber interface {
	ProbePorts(ctx context.Context, ip string) domain.ProbeResult
}

// Result is the outcome of one Classify call
type Result struct {
	Classification string
	Confidence     int
	Vendor         string // empty on cache hits
	Rule           string // empty on cache hits
	OpenPorts      []int
	Cached         bool
}

// Engine classifies hosts
type Engine struct {
	vendors vendor.Source
	prober  PortProber
	rules   []Rule
	now     func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithRules replaces the default rule table
func WithRules(rules []Rule) Option {
	return func(e *Engine) {
		e.rules = append([]Rule(nil), rules...)
	}
}

// WithClock overrides the time source used for LastSeen
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an engine over a vendor directory and a port prober
func New(vendors vendor.Source, prober PortProber, opts ...Option) *Engine {
	e := &Engine{
		vendors: vendors,
		prober:  prober,
		rules:   DefaultRules(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules returns the active rule table in evaluation order
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Classify labels the host at ip/mac.
//
// Unless forceRefresh is set, a cached record for mac is returned as-is
// without probing. Otherwise the host is scored, the record is written to c
// and c is persisted. If persisting fails the fresh result is still
// returned, alongside an error wrapping ErrPersist.
func (e *Engine) Classify(ctx context.Context, c *cache.Cache, ip, mac string, forceRefresh bool) (Result, error) {
	if err := domain.ValidateMAC(mac); err != nil {
		return Result{}, err
	}
	if err := domain.ValidateIP(ip); err != nil {
		return Result{}, err
	}
	mac = domain.NormalizeMAC(mac)

	if !forceRefresh {
		if rec, ok := c.Get(mac); ok {
			return Result{
				Classification: rec.Classification,
				Confidence:     rec.Confidence,
				Cached:         true,
			}, nil
		}
	}

	result := e.compute(ctx, ip, mac)

	c.Put(mac, domain.CacheRecord{
		IP:             ip,
		Classification: result.Classification,
		Confidence:     result.Confidence,
		LastSeen:       e.now(),
	})
	if err := c.Save(ctx); err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrPersist, mac, err)
	}

	return result, nil
}

// compute scores a host from scratch. mac must be uppercase.
func (e *Engine) compute(ctx context.Context, ip, mac string) Result {
	vendorLabel := e.vendors.Lookup(mac)
	score := baseConfidence(vendorLabel, mac)

	ports := portsOrEmpty(ip, e.prober.ProbePorts(ctx, ip))

	rule := Evaluate(e.rules, Signals{MAC: mac, Vendor: vendorLabel, OpenPorts: ports})

	return Result{
		Classification: rule.Category.Label(vendorLabel),
		Confidence:     domain.ClampConfidence(score + rule.Bonus),
		Vendor:         vendorLabel,
		Rule:           rule.Name,
		OpenPorts:      ports,
	}
}

// portsOrEmpty is the probe failure policy: a probe that did not complete
// contributes no ports rather than failing the classification.
func portsOrEmpty(ip string, res domain.ProbeResult) []int {
	if !res.OK() {
		log.Printf("Classify: port probe of %s failed, continuing without port evidence: %v", ip, res.Err)
		return nil
	}
	return res.Ports
}
