package service

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"lanscope/internal/classify"
	"lanscope/internal/domain"
)

// probeMemo sits between the engine and the real prober. Results fetched
// ahead of time are handed out once, then the real prober is used again.
type probeMemo struct {
	next classify.PortProber

	mu      sync.Mutex
	results map[string]domain.ProbeResult
}

func newProbeMemo(next classify.PortProber) *probeMemo {
	return &probeMemo{next: next, results: make(map[string]domain.ProbeResult)}
}

// ProbePorts returns a prefetched result for ip if one is waiting
func (m *probeMemo) ProbePorts(ctx context.Context, ip string) domain.ProbeResult {
	m.mu.Lock()
	res, ok := m.results[ip]
	if ok {
		delete(m.results, ip)
	}
	m.mu.Unlock()

	if ok {
		return res
	}
	return m.next.ProbePorts(ctx, ip)
}

// prefetch probes ips concurrently, at most limit at a time
func (m *probeMemo) prefetch(ctx context.Context, ips []string, limit int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ip := range ips {
		g.Go(func() error {
			res := m.next.ProbePorts(gctx, ip)
			m.mu.Lock()
			m.results[ip] = res
			m.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("Discovery: prefetched ports for %d hosts (limit %d)", len(ips), limit)
}

// reset drops results the sweep never consumed
func (m *probeMemo) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.results)
}
