// Package cache holds classification records in memory between sweeps and
// writes them through to a repository.Store.
//
// A Cache is shared by reference; every method takes its lock, so readers
// and writers from concurrent goroutines are serialised.
package cache

import (
	"context"
	"fmt"
	"sync"

	"lanscope/internal/domain"
	"lanscope/internal/repository"
)

// Cache is the in-memory view of persisted classifications
type Cache struct {
	mu      sync.RWMutex
	store   repository.Store
	records map[string]domain.CacheRecord
}

// New creates an empty cache backed by store
func New(store repository.Store) *Cache {
	return &Cache{
		store:   store,
		records: make(map[string]domain.CacheRecord),
	}
}

// Load replaces the in-memory records with the persisted set.
// An empty or absent store leaves the cache empty without error.
func (c *Cache) Load(ctx context.Context) error {
	records, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	if records == nil {
		records = make(map[string]domain.CacheRecord)
	}

	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
	return nil
}

// Get returns the record for mac
func (c *Cache) Get(mac string) (domain.CacheRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[domain.NormalizeMAC(mac)]
	return rec, ok
}

// Put stores a record, overwriting any previous one for mac
func (c *Cache) Put(mac string, rec domain.CacheRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[domain.NormalizeMAC(mac)] = rec.Normalized()
}

// Save persists a snapshot of every record
func (c *Cache) Save(ctx context.Context) error {
	snapshot := c.Snapshot()
	if err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save cache: %w", err)
	}
	return nil
}

// Snapshot returns a copy of all records
func (c *Cache) Snapshot() map[string]domain.CacheRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]domain.CacheRecord, len(c.records))
	for mac, rec := range c.records {
		out[mac] = rec
	}
	return out
}

// Len returns the number of cached records
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
