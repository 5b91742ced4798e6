// Package cache is the look-aside result cache in front of the pipeline.
// Entries are keyed by (address, kind) and bounded both by TTL and by LRU
// capacity.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/scan"
)

// Config configures the result cache.
type Config struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// DefaultConfig returns cache defaults.
func DefaultConfig() Config {
	return Config{
		TTL:      5 * time.Minute,
		Capacity: 2048,
	}
}

// Cache stores analysis results until they age out or are evicted.
type Cache struct {
	lru *expirable.LRU[string, *scan.Result]

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache.
func New(config Config) *Cache {
	def := DefaultConfig()
	if config.TTL == 0 {
		config.TTL = def.TTL
	}
	if config.Capacity == 0 {
		config.Capacity = def.Capacity
	}
	return &Cache{
		lru: expirable.NewLRU[string, *scan.Result](config.Capacity, nil, config.TTL),
	}
}

func key(addr chain.Address, kind chain.Kind) string {
	return addr.String() + "|" + kind.String()
}

// Get returns the cached result for an exact (address, kind) pair.
func (c *Cache) Get(addr chain.Address, kind chain.Kind) (*scan.Result, bool) {
	r, ok := c.lru.Get(key(addr, kind))
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return r, ok
}

// Lookup returns the cached result for an address whose kind is not yet
// known, trying each kind. Kinds are stable on-chain, so at most one entry
// can exist per address.
func (c *Cache) Lookup(addr chain.Address) (*scan.Result, bool) {
	for _, kind := range []chain.Kind{chain.KindWallet, chain.KindContract, chain.KindTokenContract} {
		if r, ok := c.lru.Get(key(addr, kind)); ok {
			c.hits.Add(1)
			return r, true
		}
	}
	c.misses.Add(1)
	return nil, false
}

// Store caches a result under its address and kind.
func (c *Cache) Store(r *scan.Result) {
	c.lru.Add(key(r.Address, r.Kind), r)
}

// Stats returns cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}
