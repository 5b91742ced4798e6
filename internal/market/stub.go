package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// StubClient is a mock market client for testing.
type StubClient struct {
	mu      sync.RWMutex
	pools   map[chain.Address][]PoolSnapshot
	supply  map[chain.Address]decimal.Decimal
	failing bool
}

// NewStubClient creates a stub market client.
func NewStubClient() *StubClient {
	return &StubClient{
		pools:  make(map[chain.Address][]PoolSnapshot),
		supply: make(map[chain.Address]decimal.Decimal),
	}
}

// SetPools registers pool snapshots for a token.
func (s *StubClient) SetPools(token chain.Address, pools []PoolSnapshot, totalSupply decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools[token] = pools
	s.supply[token] = totalSupply
}

// SetFailing makes all calls fail.
func (s *StubClient) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// TokenMarket returns aggregated stub data.
func (s *StubClient) TokenMarket(_ context.Context, token chain.Address) (*Data, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failing {
		return nil, fmt.Errorf("stub: market indexer unavailable")
	}
	pools := make([]PoolSnapshot, len(s.pools[token]))
	copy(pools, s.pools[token])
	return Aggregate(pools, s.supply[token]), nil
}
