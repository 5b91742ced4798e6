package explorer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// StubClient is a mock explorer client for testing. Individual methods can
// be failed independently to exercise partial-failure paths.
type StubClient struct {
	mu        sync.RWMutex
	txs       map[chain.Address][]Transaction
	transfers map[chain.Address][]TokenTransfer
	sources   map[chain.Address]*ContractSource
	creations map[chain.Address]*ContractCreation
	ethPrice  decimal.Decimal
	failing   map[string]bool
}

// NewStubClient creates a stub explorer client.
func NewStubClient() *StubClient {
	return &StubClient{
		txs:       make(map[chain.Address][]Transaction),
		transfers: make(map[chain.Address][]TokenTransfer),
		sources:   make(map[chain.Address]*ContractSource),
		creations: make(map[chain.Address]*ContractCreation),
		ethPrice:  decimal.NewFromInt(2000),
		failing:   make(map[string]bool),
	}
}

// SetTransactions registers the transaction history for an address.
func (s *StubClient) SetTransactions(addr chain.Address, txs []Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs[addr] = txs
}

// SetTokenTransfers registers transfer logs for a token.
func (s *StubClient) SetTokenTransfers(token chain.Address, transfers []TokenTransfer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers[token] = transfers
}

// SetContractSource registers the verification record for a contract.
func (s *StubClient) SetContractSource(addr chain.Address, src ContractSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[addr] = &src
}

// SetContractCreation registers creation info for a contract.
func (s *StubClient) SetContractCreation(addr chain.Address, creation ContractCreation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creations[addr] = &creation
}

// SetEthPrice sets the stub ETH/USD price.
func (s *StubClient) SetEthPrice(price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ethPrice = price
}

// SetFailing marks a method ("transactions", "token_transfers", "source",
// "creation", "eth_price") as permanently failing.
func (s *StubClient) SetFailing(method string, failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[method] = failing
}

func (s *StubClient) fails(method string) error {
	if s.failing[method] {
		return fmt.Errorf("stub: explorer %s unavailable", method)
	}
	return nil
}

// --- Client interface implementation ---

func (s *StubClient) Transactions(_ context.Context, addr chain.Address, limit int) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fails("transactions"); err != nil {
		return nil, err
	}
	txs := s.txs[addr]
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	out := make([]Transaction, len(txs))
	copy(out, txs)
	return out, nil
}

func (s *StubClient) TokenTransfers(_ context.Context, token chain.Address, since time.Time) ([]TokenTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fails("token_transfers"); err != nil {
		return nil, err
	}
	var out []TokenTransfer
	for _, tr := range s.transfers[token] {
		if !tr.Timestamp.Before(since) {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (s *StubClient) ContractSource(_ context.Context, addr chain.Address) (*ContractSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fails("source"); err != nil {
		return nil, err
	}
	src, ok := s.sources[addr]
	if !ok {
		return &ContractSource{}, nil
	}
	cp := *src
	return &cp, nil
}

func (s *StubClient) ContractCreation(_ context.Context, addr chain.Address) (*ContractCreation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fails("creation"); err != nil {
		return nil, err
	}
	creation, ok := s.creations[addr]
	if !ok {
		return nil, fmt.Errorf("stub: no creation record for %s", addr)
	}
	cp := *creation
	return &cp, nil
}

func (s *StubClient) EthPriceUSD(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fails("eth_price"); err != nil {
		return decimal.Zero, err
	}
	return s.ethPrice, nil
}
