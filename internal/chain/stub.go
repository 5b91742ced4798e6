package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Stub node client (for testing and development)
// ---------------------------------------------------------------------------

// StubClient is a mock node client for testing.
type StubClient struct {
	mu        sync.RWMutex
	code      map[Address][]byte
	balances  map[Address]decimal.Decimal
	tokens    map[Address]*TokenMetadata
	failNext  bool
	failProbe bool

	codeCalls  int
	probeCalls int
}

// NewStubClient creates a stub node client.
func NewStubClient() *StubClient {
	return &StubClient{
		code:     make(map[Address][]byte),
		balances: make(map[Address]decimal.Decimal),
		tokens:   make(map[Address]*TokenMetadata),
	}
}

// AddContract registers deployed bytecode at an address.
func (s *StubClient) AddContract(addr Address, code []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[addr] = code
}

// AddToken registers bytecode plus token metadata at an address.
func (s *StubClient) AddToken(addr Address, code []byte, meta TokenMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[addr] = code
	s.tokens[addr] = &meta
}

// SetBalance sets the ETH balance for an address.
func (s *StubClient) SetBalance(addr Address, bal decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] = bal
}

// SetFailNext makes the next call fail with a transport error.
func (s *StubClient) SetFailNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// SetFailProbe makes TokenMetadata calls fail with a transport error while
// leaving Code and Balance healthy.
func (s *StubClient) SetFailProbe(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failProbe = fail
}

// CodeCalls returns the number of Code invocations.
func (s *StubClient) CodeCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeCalls
}

// ProbeCalls returns the number of TokenMetadata invocations.
func (s *StubClient) ProbeCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probeCalls
}

func (s *StubClient) shouldFail() bool {
	if s.failNext {
		s.failNext = false
		return true
	}
	return false
}

// --- Interface implementation ---

func (s *StubClient) Code(_ context.Context, addr Address) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeCalls++
	if s.shouldFail() {
		return nil, fmt.Errorf("stub: simulated transport failure")
	}
	return s.code[addr], nil
}

func (s *StubClient) Balance(_ context.Context, addr Address) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shouldFail() {
		return decimal.Zero, fmt.Errorf("stub: simulated transport failure")
	}
	return s.balances[addr], nil
}

func (s *StubClient) TokenMetadata(_ context.Context, addr Address) (*TokenMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeCalls++
	if s.failProbe || s.shouldFail() {
		return nil, fmt.Errorf("stub: simulated transport failure")
	}
	meta, ok := s.tokens[addr]
	if !ok {
		return nil, ErrNotToken
	}
	cp := *meta
	return &cp, nil
}

func (s *StubClient) Health(_ context.Context) error {
	return nil
}
