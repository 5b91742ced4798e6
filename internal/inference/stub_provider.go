package inference

import (
	"context"
	"fmt"
	"sync"
)

// StubProvider is a deterministic model provider for testing. It returns
// pre-loaded assessments in order, cycling back to the start when all
// have been consumed.
type StubProvider struct {
	mu          sync.Mutex
	name        string
	assessments []Assessment
	idx         int
	healthy     bool
	calls       int
}

// NewStubProvider creates a StubProvider with the given name and
// pre-loaded assessments.
func NewStubProvider(name string, assessments []Assessment) *StubProvider {
	return &StubProvider{
		name:        name,
		assessments: assessments,
		healthy:     true,
	}
}

// Name returns the provider's identifier.
func (s *StubProvider) Name() string {
	return s.name
}

// Assess returns the next pre-loaded assessment. If the provider is
// unhealthy it returns an error.
func (s *StubProvider) Assess(_ context.Context, _ AssessRequest) (*Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	if !s.healthy {
		return nil, fmt.Errorf("provider %s is unhealthy", s.name)
	}
	if len(s.assessments) == 0 {
		return nil, fmt.Errorf("provider %s has no assessments configured", s.name)
	}

	out := s.assessments[s.idx]
	out.Provider = s.name
	s.idx = (s.idx + 1) % len(s.assessments)
	return &out, nil
}

// Health returns the current health status of the stub provider.
func (s *StubProvider) Health() ProviderHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := ProviderHealth{
		Available:    s.healthy,
		LatencyP95Ms: 50,
	}
	if !s.healthy {
		h.ErrorRate = 1.0
		h.LastError = "provider marked unhealthy"
	}
	return h
}

// SetHealthy sets whether the stub provider is healthy.
func (s *StubProvider) SetHealthy(healthy bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = healthy
}

// Calls returns how many Assess calls the stub has served.
func (s *StubProvider) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
