package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Config configures the HTTP model provider.
type Config struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// DefaultConfig returns provider defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    6 * time.Second,
		MaxRetries: 2,
	}
}

// HTTPProvider posts feature sets to an external inference service.
type HTTPProvider struct {
	config Config
	client *http.Client

	mu        sync.Mutex
	calls     int
	errors    int
	lastErr   string
	latencies []int // trailing window for p95
}

// NewHTTPProvider creates a provider against the configured endpoint.
func NewHTTPProvider(config Config) *HTTPProvider {
	def := DefaultConfig()
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = def.MaxRetries
	}
	return &HTTPProvider{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider's identifier.
func (p *HTTPProvider) Name() string {
	return "http"
}

// Assess posts the request and decodes the assessment. Transient transport
// and 5xx failures are retried with exponential backoff; 4xx responses are
// permanent.
func (p *HTTPProvider) Assess(ctx context.Context, req AssessRequest) (*Assessment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("inference: encode request: %w", err)
	}

	var out Assessment
	start := time.Now()
	op := func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if p.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
		}

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("inference: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("inference: status %d", resp.StatusCode))
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return backoff.Permanent(fmt.Errorf("inference: decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), p.config.MaxRetries), ctx)
	err = backoff.Retry(op, policy)
	elapsed := int(time.Since(start).Milliseconds())

	p.mu.Lock()
	p.calls++
	if err != nil {
		p.errors++
		p.lastErr = err.Error()
	} else {
		p.latencies = append(p.latencies, elapsed)
		if len(p.latencies) > 100 {
			p.latencies = p.latencies[1:]
		}
	}
	p.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("inference: assess failed")
		return nil, err
	}

	out.LatencyMs = elapsed
	out.Provider = p.Name()
	return &out, nil
}

// Health reports availability from the trailing call window.
func (p *HTTPProvider) Health() ProviderHealth {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := ProviderHealth{Available: p.config.Endpoint != ""}
	if p.calls > 0 {
		h.ErrorRate = float64(p.errors) / float64(p.calls)
		h.Available = h.Available && h.ErrorRate < 0.5
	}
	h.LastError = p.lastErr
	h.LatencyP95Ms = p.latencyP95()
	return h
}

func (p *HTTPProvider) latencyP95() int {
	n := len(p.latencies)
	if n == 0 {
		return 0
	}
	// The window is small; a copy-and-scan is fine.
	sorted := make([]int, n)
	copy(sorted, p.latencies)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	idx := (n * 95) / 100
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
