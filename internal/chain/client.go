package chain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotToken is returned by TokenMetadata when the contract does not expose
// the standard token interface. It is distinct from transport failure: the
// classifier treats it as a definitive "not a token", while transport errors
// are inconclusive.
var ErrNotToken = errors.New("contract does not implement the token interface")

// Client is the interface for Ethereum node interactions.
// Implementations: LiveClient (real JSON-RPC endpoint), StubClient (testing).
type Client interface {
	// Code returns the deployed bytecode at the address (empty for wallets).
	Code(ctx context.Context, addr Address) ([]byte, error)

	// Balance returns the ETH balance of the address, in ether.
	Balance(ctx context.Context, addr Address) (decimal.Decimal, error)

	// TokenMetadata probes the standard token interface
	// (name/symbol/decimals/totalSupply). Returns ErrNotToken when the
	// contract reverts or returns nothing for those selectors.
	TokenMetadata(ctx context.Context, addr Address) (*TokenMetadata, error)

	// Health returns the node endpoint health.
	Health(ctx context.Context) error
}

// Config configures the node client.
type Config struct {
	Endpoint     string        `yaml:"endpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:     "http://localhost:8545",
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RateLimitRPS: 10,
	}
}
