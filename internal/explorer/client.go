// Package explorer queries a block-explorer HTTP API (Etherscan-compatible
// module/action surface) for transaction history, contract verification
// status, creation info, and token transfer logs.
package explorer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// Transaction is one external or internal transaction involving an address.
type Transaction struct {
	Hash        string
	From        chain.Address
	To          chain.Address // zero for contract creation
	ValueETH    decimal.Decimal
	GasUsed     uint64
	GasPriceWei decimal.Decimal
	Failed      bool
	BlockNumber uint64
	Timestamp   time.Time
}

// TokenTransfer is one token transfer log entry.
type TokenTransfer struct {
	Hash      string
	From      chain.Address
	To        chain.Address
	Token     chain.Address
	Value     decimal.Decimal // normalized by token decimals
	Decimals  uint8
	Timestamp time.Time
}

// ContractSource is the verification record for a contract.
type ContractSource struct {
	Verified        bool
	ContractName    string
	CompilerVersion string
	SourceCode      string // truncated excerpt, enough for model input
	ABI             string
}

// ContractCreation identifies who deployed a contract and when.
type ContractCreation struct {
	Creator   chain.Address
	TxHash    string
	CreatedAt time.Time
}

// Client is the interface for block-explorer interactions.
// Implementations: LiveClient (real explorer API), StubClient (testing).
type Client interface {
	// Transactions returns up to limit most recent transactions for addr.
	Transactions(ctx context.Context, addr chain.Address, limit int) ([]Transaction, error)

	// TokenTransfers returns token transfer logs for a token contract since
	// the given time.
	TokenTransfers(ctx context.Context, token chain.Address, since time.Time) ([]TokenTransfer, error)

	// ContractSource returns the verification record for a contract.
	ContractSource(ctx context.Context, addr chain.Address) (*ContractSource, error)

	// ContractCreation returns deployer and creation time for a contract.
	ContractCreation(ctx context.Context, addr chain.Address) (*ContractCreation, error)

	// EthPriceUSD returns the current ETH/USD price.
	EthPriceUSD(ctx context.Context) (decimal.Decimal, error)
}

// Config configures the explorer client.
type Config struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RateLimitRPS float64       `yaml:"rate_limit_rps"`
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://api.etherscan.io/api",
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		RateLimitRPS: 5,
	}
}
