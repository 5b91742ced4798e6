// Package market queries a DEX liquidity indexer for pool snapshots and
// derives per-token market aggregates (total liquidity, main pool, price,
// volume, market cap).
package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// PoolSnapshot is the state of one DEX pool holding the token.
type PoolSnapshot struct {
	DEX          string          `json:"dex"`
	PairAddress  chain.Address   `json:"pair_address"`
	LiquidityETH decimal.Decimal `json:"liquidity_eth"`
	TokenReserve decimal.Decimal `json:"token_reserve"`
	PriceETH     decimal.Decimal `json:"price_eth"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
}

// Data aggregates pool snapshots for one token. The main pool is the one
// with the deepest ETH-side liquidity; its price is taken as the token price.
type Data struct {
	Pools             []PoolSnapshot
	TotalLiquidityETH decimal.Decimal
	Volume24h         decimal.Decimal
	PriceETH          decimal.Decimal
	PriceUSD          decimal.Decimal
	MarketCapUSD      decimal.Decimal
	MainPool          *chain.Address
}

// Client is the interface for market-data interactions.
type Client interface {
	// TokenMarket returns aggregated pool data for a token contract.
	TokenMarket(ctx context.Context, token chain.Address) (*Data, error)
}

// Config configures the market client.
type Config struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	}
}

// Aggregate folds pool snapshots into token-level market data, optionally
// computing market cap from total supply.
func Aggregate(pools []PoolSnapshot, totalSupply decimal.Decimal) *Data {
	data := &Data{Pools: pools}
	var max decimal.Decimal
	for i, p := range pools {
		data.TotalLiquidityETH = data.TotalLiquidityETH.Add(p.LiquidityETH)
		data.Volume24h = data.Volume24h.Add(p.Volume24h)
		if p.LiquidityETH.GreaterThan(max) {
			max = p.LiquidityETH
			data.PriceETH = p.PriceETH
			data.PriceUSD = p.PriceUSD
			addr := pools[i].PairAddress
			data.MainPool = &addr
		}
	}
	if data.PriceUSD.IsPositive() && totalSupply.IsPositive() {
		data.MarketCapUSD = totalSupply.Mul(data.PriceUSD)
	}
	return data
}
