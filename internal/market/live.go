package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// LiveClient connects to a real liquidity indexer.
type LiveClient struct {
	config     Config
	httpClient *http.Client
}

// NewLiveClient creates a live market client.
func NewLiveClient(config Config) *LiveClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	return &LiveClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// poolRecord is the indexer's wire format for one pool.
type poolRecord struct {
	DEX          string          `json:"dex"`
	PairAddress  string          `json:"pair_address"`
	LiquidityETH decimal.Decimal `json:"liquidity_eth"`
	TokenReserve decimal.Decimal `json:"token_reserve"`
	PriceETH     decimal.Decimal `json:"price_eth"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	Volume24h    decimal.Decimal `json:"volume_24h"`
}

type tokenMarketResponse struct {
	Pools       []poolRecord    `json:"pools"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}

// TokenMarket fetches pool snapshots for a token and aggregates them.
func (c *LiveClient) TokenMarket(ctx context.Context, token chain.Address) (*Data, error) {
	reqURL := fmt.Sprintf("%s/v1/tokens/%s/pools", c.config.BaseURL, token)

	var payload tokenMarketResponse
	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("market: create request: %w", err))
		}
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("market: pools: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("market: pools read response: %w", err)
		}
		if resp.StatusCode == http.StatusNotFound {
			// Token with no indexed pools. Legitimate, not retryable.
			payload = tokenMarketResponse{}
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("market: pools HTTP %d", resp.StatusCode)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return fmt.Errorf("market: pools unmarshal: %w", err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.config.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, err
	}

	pools := make([]PoolSnapshot, 0, len(payload.Pools))
	for _, r := range payload.Pools {
		p := PoolSnapshot{
			DEX:          r.DEX,
			LiquidityETH: r.LiquidityETH,
			TokenReserve: r.TokenReserve,
			PriceETH:     r.PriceETH,
			PriceUSD:     r.PriceUSD,
			Volume24h:    r.Volume24h,
		}
		if addr, err := chain.ParseAddress(r.PairAddress); err == nil {
			p.PairAddress = addr
		}
		pools = append(pools, p)
	}
	return Aggregate(pools, payload.TotalSupply), nil
}
