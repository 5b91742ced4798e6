package chain

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Live node client — Ethereum JSON-RPC with rate limiting & retry
// ---------------------------------------------------------------------------

// Standard token interface selectors probed by TokenMetadata.
const (
	selName        = "0x06fdde03" // name()
	selSymbol      = "0x95d89b41" // symbol()
	selDecimals    = "0x313ce567" // decimals()
	selTotalSupply = "0x18160ddd" // totalSupply()
)

const (
	circuitBreakerThreshold = 10
	circuitBreakerCooldown  = 30 * time.Second
)

var weiPerEther = decimal.New(1, 18)

// LiveClient connects to a real Ethereum JSON-RPC endpoint.
type LiveClient struct {
	config     Config
	httpClient *http.Client

	// Token bucket rate limiter.
	limiter       chan struct{}
	limiterCtx    context.Context
	limiterCancel context.CancelFunc

	nextID atomic.Int64

	// Circuit breaker.
	consecutiveErrors atomic.Int64
	circuitOpen       atomic.Bool

	// Stats.
	requestCount atomic.Int64
	errorCount   atomic.Int64
	latencySum   atomic.Int64 // cumulative microseconds
}

// NewLiveClient creates a live Ethereum node client.
func NewLiveClient(config Config) *LiveClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.RateLimitRPS == 0 {
		config.RateLimitRPS = 10
	}

	bucketSize := int(config.RateLimitRPS)
	if bucketSize < 1 {
		bucketSize = 1
	}
	limiter := make(chan struct{}, bucketSize)
	for i := 0; i < bucketSize; i++ {
		limiter <- struct{}{}
	}

	limiterCtx, limiterCancel := context.WithCancel(context.Background())

	client := &LiveClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter:       limiter,
		limiterCtx:    limiterCtx,
		limiterCancel: limiterCancel,
	}

	// Refill tokens at configured RPS.
	go func() {
		interval := time.Duration(float64(time.Second) / config.RateLimitRPS)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-limiterCtx.Done():
				return
			case <-ticker.C:
				select {
				case client.limiter <- struct{}{}:
				default: // bucket full
				}
			}
		}
	}()

	return client
}

// Close shuts down the node client.
func (c *LiveClient) Close() {
	c.limiterCancel()
}

// rpcRequest is a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcRevert marks a node-level error (revert, bad params). Not retryable.
type rpcRevert struct {
	method string
	code   int
	msg    string
}

func (e *rpcRevert) Error() string {
	return fmt.Sprintf("rpc: %s error %d: %s", e.method, e.code, e.msg)
}

// call makes a rate-limited JSON-RPC call with exponential backoff on
// transport failure. Node-level errors (reverts) are returned immediately.
func (c *LiveClient) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if c.circuitOpen.Load() {
		return nil, fmt.Errorf("rpc: circuit breaker open for %s (too many consecutive errors)", method)
	}

	// Acquire rate limit token.
	select {
	case <-c.limiter:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal request: %w", err)
	}

	var result json.RawMessage
	attempt := func() error {
		raw, err := c.doOnce(ctx, method, body)
		if err != nil {
			var revert *rpcRevert
			if errors.As(err, &revert) {
				return backoff.Permanent(err)
			}
			c.recordError()
			return err
		}
		c.resetErrors()
		result = raw
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.config.MaxRetries)),
		ctx,
	)
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, fmt.Errorf("rpc: %s failed after %d attempts: %w", method, c.config.MaxRetries+1, err)
	}
	return result, nil
}

// doOnce performs a single HTTP round trip.
func (c *LiveClient) doOnce(ctx context.Context, method string, body []byte) (json.RawMessage, error) {
	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rpc: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("rpc: %s http error: %w", method, err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("rpc: %s read response: %w", method, err)
	}

	c.requestCount.Add(1)
	c.latencySum.Add(time.Since(start).Microseconds())

	if resp.StatusCode != http.StatusOK {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("rpc: %s HTTP %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("rpc: %s unmarshal response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, &rpcRevert{method: method, code: rpcResp.Error.Code, msg: rpcResp.Error.Message}
	}
	return rpcResp.Result, nil
}

// recordError increments consecutive errors and opens the circuit breaker
// when the threshold is crossed.
func (c *LiveClient) recordError() {
	count := c.consecutiveErrors.Add(1)
	if count >= circuitBreakerThreshold {
		if c.circuitOpen.CompareAndSwap(false, true) {
			log.Error().Int64("errors", count).Msg("rpc: circuit breaker open")
			go func() {
				time.Sleep(circuitBreakerCooldown)
				c.circuitOpen.Store(false)
				c.consecutiveErrors.Store(0)
				log.Info().Msg("rpc: circuit breaker reset")
			}()
		}
	}
}

func (c *LiveClient) resetErrors() {
	c.consecutiveErrors.Store(0)
}

// ---------------------------------------------------------------------------
// Client interface implementation
// ---------------------------------------------------------------------------

// Code returns deployed bytecode via eth_getCode.
func (c *LiveClient) Code(ctx context.Context, addr Address) ([]byte, error) {
	result, err := c.call(ctx, "eth_getCode", []any{addr.String(), "latest"})
	if err != nil {
		return nil, err
	}
	var hexCode string
	if err := json.Unmarshal(result, &hexCode); err != nil {
		return nil, fmt.Errorf("rpc: eth_getCode decode: %w", err)
	}
	hexCode = strings.TrimPrefix(hexCode, "0x")
	if hexCode == "" {
		return nil, nil
	}
	code, err := hex.DecodeString(hexCode)
	if err != nil {
		return nil, fmt.Errorf("rpc: eth_getCode invalid hex: %w", err)
	}
	return code, nil
}

// Balance returns the ETH balance via eth_getBalance, converted to ether.
func (c *LiveClient) Balance(ctx context.Context, addr Address) (decimal.Decimal, error) {
	result, err := c.call(ctx, "eth_getBalance", []any{addr.String(), "latest"})
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := decodeQuantity(result)
	if err != nil {
		return decimal.Zero, fmt.Errorf("rpc: eth_getBalance decode: %w", err)
	}
	return decimal.NewFromBigInt(wei, 0).Div(weiPerEther), nil
}

// TokenMetadata probes name/symbol/decimals/totalSupply via eth_call.
// A revert or empty return on any selector means the contract is not a
// standard token; transport errors propagate as-is.
func (c *LiveClient) TokenMetadata(ctx context.Context, addr Address) (*TokenMetadata, error) {
	name, err := c.callSelector(ctx, addr, selName)
	if err != nil {
		return nil, err
	}
	symbol, err := c.callSelector(ctx, addr, selSymbol)
	if err != nil {
		return nil, err
	}
	decimalsRaw, err := c.callSelector(ctx, addr, selDecimals)
	if err != nil {
		return nil, err
	}
	supplyRaw, err := c.callSelector(ctx, addr, selTotalSupply)
	if err != nil {
		return nil, err
	}

	decimals := new(big.Int).SetBytes(decimalsRaw)
	supply := new(big.Int).SetBytes(supplyRaw)
	if !decimals.IsUint64() || decimals.Uint64() > 255 {
		return nil, ErrNotToken
	}

	meta := &TokenMetadata{
		Name:        decodeABIString(name),
		Symbol:      decodeABIString(symbol),
		Decimals:    uint8(decimals.Uint64()),
		TotalSupply: decimal.NewFromBigInt(supply, -int32(decimals.Uint64())),
	}
	return meta, nil
}

// callSelector issues an eth_call for a 4-byte selector and returns the raw
// return data. Reverts and empty returns map to ErrNotToken.
func (c *LiveClient) callSelector(ctx context.Context, addr Address, selector string) ([]byte, error) {
	result, err := c.call(ctx, "eth_call", []any{
		map[string]any{"to": addr.String(), "data": selector},
		"latest",
	})
	if err != nil {
		var revert *rpcRevert
		if errors.As(err, &revert) {
			return nil, ErrNotToken
		}
		return nil, err
	}
	var hexData string
	if err := json.Unmarshal(result, &hexData); err != nil {
		return nil, fmt.Errorf("rpc: eth_call decode: %w", err)
	}
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return nil, fmt.Errorf("rpc: eth_call invalid hex: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotToken
	}
	return data, nil
}

// Health checks the endpoint via eth_blockNumber.
func (c *LiveClient) Health(ctx context.Context) error {
	_, err := c.call(ctx, "eth_blockNumber", nil)
	return err
}

// decodeQuantity parses a 0x-prefixed hex quantity.
func decodeQuantity(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return v, nil
}

// decodeABIString decodes an ABI-encoded dynamic string return value.
// Falls back to trimming the raw bytes for non-standard fixed returns.
func decodeABIString(data []byte) string {
	if len(data) >= 64 {
		offset := new(big.Int).SetBytes(data[:32])
		if offset.IsUint64() && offset.Uint64()+32 <= uint64(len(data)) {
			o := offset.Uint64()
			length := new(big.Int).SetBytes(data[o : o+32])
			if length.IsUint64() && o+32+length.Uint64() <= uint64(len(data)) {
				return string(data[o+32 : o+32+length.Uint64()])
			}
		}
	}
	// bytes32-style return
	return strings.TrimRight(string(data), "\x00")
}
