package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// sourceExcerptLimit bounds the source code excerpt carried into the bundle.
const sourceExcerptLimit = 1000

var weiPerEther = decimal.New(1, 18)

// LiveClient connects to a real Etherscan-compatible explorer API.
type LiveClient struct {
	config     Config
	httpClient *http.Client
}

// NewLiveClient creates a live explorer client.
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

// apiEnvelope is the explorer's standard response wrapper.
type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// get performs a module/action query with retries and decodes the result
// into out. An empty result set ("No transactions found") is not an error.
func (c *LiveClient) get(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", c.config.APIKey)
	reqURL := c.config.BaseURL + "?" + params.Encode()

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("explorer: create request: %w", err))
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("explorer: %s: %w", params.Get("action"), err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("explorer: %s read response: %w", params.Get("action"), err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("explorer: %s HTTP %d", params.Get("action"), resp.StatusCode)
		}

		var env apiEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("explorer: %s unmarshal: %w", params.Get("action"), err)
		}
		if env.Status != "1" {
			if strings.Contains(env.Message, "No transactions found") ||
				strings.Contains(env.Message, "No records found") {
				return nil // empty result, out keeps its zero value
			}
			return backoff.Permanent(fmt.Errorf("explorer: %s: %s", params.Get("action"), env.Message))
		}
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("explorer: %s decode result: %w", params.Get("action"), err)
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.config.MaxRetries)),
		ctx,
	)
	return backoff.Retry(attempt, policy)
}

// --- wire records ---

type txRecord struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	GasUsed     string `json:"gasUsed"`
	GasPrice    string `json:"gasPrice"`
	IsError     string `json:"isError"`
	BlockNumber string `json:"blockNumber"`
	TimeStamp   string `json:"timeStamp"`
}

type transferRecord struct {
	Hash            string `json:"hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	ContractAddress string `json:"contractAddress"`
	Value           string `json:"value"`
	TokenDecimal    string `json:"tokenDecimal"`
	TimeStamp       string `json:"timeStamp"`
}

type sourceRecord struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
	ABI             string `json:"ABI"`
}

type creationRecord struct {
	ContractCreator string `json:"contractCreator"`
	TxHash          string `json:"txHash"`
	Timestamp       string `json:"timestamp"`
}

type ethPriceRecord struct {
	EthUSD string `json:"ethusd"`
}

// --- Client interface implementation ---

// Transactions fetches account/txlist, most recent first.
func (c *LiveClient) Transactions(ctx context.Context, addr chain.Address, limit int) ([]Transaction, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("address", addr.String())
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(limit))
	params.Set("sort", "desc")

	var records []txRecord
	if err := c.get(ctx, params, &records); err != nil {
		return nil, err
	}

	txs := make([]Transaction, 0, len(records))
	for _, r := range records {
		tx := Transaction{
			Hash:   r.Hash,
			Failed: r.IsError == "1",
		}
		if from, err := chain.ParseAddress(r.From); err == nil {
			tx.From = from
		}
		if to, err := chain.ParseAddress(r.To); err == nil {
			tx.To = to
		}
		if v, err := decimal.NewFromString(r.Value); err == nil {
			tx.ValueETH = v.Div(weiPerEther)
		}
		if gas, err := strconv.ParseUint(r.GasUsed, 10, 64); err == nil {
			tx.GasUsed = gas
		}
		if gp, err := decimal.NewFromString(r.GasPrice); err == nil {
			tx.GasPriceWei = gp
		}
		if bn, err := strconv.ParseUint(r.BlockNumber, 10, 64); err == nil {
			tx.BlockNumber = bn
		}
		if ts, err := strconv.ParseInt(r.TimeStamp, 10, 64); err == nil {
			tx.Timestamp = time.Unix(ts, 0).UTC()
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// TokenTransfers fetches account/tokentx for a token contract since the
// given time. Block filtering is approximated by the explorer's timestamp
// field; entries before the cutoff are dropped client-side.
func (c *LiveClient) TokenTransfers(ctx context.Context, token chain.Address, since time.Time) ([]TokenTransfer, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("contractaddress", token.String())
	params.Set("sort", "desc")

	var records []transferRecord
	if err := c.get(ctx, params, &records); err != nil {
		return nil, err
	}

	transfers := make([]TokenTransfer, 0, len(records))
	for _, r := range records {
		ts, err := strconv.ParseInt(r.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		at := time.Unix(ts, 0).UTC()
		if at.Before(since) {
			continue
		}
		tr := TokenTransfer{Hash: r.Hash, Timestamp: at}
		if from, err := chain.ParseAddress(r.From); err == nil {
			tr.From = from
		}
		if to, err := chain.ParseAddress(r.To); err == nil {
			tr.To = to
		}
		if tok, err := chain.ParseAddress(r.ContractAddress); err == nil {
			tr.Token = tok
		}
		dec, err := strconv.ParseUint(r.TokenDecimal, 10, 8)
		if err != nil {
			dec = 18
		}
		tr.Decimals = uint8(dec)
		if v, err := decimal.NewFromString(r.Value); err == nil {
			tr.Value = v.Shift(-int32(dec))
		}
		transfers = append(transfers, tr)
	}
	return transfers, nil
}

// ContractSource fetches contract/getsourcecode.
func (c *LiveClient) ContractSource(ctx context.Context, addr chain.Address) (*ContractSource, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getsourcecode")
	params.Set("address", addr.String())

	var records []sourceRecord
	if err := c.get(ctx, params, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &ContractSource{}, nil
	}

	r := records[0]
	src := r.SourceCode
	if len(src) > sourceExcerptLimit {
		src = src[:sourceExcerptLimit]
	}
	abi := r.ABI
	if abi == "Contract source code not verified" {
		abi = ""
	}
	return &ContractSource{
		Verified:        r.SourceCode != "",
		ContractName:    r.ContractName,
		CompilerVersion: r.CompilerVersion,
		SourceCode:      src,
		ABI:             abi,
	}, nil
}

// ContractCreation fetches contract/getcontractcreation.
func (c *LiveClient) ContractCreation(ctx context.Context, addr chain.Address) (*ContractCreation, error) {
	params := url.Values{}
	params.Set("module", "contract")
	params.Set("action", "getcontractcreation")
	params.Set("contractaddresses", addr.String())

	var records []creationRecord
	if err := c.get(ctx, params, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("explorer: no creation record for %s", addr)
	}

	r := records[0]
	creation := &ContractCreation{TxHash: r.TxHash}
	if creator, err := chain.ParseAddress(r.ContractCreator); err == nil {
		creation.Creator = creator
	}
	if ts, err := strconv.ParseInt(r.Timestamp, 10, 64); err == nil && ts > 0 {
		creation.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return creation, nil
}

// EthPriceUSD fetches stats/ethprice.
func (c *LiveClient) EthPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("module", "stats")
	params.Set("action", "ethprice")

	var record ethPriceRecord
	if err := c.get(ctx, params, &record); err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(record.EthUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("explorer: ethprice decode: %w", err)
	}
	return price, nil
}
