// Package features converts a raw-data bundle into a fixed-shape feature
// set per address kind. All derivations are closed-form aggregations over
// the bundle; nothing here performs network calls, and missing slots
// degrade to neutral defaults recorded in Set.Degraded.
package features

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
)

// Set is the per-kind feature vector consumed by the scoring engine.
// Exactly one of Wallet / Contract is set for plain kinds; token contracts
// carry Contract plus Token detail.
type Set struct {
	Address chain.Address
	Kind    chain.Kind

	Wallet   *WalletFeatures
	Contract *ContractFeatures
	Token    *TokenFeatures
	DeFi     *DeFiActivity

	// Degraded lists source slots that failed during aggregation, so the
	// scoring stage can down-weight confidence and annotate the result.
	Degraded []string
}

// ContractFeatures are the trust signals for any deployed contract.
type ContractFeatures struct {
	Verified          bool            `json:"verified_contract"`
	ContractName      string          `json:"contract_name,omitempty"`
	OwnerIsDeployer   bool            `json:"is_owner_deployer"`
	HasMintPrivileges bool            `json:"has_mint_privileges"`
	MintEventCount    int             `json:"mint_event_count"`
	BurnEventCount    int             `json:"burn_event_count"`
	HoneypotPattern   bool            `json:"honeypot_result"`
	LPLocked          bool            `json:"lp_locked"`
	ContractAgeDays   int             `json:"contract_age_days"`
	TransferVolume24h decimal.Decimal `json:"transfer_volume_24h"`
	SourceExcerpt     string          `json:"-"` // model input only, never serialized
}

// TokenFeatures extend contract features with holder, whale, and market
// detail for token contracts.
type TokenFeatures struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    uint8           `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`

	HolderActivity       HolderActivity       `json:"holder_activity"`
	WhaleAnalysis        WhaleAnalysis        `json:"whale_analysis"`
	ContractInteractions ContractInteractions `json:"contract_interactions"`
	TradingPatterns      TradingPatterns      `json:"trading_patterns"`

	TotalLiquidityETH decimal.Decimal `json:"total_liquidity_eth"`
	Volume24h         decimal.Decimal `json:"volume_24h"`
	PriceUSD          decimal.Decimal `json:"price_usd"`
	PriceETH          decimal.Decimal `json:"price_eth"`
	MarketCapUSD      decimal.Decimal `json:"market_cap"`
	LiquidityKnown    bool            `json:"-"` // false when the market slot failed
}

// HolderActivity summarizes transfer activity within the trailing window.
type HolderActivity struct {
	ActiveAddresses int             `json:"active_addresses"`
	BuySellRatio    string          `json:"buy_sell_ratio"` // "N:M", "N:0" when no sells
	AvgTransaction  decimal.Decimal `json:"avg_transaction"`
}

// WhaleAnalysis counts large-holder events within the trailing window.
type WhaleAnalysis struct {
	LargeTransactions  int `json:"large_transactions"`
	AccumulationEvents int `json:"accumulation_events"`
	DisposalEvents     int `json:"disposal_events"`
}

// ContractInteractions summarizes which contracts the transfer stream hit.
type ContractInteractions struct {
	DefiInteractions int               `json:"defi_interactions"`
	UniqueContracts  int               `json:"unique_contracts"`
	TopContracts     []ContractCounter `json:"top_contracts"`
}

// ContractCounter is one interaction-count entry.
type ContractCounter struct {
	Address chain.Address `json:"address"`
	Name    string        `json:"name"`
	Count   int           `json:"count"`
}

// TradingPatterns summarizes transfer cadence.
type TradingPatterns struct {
	AvgHoldingTime string `json:"avg_holding_time"` // humanized, "0s" sentinel
	ActivePairs    int    `json:"active_pairs"`
}

// WalletFeatures are the behavior signals for an externally owned account.
type WalletFeatures struct {
	BalanceETH           decimal.Decimal `json:"balance"`
	TotalTransactions    int             `json:"total_transactions"`
	IncomingTxCount      int             `json:"incoming_tx_count"`
	OutgoingTxCount      int             `json:"outgoing_tx_count"`
	FailedTxCount        int             `json:"failed_tx_count"`
	UniqueCounterparties int             `json:"unique_interacted_addresses"`
	TotalReceivedETH     decimal.Decimal `json:"total_received_eth"`
	TotalSentETH         decimal.Decimal `json:"total_sent_eth"`
	AvgGasUsed           decimal.Decimal `json:"avg_gas_used"`
	TotalGasSpentETH     decimal.Decimal `json:"total_gas_spent_eth"`
	NFTHoldings          int             `json:"nft_holdings"`
	NFTTransactions      int             `json:"nft_transactions"`
	WalletAgeDays        int             `json:"wallet_age_days"`
	FirstTxAt            string          `json:"first_tx_timestamp,omitempty"` // MM/DD/YYYY
	LastTxAt             string          `json:"last_tx_timestamp,omitempty"`

	// Dormancy signals for the scoring stage, derived from the timestamp
	// sequence rather than exposed in the API payload.
	LongestGapDays  int `json:"-"`
	DaysSinceLastTx int `json:"-"`
}

// DeFiActivity is the per-protocol interaction summary for a wallet.
type DeFiActivity struct {
	Protocols         map[string]ProtocolActivity `json:"protocols"`
	TotalInteractions int                         `json:"total_interactions"`
	TotalValueETH     decimal.Decimal             `json:"total_value_locked"`
	LastInteraction   string                      `json:"last_interaction,omitempty"` // RFC 3339
}

// ProtocolActivity is the interaction record for one protocol.
type ProtocolActivity struct {
	InteractionCount int             `json:"interaction_count"`
	TotalValueETH    decimal.Decimal `json:"total_value"`
	LastInteraction  string          `json:"last_interaction,omitempty"`
}

const dateLayout = "01/02/2006"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
