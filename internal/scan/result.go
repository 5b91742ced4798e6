// Package scan defines the analysis result envelope returned by the
// pipeline and serialized by the HTTP layer. Results are immutable once
// built; cache hits hand out the same value they stored.
package scan

import (
	"time"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/features"
	"github.com/etherlens/etherlens/internal/scoring"
)

// Result is the flattened analysis envelope. Kind-specific payloads are
// nil for kinds they do not apply to: wallets carry WalletMetrics and
// DeFiActivity, contracts carry Features, tokens additionally TokenInfo.
type Result struct {
	Address     chain.Address `json:"address"`
	Kind        chain.Kind    `json:"-"`
	Type        string        `json:"type"`
	RiskScore   float64       `json:"risk_score"`
	RiskTier    string        `json:"risk_tier"`
	Explanation []string      `json:"explanation"`

	Summary map[string]any `json:"summary"`

	Features      *features.ContractFeatures `json:"features,omitempty"`
	IsContract    bool                       `json:"is_contract"`
	IsToken       bool                       `json:"is_token"`
	TokenInfo     *features.TokenFeatures    `json:"token_info,omitempty"`
	WalletMetrics *features.WalletFeatures   `json:"wallet_metrics,omitempty"`
	DeFiActivity  *features.DeFiActivity     `json:"defi_activity,omitempty"`

	ModelUsed  bool      `json:"model_used"`
	AnalyzedAt time.Time `json:"analyzed_at"`
}

// Build assembles the envelope from the feature set and scoring output.
func Build(set *features.Set, assessment *scoring.Assessment, at time.Time) *Result {
	r := &Result{
		Address:     set.Address,
		Kind:        set.Kind,
		Type:        set.Kind.String(),
		RiskScore:   assessment.Score,
		RiskTier:    assessment.Tier.String(),
		Explanation: assessment.Explanation,
		Summary:     summarize(set),
		ModelUsed:   assessment.ModelUsed,
		AnalyzedAt:  at.UTC(),
	}

	switch set.Kind {
	case chain.KindWallet:
		r.WalletMetrics = set.Wallet
		r.DeFiActivity = set.DeFi
	case chain.KindContract:
		r.IsContract = true
		r.Features = set.Contract
	case chain.KindTokenContract:
		r.IsContract = true
		r.IsToken = true
		r.Features = set.Contract
		r.TokenInfo = set.Token
	}
	return r
}

func summarize(set *features.Set) map[string]any {
	s := make(map[string]any)
	if w := set.Wallet; w != nil {
		s["balance"] = w.BalanceETH.String()
		s["total_transactions"] = w.TotalTransactions
		s["wallet_age_days"] = w.WalletAgeDays
		s["unique_interacted_addresses"] = w.UniqueCounterparties
	}
	if c := set.Contract; c != nil {
		s["verified_contract"] = c.Verified
		s["contract_age_days"] = c.ContractAgeDays
		if c.ContractName != "" {
			s["contract_name"] = c.ContractName
		}
	}
	if t := set.Token; t != nil {
		s["token_name"] = t.Name
		s["token_symbol"] = t.Symbol
		s["total_liquidity_eth"] = t.TotalLiquidityETH.String()
		s["price_usd"] = t.PriceUSD.String()
	}
	if len(set.Degraded) > 0 {
		s["degraded_sources"] = set.Degraded
	}
	return s
}
