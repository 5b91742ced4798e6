package scan

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/features"
	"github.com/etherlens/etherlens/internal/scoring"
)

var resultAddr = chain.MustParseAddress("0x5000000000000000000000000000000000000005")

func TestBuild_WalletEnvelope(t *testing.T) {
	set := &features.Set{
		Address: resultAddr,
		Kind:    chain.KindWallet,
		Wallet:  &features.WalletFeatures{TotalTransactions: 60, WalletAgeDays: 400},
		DeFi:    &features.DeFiActivity{Protocols: map[string]features.ProtocolActivity{}},
	}
	assessment := &scoring.Assessment{
		Score: 0.05, Tier: scoring.TierSafe,
		Explanation: []string{"Analysis Overview: wallet"},
	}

	r := Build(set, assessment, time.Now())

	assert.Equal(t, "Wallet", r.Type)
	assert.Equal(t, "Safe", r.RiskTier)
	assert.False(t, r.IsContract)
	assert.False(t, r.IsToken)
	require.NotNil(t, r.WalletMetrics)
	assert.Equal(t, 60, r.WalletMetrics.TotalTransactions)
	assert.NotNil(t, r.DeFiActivity)
	assert.Nil(t, r.TokenInfo)
	assert.Nil(t, r.Features)
	assert.Equal(t, 400, r.Summary["wallet_age_days"])
}

func TestBuild_TokenEnvelopeSerializesFlat(t *testing.T) {
	set := &features.Set{
		Address:  resultAddr,
		Kind:     chain.KindTokenContract,
		Contract: &features.ContractFeatures{Verified: true, ContractAgeDays: 90},
		Token:    &features.TokenFeatures{Name: "Tok", Symbol: "TOK"},
		Degraded: []string{"market"},
	}
	assessment := &scoring.Assessment{
		Score: 0.75, Tier: scoring.TierHigh,
		Explanation: []string{"line"},
	}

	r := Build(set, assessment, time.Now())
	require.True(t, r.IsContract)
	require.True(t, r.IsToken)

	raw, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "Token", decoded["type"])
	assert.Equal(t, "High Risk", decoded["risk_tier"])
	assert.InDelta(t, 0.75, decoded["risk_score"], 1e-9)
	assert.Contains(t, decoded, "token_info")
	assert.Contains(t, decoded, "features")
	assert.NotContains(t, decoded, "wallet_metrics")

	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, "TOK", summary["token_symbol"])
	assert.Contains(t, summary, "degraded_sources")
}
