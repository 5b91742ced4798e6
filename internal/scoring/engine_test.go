package scoring

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/features"
	"github.com/etherlens/etherlens/internal/inference"
)

var scoreAddr = chain.MustParseAddress("0x4000000000000000000000000000000000000004")

func riskyTokenSet() *features.Set {
	return &features.Set{
		Address: scoreAddr,
		Kind:    chain.KindTokenContract,
		Contract: &features.ContractFeatures{
			Verified:          false,
			LPLocked:          false,
			HasMintPrivileges: true,
			OwnerIsDeployer:   true,
			ContractAgeDays:   100, // not new, keeps the rule count at three
		},
		Token: &features.TokenFeatures{},
	}
}

func maturedWalletSet() *features.Set {
	return &features.Set{
		Address: scoreAddr,
		Kind:    chain.KindWallet,
		Wallet: &features.WalletFeatures{
			TotalTransactions:    60,
			OutgoingTxCount:      50,
			IncomingTxCount:      10,
			WalletAgeDays:        400,
			UniqueCounterparties: 12,
			DaysSinceLastTx:      2,
		},
	}
}

func TestScore_ThreeRuleTokenLandsHigh(t *testing.T) {
	e := New(DefaultConfig(), nil)
	a := e.Score(context.Background(), riskyTokenSet())

	// unverified 0.35 + unlocked liquidity 0.30 + mint privileges 0.15
	assert.InDelta(t, 0.80, a.Score, 1e-9)
	assert.Equal(t, TierHigh, a.Tier)
	require.Len(t, a.Fired, 3)

	// Ordered by weight descending.
	assert.Equal(t, "unverified_contract", a.Fired[0].Name)
	assert.Equal(t, "unlocked_liquidity", a.Fired[1].Name)
	assert.Equal(t, "mint_privileges", a.Fired[2].Name)

	joined := strings.Join(a.Explanation, "\n")
	assert.Contains(t, joined, "Detected Risk Factors:")
	assert.Contains(t, joined, "(Impact: 0.35)")
	assert.Contains(t, joined, "classified as High Risk with a risk score of 0.80")
	assert.Contains(t, joined, "Recommendation: Exercise extreme caution")
}

func TestScore_MaturedWalletIsSafe(t *testing.T) {
	e := New(DefaultConfig(), nil)
	a := e.Score(context.Background(), maturedWalletSet())

	assert.Equal(t, TierSafe, a.Tier)
	assert.Equal(t, 0.0, a.Score)
	require.Len(t, a.Fired, 1)
	assert.Equal(t, "matured_wallet", a.Fired[0].Name)
	assert.Less(t, a.Fired[0].Weight, 0.0)
}

func TestScore_DormantThenActiveWallet(t *testing.T) {
	set := maturedWalletSet()
	set.Wallet.LongestGapDays = 300
	set.Wallet.DaysSinceLastTx = 3

	e := New(DefaultConfig(), nil)
	a := e.Score(context.Background(), set)

	var names []string
	for _, h := range a.Fired {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "dormant_then_active")
}

func TestScore_ModelDeltaAppliedAndClamped(t *testing.T) {
	provider := inference.NewStubProvider("stub", []inference.Assessment{
		{ScoreDelta: 0.9, Narrative: []string{"Model: transaction graph resembles known sybil clusters."}},
	})
	e := New(DefaultConfig(), provider)
	a := e.Score(context.Background(), riskyTokenSet())

	// Delta is clamped to +MaxDelta and the sum to 1.
	assert.True(t, a.ModelUsed)
	assert.InDelta(t, 1.0, a.Score, 1e-9)
	assert.Contains(t, strings.Join(a.Explanation, "\n"), "sybil clusters")
}

func TestScore_ModelFailureDegradesToHeuristics(t *testing.T) {
	provider := inference.NewStubProvider("stub", nil)
	provider.SetHealthy(false)

	e := New(DefaultConfig(), provider)
	a := e.Score(context.Background(), riskyTokenSet())

	assert.False(t, a.ModelUsed)
	assert.InDelta(t, 0.80, a.Score, 1e-9)
	assert.Contains(t, strings.Join(a.Explanation, "\n"), "Model analysis was unavailable")
}

func TestScore_DegradedSourcesAnnotated(t *testing.T) {
	set := riskyTokenSet()
	set.Degraded = []string{"market"}

	e := New(DefaultConfig(), nil)
	a := e.Score(context.Background(), set)

	assert.Contains(t, strings.Join(a.Explanation, "\n"), "data sources were unavailable (market)")
}

func TestScore_ExplanationCapKeepsRecommendation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxExplanations = 4

	e := New(cfg, nil)
	a := e.Score(context.Background(), riskyTokenSet())

	require.Len(t, a.Explanation, 4)
	assert.True(t, strings.HasPrefix(a.Explanation[3], "Recommendation:"))
}

func TestTierFor_MonotonicCutPoints(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, TierSafe, cfg.TierFor(0))
	assert.Equal(t, TierSafe, cfg.TierFor(0.29))
	assert.Equal(t, TierModerate, cfg.TierFor(0.30))
	assert.Equal(t, TierModerate, cfg.TierFor(0.69))
	assert.Equal(t, TierHigh, cfg.TierFor(0.70))
	assert.Equal(t, TierHigh, cfg.TierFor(1))

	prev := cfg.TierFor(0)
	for s := 0.0; s <= 1.0; s += 0.01 {
		cur := cfg.TierFor(s)
		assert.GreaterOrEqual(t, int(cur), int(prev))
		prev = cur
	}
}

func TestScore_NewUnverifiedComboFires(t *testing.T) {
	set := riskyTokenSet()
	set.Contract.ContractAgeDays = 5

	e := New(DefaultConfig(), nil)
	a := e.Score(context.Background(), set)

	var names []string
	for _, h := range a.Fired {
		names = append(names, h.Name)
	}
	assert.Contains(t, names, "new_contract")
	assert.Contains(t, names, "unverified_new_combo")
	// 0.35 + 0.30 + 0.20 + 0.15 + 0.15 = 1.15, capped.
	assert.InDelta(t, 0.99, a.Score, 1e-9)
	assert.Equal(t, TierHigh, a.Tier)
}
