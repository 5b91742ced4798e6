package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/explorer"
	"github.com/etherlens/etherlens/internal/market"
)

var (
	testWallet = chain.MustParseAddress("0x1111111111111111111111111111111111111111")
	testToken  = chain.MustParseAddress("0x2222222222222222222222222222222222222222")
)

func newAggregator() (*Aggregator, *chain.StubClient, *explorer.StubClient, *market.StubClient) {
	chainStub := chain.NewStubClient()
	explorerStub := explorer.NewStubClient()
	marketStub := market.NewStubClient()
	agg := New(DefaultConfig(), chainStub, explorerStub, marketStub)
	return agg, chainStub, explorerStub, marketStub
}

func TestCollect_WalletSlots(t *testing.T) {
	agg, chainStub, explorerStub, _ := newAggregator()
	chainStub.SetBalance(testWallet, decimal.NewFromFloat(1.5))
	explorerStub.SetTransactions(testWallet, []explorer.Transaction{
		{Hash: "0x01", From: testWallet, Timestamp: time.Now().UTC()},
	})

	b, err := agg.Collect(context.Background(), testWallet, chain.KindWallet)
	require.NoError(t, err)

	assert.True(t, b.OK(SlotBalance))
	assert.True(t, b.OK(SlotTransactions))
	assert.True(t, b.OK(SlotEthPrice))
	require.NotNil(t, b.Balance)
	assert.True(t, b.Balance.Equal(decimal.NewFromFloat(1.5)))
	assert.Len(t, b.Transactions, 1)
	assert.Empty(t, b.DegradedSlots())

	// Wallet bundles never carry contract slots.
	_, hasSource := b.Provenance[SlotContractSource]
	assert.False(t, hasSource)
}

func TestCollect_PartialSourceFailureDegradesSlot(t *testing.T) {
	agg, chainStub, explorerStub, marketStub := newAggregator()
	chainStub.AddToken(testToken, []byte{0x60, 0x80}, chain.TokenMetadata{
		Name: "T", Symbol: "T", Decimals: 18, TotalSupply: decimal.NewFromInt(1000),
	})
	explorerStub.SetContractSource(testToken, explorer.ContractSource{Verified: true, ContractName: "T"})
	explorerStub.SetContractCreation(testToken, explorer.ContractCreation{
		Creator:   testWallet,
		CreatedAt: time.Now().Add(-90 * 24 * time.Hour),
	})
	marketStub.SetFailing(true)

	b, err := agg.Collect(context.Background(), testToken, chain.KindTokenContract)
	require.NoError(t, err)

	assert.False(t, b.OK(SlotMarket))
	assert.Nil(t, b.Market)
	assert.Contains(t, b.DegradedSlots(), string(SlotMarket))
	assert.NotEmpty(t, b.Provenance[SlotMarket].Err)

	// Everything else still landed.
	assert.True(t, b.OK(SlotTokenMetadata))
	assert.True(t, b.OK(SlotContractSource))
	assert.True(t, b.OK(SlotBytecode))
	require.NotNil(t, b.TokenMetadata)
	assert.Equal(t, "T", b.TokenMetadata.Name)
}

func TestCollect_TokenKindRunsContractAndTokenSlots(t *testing.T) {
	agg, chainStub, explorerStub, marketStub := newAggregator()
	chainStub.AddToken(testToken, []byte{0x60}, chain.TokenMetadata{Decimals: 18})
	explorerStub.SetContractCreation(testToken, explorer.ContractCreation{Creator: testWallet})
	marketStub.SetPools(testToken, []market.PoolSnapshot{
		{DEX: "uniswap_v2", LiquidityETH: decimal.NewFromInt(50)},
	}, decimal.NewFromInt(1000))

	b, err := agg.Collect(context.Background(), testToken, chain.KindTokenContract)
	require.NoError(t, err)

	for _, slot := range []Slot{
		SlotBytecode, SlotTransactions, SlotContractSource, SlotContractCreation,
		SlotTokenMetadata, SlotTokenTransfers, SlotMarket, SlotEthPrice,
	} {
		_, present := b.Provenance[slot]
		assert.True(t, present, "slot %s should be attempted", slot)
	}
	require.NotNil(t, b.Market)
	assert.True(t, b.Market.TotalLiquidityETH.Equal(decimal.NewFromInt(50)))
}

func TestCollect_ExpiredContext(t *testing.T) {
	agg, _, _, _ := newAggregator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b, err := agg.Collect(ctx, testWallet, chain.KindWallet)
	if err == nil {
		// Slots may still record instant stub results before noticing
		// cancellation; a returned bundle must then carry provenance.
		assert.NotEmpty(t, b.Provenance)
	}
}
