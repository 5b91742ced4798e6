package features

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherlens/etherlens/internal/aggregate"
	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/explorer"
	"github.com/etherlens/etherlens/internal/market"
)

var (
	walletAddr = chain.MustParseAddress("0x1000000000000000000000000000000000000001")
	peerAddr   = chain.MustParseAddress("0x2000000000000000000000000000000000000002")
	tokenAddr  = chain.MustParseAddress("0x3000000000000000000000000000000000000003")
	uniRouter  = chain.MustParseAddress("0x7a250d5630b4cf539739df2c5dacb4c659f2488d")

	collectedAt = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
)

func walletBundle() *aggregate.Bundle {
	firstTx := collectedAt.AddDate(0, 0, -400)
	bal := decimal.NewFromFloat(2.5)

	txs := make([]explorer.Transaction, 0, 60)
	txs = append(txs, explorer.Transaction{
		Hash: "0xfirst", From: walletAddr, To: peerAddr,
		ValueETH: decimal.NewFromInt(1), GasUsed: 21000,
		GasPriceWei: decimal.New(2, 10), // 20 gwei
		Timestamp:   firstTx,
	})
	for i := 1; i < 50; i++ {
		txs = append(txs, explorer.Transaction{
			From: walletAddr, To: peerAddr,
			ValueETH:  decimal.NewFromInt(1),
			GasUsed:   21000,
			Timestamp: firstTx.Add(time.Duration(i) * time.Hour),
		})
	}
	for i := 0; i < 10; i++ {
		txs = append(txs, explorer.Transaction{
			From: peerAddr, To: walletAddr,
			ValueETH:  decimal.NewFromInt(2),
			Timestamp: firstTx.Add(time.Duration(100+i) * time.Hour),
		})
	}

	return &aggregate.Bundle{
		Address:      walletAddr,
		Kind:         chain.KindWallet,
		Balance:      &bal,
		Transactions: txs,
		Provenance: map[aggregate.Slot]aggregate.SlotStatus{
			aggregate.SlotBalance:      {OK: true},
			aggregate.SlotTransactions: {OK: true},
			aggregate.SlotEthPrice:     {OK: true},
		},
		CollectedAt: collectedAt,
	}
}

func TestExtract_WalletCounts(t *testing.T) {
	s := Extract(walletBundle())

	require.Equal(t, chain.KindWallet, s.Kind)
	require.NotNil(t, s.Wallet)
	assert.Nil(t, s.Contract)
	assert.Nil(t, s.Token)

	w := s.Wallet
	assert.Equal(t, 60, w.TotalTransactions)
	assert.Equal(t, 50, w.OutgoingTxCount)
	assert.Equal(t, 10, w.IncomingTxCount)
	assert.Equal(t, 0, w.FailedTxCount)
	assert.Equal(t, 400, w.WalletAgeDays)
	assert.Equal(t, 1, w.UniqueCounterparties)
	assert.True(t, w.TotalSentETH.Equal(decimal.NewFromInt(50)))
	assert.True(t, w.TotalReceivedETH.Equal(decimal.NewFromInt(20)))
	assert.True(t, w.BalanceETH.Equal(decimal.NewFromFloat(2.5)))
	assert.NotEmpty(t, w.FirstTxAt)
	assert.Empty(t, s.Degraded)
}

func TestExtract_Deterministic(t *testing.T) {
	b := walletBundle()
	first := Extract(b)
	second := Extract(b)
	assert.True(t, reflect.DeepEqual(first, second))
}

func TestExtract_FutureTimestampsSkipped(t *testing.T) {
	b := walletBundle()
	b.Transactions = append(b.Transactions, explorer.Transaction{
		From: walletAddr, To: peerAddr,
		Timestamp: collectedAt.Add(48 * time.Hour),
	})

	s := Extract(b)
	assert.Equal(t, 60, s.Wallet.TotalTransactions)
}

func tokenBundle() *aggregate.Bundle {
	created := collectedAt.AddDate(0, 0, -10)
	deployer := peerAddr
	// Bytecode carrying mint(address,uint256) and the multiSend honeypot
	// selector.
	code := []byte{0x60, 0x80, 0x40, 0xc1, 0x0f, 0x19, 0x00, 0x8d, 0x80, 0xff, 0x0a}

	transfers := []explorer.TokenTransfer{
		{From: chain.ZeroAddress, To: peerAddr, Token: tokenAddr, Value: decimal.NewFromInt(500), Timestamp: created.Add(time.Hour)},
		{From: uniRouter, To: peerAddr, Token: tokenAddr, Value: decimal.NewFromInt(100), Timestamp: created.Add(2 * time.Hour)},
		{From: peerAddr, To: uniRouter, Token: tokenAddr, Value: decimal.NewFromInt(30), Timestamp: created.Add(3 * time.Hour)},
		{From: peerAddr, To: chain.ZeroAddress, Token: tokenAddr, Value: decimal.NewFromInt(5), Timestamp: created.Add(4 * time.Hour)},
	}

	return &aggregate.Bundle{
		Address:  tokenAddr,
		Kind:     chain.KindTokenContract,
		Bytecode: code,
		Transactions: []explorer.Transaction{
			{Hash: "0xdeploy", From: deployer, To: tokenAddr, Timestamp: created},
		},
		TokenTransfers: transfers,
		ContractSource: &explorer.ContractSource{Verified: false},
		ContractCreation: &explorer.ContractCreation{
			Creator:   deployer,
			TxHash:    "0xdeploy",
			CreatedAt: created,
		},
		TokenMetadata: &chain.TokenMetadata{
			Name: "Pump Token", Symbol: "PMP", Decimals: 18,
			TotalSupply: decimal.NewFromInt(100_000),
		},
		Market: &market.Data{
			TotalLiquidityETH: decimal.NewFromInt(12),
			PriceUSD:          decimal.NewFromFloat(0.5),
		},
		Provenance: map[aggregate.Slot]aggregate.SlotStatus{
			aggregate.SlotBytecode:         {OK: true},
			aggregate.SlotTransactions:     {OK: true},
			aggregate.SlotTokenTransfers:   {OK: true},
			aggregate.SlotContractSource:   {OK: true},
			aggregate.SlotContractCreation: {OK: true},
			aggregate.SlotTokenMetadata:    {OK: true},
			aggregate.SlotMarket:           {OK: true},
			aggregate.SlotEthPrice:         {OK: true},
		},
		CollectedAt: collectedAt,
	}
}

func TestExtract_TokenContractFeatures(t *testing.T) {
	s := Extract(tokenBundle())

	require.NotNil(t, s.Contract)
	require.NotNil(t, s.Token)

	c := s.Contract
	assert.False(t, c.Verified)
	assert.True(t, c.HasMintPrivileges)
	assert.True(t, c.HoneypotPattern)
	assert.False(t, c.LPLocked)
	assert.True(t, c.OwnerIsDeployer)
	assert.Equal(t, 10, c.ContractAgeDays)
	assert.Equal(t, 1, c.MintEventCount)
	assert.Equal(t, 1, c.BurnEventCount)
	assert.True(t, c.TransferVolume24h.Equal(decimal.NewFromInt(635)))
}

func TestExtract_TokenHolderActivity(t *testing.T) {
	s := Extract(tokenBundle())
	tok := s.Token

	assert.Equal(t, "1:1", tok.HolderActivity.BuySellRatio)
	// peer + router, zero address excluded.
	assert.Equal(t, 2, tok.HolderActivity.ActiveAddresses)
	assert.True(t, tok.HolderActivity.AvgTransaction.Equal(decimal.NewFromFloat(158.75)))

	// Threshold is 0.1% of 100k supply = 100; only the 500-token mint
	// crosses it.
	assert.Equal(t, 1, tok.WhaleAnalysis.LargeTransactions)
	assert.Equal(t, 1, tok.TradingPatterns.ActivePairs)
	assert.NotEqual(t, "0s", tok.TradingPatterns.AvgHoldingTime)
	assert.True(t, tok.LiquidityKnown)
	assert.Equal(t, "Pump Token", tok.Name)
}

func TestExtract_BuySellSentinelWhenNoSells(t *testing.T) {
	b := tokenBundle()
	b.TokenTransfers = []explorer.TokenTransfer{
		{From: uniRouter, To: peerAddr, Value: decimal.NewFromInt(10), Timestamp: collectedAt.Add(-time.Hour)},
	}
	s := Extract(b)
	assert.Equal(t, "1:0", s.Token.HolderActivity.BuySellRatio)
}

func TestExtract_DegradedSlotsSurfaceInSet(t *testing.T) {
	b := tokenBundle()
	b.Market = nil
	b.Provenance[aggregate.SlotMarket] = aggregate.SlotStatus{OK: false, Err: "boom"}

	s := Extract(b)
	assert.Contains(t, s.Degraded, string(aggregate.SlotMarket))
	assert.False(t, s.Token.LiquidityKnown)
	assert.True(t, s.Token.TotalLiquidityETH.IsZero())
}

func TestExtract_LPLockDetection(t *testing.T) {
	b := tokenBundle()
	b.Transactions = append(b.Transactions, explorer.Transaction{
		From: peerAddr,
		To:   chain.MustParseAddress("0x663a5c229c09b049e36dcc11a9b0d4a8eb9db214"),
	})
	s := Extract(b)
	assert.True(t, s.Contract.LPLocked)
}

func TestExtract_WalletDeFiActivity(t *testing.T) {
	b := walletBundle()
	b.Transactions = append(b.Transactions,
		explorer.Transaction{
			From: walletAddr, To: uniRouter,
			ValueETH:  decimal.NewFromInt(3),
			Timestamp: collectedAt.Add(-time.Hour),
		},
		explorer.Transaction{
			From: walletAddr, To: uniRouter,
			ValueETH:  decimal.NewFromInt(1),
			Timestamp: collectedAt.Add(-2 * time.Hour),
		},
	)

	s := Extract(b)
	require.NotNil(t, s.DeFi)
	assert.Equal(t, 2, s.DeFi.TotalInteractions)
	assert.True(t, s.DeFi.TotalValueETH.Equal(decimal.NewFromInt(4)))

	p, ok := s.DeFi.Protocols["Uniswap V2: Router"]
	require.True(t, ok)
	assert.Equal(t, 2, p.InteractionCount)
	assert.NotEmpty(t, p.LastInteraction)
}

func TestHumanizeDuration(t *testing.T) {
	assert.Equal(t, "0s", humanizeDuration(0))
	assert.Equal(t, "45s", humanizeDuration(45*time.Second))
	assert.Equal(t, "12m", humanizeDuration(12*time.Minute+5*time.Second))
	assert.Equal(t, "3h", humanizeDuration(3*time.Hour+10*time.Minute))
	assert.Equal(t, "2d", humanizeDuration(49*time.Hour))
}
