package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etherlens/etherlens/internal/chain"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestAggregate_PicksDeepestPoolAsMain(t *testing.T) {
	uni := chain.MustParseAddress("0x811beed0119b4afce20d2583eb608c6f7af1954f")
	sushi := chain.MustParseAddress("0x24d3dd4a62e29770cf98810b09f89d3a90279e7a")

	data := Aggregate([]PoolSnapshot{
		{DEX: "uniswap_v2", PairAddress: uni, LiquidityETH: d("120.5"), PriceUSD: d("0.002"), Volume24h: d("30")},
		{DEX: "sushiswap", PairAddress: sushi, LiquidityETH: d("40"), PriceUSD: d("0.0021"), Volume24h: d("10")},
	}, d("1000000"))

	require.NotNil(t, data.MainPool)
	assert.Equal(t, uni, *data.MainPool)
	assert.True(t, data.TotalLiquidityETH.Equal(d("160.5")))
	assert.True(t, data.Volume24h.Equal(d("40")))
	assert.True(t, data.PriceUSD.Equal(d("0.002")))
	assert.True(t, data.MarketCapUSD.Equal(d("2000")))
}

func TestAggregate_NoPools(t *testing.T) {
	data := Aggregate(nil, decimal.Zero)
	assert.Nil(t, data.MainPool)
	assert.True(t, data.TotalLiquidityETH.IsZero())
	assert.True(t, data.MarketCapUSD.IsZero())
}
