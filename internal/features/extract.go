package features

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/aggregate"
	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/explorer"
)

var (
	weiPerEther = decimal.New(1, 18)
	// Whale cutoffs per transfer: 0.1% of supply, or 100k USD worth,
	// whichever is smaller.
	whaleSupplyFraction = decimal.NewFromFloat(0.001)
	whaleUSDCeiling     = decimal.NewFromInt(100_000)
)

// Extract derives the feature set for a bundle. It is a pure function of
// the bundle: the same bundle always yields an identical set, and it never
// fails — missing slots produce neutral defaults.
func Extract(b *aggregate.Bundle) *Set {
	s := &Set{
		Address:  b.Address,
		Kind:     b.Kind,
		Degraded: b.DegradedSlots(),
	}
	switch b.Kind {
	case chain.KindWallet:
		s.Wallet = extractWallet(b)
		s.DeFi = extractDeFi(b)
	case chain.KindContract:
		s.Contract = extractContract(b)
	case chain.KindTokenContract:
		s.Contract = extractContract(b)
		s.Token = extractToken(b)
	}
	return s
}

func extractWallet(b *aggregate.Bundle) *WalletFeatures {
	w := &WalletFeatures{}
	if b.Balance != nil {
		w.BalanceETH = *b.Balance
	}

	self := b.Address
	unique := make(map[chain.Address]struct{})
	var first, last time.Time
	var stamps []time.Time
	var totalGas uint64
	valid := 0

	for _, tx := range b.Transactions {
		// Future-dated records are provider noise, skip them.
		if tx.Timestamp.After(b.CollectedAt) {
			continue
		}
		valid++
		if !tx.Timestamp.IsZero() {
			stamps = append(stamps, tx.Timestamp)
		}

		if first.IsZero() || tx.Timestamp.Before(first) {
			first = tx.Timestamp
		}
		if tx.Timestamp.After(last) {
			last = tx.Timestamp
		}
		if !tx.From.IsZero() && tx.From != self {
			unique[tx.From] = struct{}{}
		}
		if !tx.To.IsZero() && tx.To != self {
			unique[tx.To] = struct{}{}
		}

		switch {
		case tx.From == self:
			w.OutgoingTxCount++
			w.TotalSentETH = w.TotalSentETH.Add(tx.ValueETH)
		case tx.To == self:
			w.IncomingTxCount++
			w.TotalReceivedETH = w.TotalReceivedETH.Add(tx.ValueETH)
		}
		if tx.Failed {
			w.FailedTxCount++
		}
		if tx.GasUsed > 0 {
			totalGas += tx.GasUsed
			spentWei := decimal.NewFromInt(int64(tx.GasUsed)).Mul(tx.GasPriceWei)
			w.TotalGasSpentETH = w.TotalGasSpentETH.Add(spentWei.Div(weiPerEther))
		}
	}

	w.TotalTransactions = valid
	w.UniqueCounterparties = len(unique)
	if valid > 0 {
		w.AvgGasUsed = decimal.NewFromInt(int64(totalGas)).Div(decimal.NewFromInt(int64(valid)))
	}
	if !first.IsZero() {
		w.WalletAgeDays = int(b.CollectedAt.Sub(first).Hours() / 24)
		w.FirstTxAt = formatDate(first)
		w.LastTxAt = formatDate(last)
		w.DaysSinceLastTx = int(b.CollectedAt.Sub(last).Hours() / 24)
		w.LongestGapDays = longestGapDays(stamps)
	}
	return w
}

func longestGapDays(stamps []time.Time) int {
	if len(stamps) < 2 {
		return 0
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	var longest time.Duration
	for i := 1; i < len(stamps); i++ {
		if gap := stamps[i].Sub(stamps[i-1]); gap > longest {
			longest = gap
		}
	}
	return int(longest.Hours() / 24)
}

func extractDeFi(b *aggregate.Bundle) *DeFiActivity {
	d := &DeFiActivity{Protocols: make(map[string]ProtocolActivity)}
	var last time.Time

	for _, tx := range b.Transactions {
		name, ok := protocolName(tx.To)
		if !ok {
			continue
		}
		p := d.Protocols[name]
		p.InteractionCount++
		p.TotalValueETH = p.TotalValueETH.Add(tx.ValueETH)
		if cur, err := time.Parse(time.RFC3339, p.LastInteraction); err != nil || tx.Timestamp.After(cur) {
			p.LastInteraction = tx.Timestamp.UTC().Format(time.RFC3339)
		}
		d.Protocols[name] = p

		d.TotalInteractions++
		d.TotalValueETH = d.TotalValueETH.Add(tx.ValueETH)
		if tx.Timestamp.After(last) {
			last = tx.Timestamp
		}
	}
	if !last.IsZero() {
		d.LastInteraction = last.UTC().Format(time.RFC3339)
	}
	return d
}

func extractContract(b *aggregate.Bundle) *ContractFeatures {
	c := &ContractFeatures{}

	if src := b.ContractSource; src != nil {
		c.Verified = src.Verified
		c.ContractName = src.ContractName
		c.SourceExcerpt = src.SourceCode
	}
	if creation := b.ContractCreation; creation != nil && !creation.CreatedAt.IsZero() {
		c.ContractAgeDays = int(b.CollectedAt.Sub(creation.CreatedAt).Hours() / 24)
		if deployer, ok := earliestSender(b.Transactions); ok {
			c.OwnerIsDeployer = deployer == creation.Creator && !creation.Creator.IsZero()
		}
	}

	for _, sel := range mintSelectors {
		if bytes.Contains(b.Bytecode, sel) {
			c.HasMintPrivileges = true
			break
		}
	}
	for _, sel := range honeypotSelectors {
		if bytes.Contains(b.Bytecode, sel) {
			c.HoneypotPattern = true
			break
		}
	}

	for _, tr := range b.TokenTransfers {
		if tr.From.IsZero() {
			c.MintEventCount++
		}
		if tr.To.IsZero() {
			c.BurnEventCount++
		}
		c.TransferVolume24h = c.TransferVolume24h.Add(tr.Value)
	}

	for _, tx := range b.Transactions {
		if _, locked := lpLockers[tx.To]; locked {
			c.LPLocked = true
			break
		}
	}
	return c
}

func extractToken(b *aggregate.Bundle) *TokenFeatures {
	t := &TokenFeatures{}
	if meta := b.TokenMetadata; meta != nil {
		t.Name = meta.Name
		t.Symbol = meta.Symbol
		t.Decimals = meta.Decimals
		t.TotalSupply = meta.TotalSupply
	}
	if m := b.Market; m != nil {
		t.TotalLiquidityETH = m.TotalLiquidityETH
		t.Volume24h = m.Volume24h
		t.PriceUSD = m.PriceUSD
		t.PriceETH = m.PriceETH
		t.MarketCapUSD = m.MarketCapUSD
	}
	t.LiquidityKnown = b.OK(aggregate.SlotMarket)

	t.HolderActivity, t.WhaleAnalysis = holderAndWhales(b, t.TotalSupply, t.PriceUSD)
	t.ContractInteractions = contractInteractions(b)
	t.TradingPatterns = tradingPatterns(b)
	return t
}

func holderAndWhales(b *aggregate.Bundle, totalSupply, priceUSD decimal.Decimal) (HolderActivity, WhaleAnalysis) {
	self := b.Address
	unique := make(map[chain.Address]struct{})
	var buys, sells int
	var total decimal.Decimal
	var whales WhaleAnalysis

	threshold, hasThreshold := whaleThreshold(totalSupply, priceUSD)

	for _, tr := range b.TokenTransfers {
		if !tr.From.IsZero() && tr.From != self {
			unique[tr.From] = struct{}{}
			if _, known := knownProtocols[tr.From]; !known {
				whales.DisposalEvents++
			}
		}
		if !tr.To.IsZero() && tr.To != self {
			unique[tr.To] = struct{}{}
			if _, known := knownProtocols[tr.To]; !known {
				whales.AccumulationEvents++
			}
		}
		if _, known := knownProtocols[tr.From]; known {
			buys++
		} else if _, known := knownProtocols[tr.To]; known {
			sells++
		}
		if hasThreshold && tr.Value.GreaterThan(threshold) {
			whales.LargeTransactions++
		}
		total = total.Add(tr.Value)
	}

	activity := HolderActivity{
		ActiveAddresses: len(unique),
		BuySellRatio:    fmt.Sprintf("%d:%d", buys, sells),
	}
	if n := len(b.TokenTransfers); n > 0 {
		activity.AvgTransaction = total.Div(decimal.NewFromInt(int64(n)))
	}
	return activity, whales
}

// whaleThreshold picks the smaller of the supply-fraction and the USD-value
// cutoff. Without supply or price data there is no meaningful threshold.
func whaleThreshold(totalSupply, priceUSD decimal.Decimal) (decimal.Decimal, bool) {
	var candidates []decimal.Decimal
	if totalSupply.IsPositive() {
		candidates = append(candidates, totalSupply.Mul(whaleSupplyFraction))
	}
	if priceUSD.IsPositive() {
		candidates = append(candidates, whaleUSDCeiling.Div(priceUSD))
	}
	if len(candidates) == 0 {
		return decimal.Decimal{}, false
	}
	min := candidates[0]
	for _, c := range candidates[1:] {
		if c.LessThan(min) {
			min = c
		}
	}
	return min, true
}

func contractInteractions(b *aggregate.Bundle) ContractInteractions {
	self := b.Address
	counts := make(map[chain.Address]int)
	defi := 0

	for _, tr := range b.TokenTransfers {
		if tr.To.IsZero() || tr.To == self {
			continue
		}
		counts[tr.To]++
		if _, known := knownProtocols[tr.To]; known {
			defi++
		}
	}

	out := ContractInteractions{
		DefiInteractions: defi,
		UniqueContracts:  len(counts),
	}
	for addr, n := range counts {
		name := "Unknown Contract"
		if known, ok := knownProtocols[addr]; ok {
			name = known
		}
		out.TopContracts = append(out.TopContracts, ContractCounter{Address: addr, Name: name, Count: n})
	}
	sort.Slice(out.TopContracts, func(i, j int) bool {
		x, y := out.TopContracts[i], out.TopContracts[j]
		if x.Count != y.Count {
			return x.Count > y.Count
		}
		return x.Address.String() < y.Address.String()
	})
	if len(out.TopContracts) > 10 {
		out.TopContracts = out.TopContracts[:10]
	}
	return out
}

func tradingPatterns(b *aggregate.Bundle) TradingPatterns {
	times := make([]time.Time, 0, len(b.TokenTransfers))
	pairs := make(map[chain.Address]struct{})
	for _, tr := range b.TokenTransfers {
		if !tr.Timestamp.IsZero() {
			times = append(times, tr.Timestamp)
		}
		if _, known := knownProtocols[tr.From]; known {
			pairs[tr.From] = struct{}{}
		}
		if _, known := knownProtocols[tr.To]; known {
			pairs[tr.To] = struct{}{}
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	var diffs []time.Duration
	for i := 1; i < len(times); i++ {
		if d := times[i].Sub(times[i-1]); d > 0 {
			diffs = append(diffs, d)
		}
	}
	avg := time.Duration(0)
	if len(diffs) > 0 {
		var sum time.Duration
		for _, d := range diffs {
			sum += d
		}
		avg = sum / time.Duration(len(diffs))
	}
	return TradingPatterns{
		AvgHoldingTime: humanizeDuration(avg),
		ActivePairs:    len(pairs),
	}
}

// humanizeDuration renders a duration at single-unit precision: "45s",
// "12m", "3h", "2d". Zero renders as the "0s" sentinel.
func humanizeDuration(d time.Duration) string {
	s := int64(d.Seconds())
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm", s/60)
	case s < 86400:
		return fmt.Sprintf("%dh", s/3600)
	default:
		return fmt.Sprintf("%dd", s/86400)
	}
}

// earliestSender returns the From of the oldest transaction, used as the
// deployer candidate when the explorer creation record needs corroborating.
func earliestSender(txs []explorer.Transaction) (chain.Address, bool) {
	var (
		found    bool
		earliest time.Time
		sender   chain.Address
	)
	for _, tx := range txs {
		if !found || tx.Timestamp.Before(earliest) {
			found = true
			earliest = tx.Timestamp
			sender = tx.From
		}
	}
	return sender, found
}
