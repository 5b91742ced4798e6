package aggregate

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/explorer"
	"github.com/etherlens/etherlens/internal/market"
)

// Config configures the aggregation stage.
type Config struct {
	// StageTimeout bounds the whole fan-out. Slots still in flight when it
	// expires are recorded as failed.
	StageTimeout time.Duration `yaml:"stage_timeout"`
	// SlotTimeout bounds each individual provider call.
	SlotTimeout time.Duration `yaml:"slot_timeout"`
	// TxLimit caps how many transactions are fetched per address.
	TxLimit int `yaml:"tx_limit"`
	// TransferWindow is the trailing window for token transfer logs.
	TransferWindow time.Duration `yaml:"transfer_window"`
}

// DefaultConfig returns aggregation defaults.
func DefaultConfig() Config {
	return Config{
		StageTimeout:   15 * time.Second,
		SlotTimeout:    8 * time.Second,
		TxLimit:        200,
		TransferWindow: 24 * time.Hour,
	}
}

// Aggregator fans out provider calls per address kind under one shared
// deadline. Individual provider retries live inside the clients; the
// aggregator only time-boxes and records outcomes.
type Aggregator struct {
	config   Config
	chain    chain.Client
	explorer explorer.Client
	market   market.Client
}

// New creates an aggregator over the three provider clients.
func New(config Config, chainClient chain.Client, explorerClient explorer.Client, marketClient market.Client) *Aggregator {
	def := DefaultConfig()
	if config.StageTimeout == 0 {
		config.StageTimeout = def.StageTimeout
	}
	if config.SlotTimeout == 0 {
		config.SlotTimeout = def.SlotTimeout
	}
	if config.TxLimit == 0 {
		config.TxLimit = def.TxLimit
	}
	if config.TransferWindow == 0 {
		config.TransferWindow = def.TransferWindow
	}
	return &Aggregator{
		config:   config,
		chain:    chainClient,
		explorer: explorerClient,
		market:   marketClient,
	}
}

// Collect runs the fan-out for the given kind and joins on all slots.
// The returned error is non-nil only when the context expires before any
// slot completes; individual slot failures surface through Provenance.
func (a *Aggregator) Collect(ctx context.Context, addr chain.Address, kind chain.Kind) (*Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.StageTimeout)
	defer cancel()

	b := &Bundle{
		Address:     addr,
		Kind:        kind,
		Provenance:  make(map[Slot]SlotStatus),
		CollectedAt: time.Now().UTC(),
	}
	var mu sync.Mutex

	// Slot goroutines always return nil: a failed source degrades its slot,
	// it does not abort the join.
	g, gctx := errgroup.WithContext(ctx)

	run := func(slot Slot, fetch func(context.Context) (func(*Bundle), error)) {
		g.Go(func() error {
			slotCtx, slotCancel := context.WithTimeout(gctx, a.config.SlotTimeout)
			defer slotCancel()

			start := time.Now()
			fill, err := fetch(slotCtx)
			elapsed := time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			status := SlotStatus{OK: err == nil, Elapsed: elapsed}
			if err != nil {
				status.Err = err.Error()
				log.Warn().Str("address", addr.String()).Str("slot", string(slot)).
					Err(err).Msg("aggregate: slot failed")
			} else if fill != nil {
				fill(b)
			}
			b.Provenance[slot] = status
			return nil
		})
	}

	switch kind {
	case chain.KindWallet:
		a.walletSlots(run, addr)
	case chain.KindContract:
		a.contractSlots(run, addr)
	case chain.KindTokenContract:
		a.contractSlots(run, addr)
		a.tokenSlots(run, addr)
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil && !anyOK(b) {
		return nil, err
	}
	return b, nil
}

func anyOK(b *Bundle) bool {
	for _, status := range b.Provenance {
		if status.OK {
			return true
		}
	}
	return false
}

type slotRunner = func(Slot, func(context.Context) (func(*Bundle), error))

func (a *Aggregator) walletSlots(run slotRunner, addr chain.Address) {
	run(SlotBalance, func(ctx context.Context) (func(*Bundle), error) {
		bal, err := a.chain.Balance(ctx, addr)
		return func(b *Bundle) { b.Balance = &bal }, err
	})
	run(SlotTransactions, func(ctx context.Context) (func(*Bundle), error) {
		txs, err := a.explorer.Transactions(ctx, addr, a.config.TxLimit)
		return func(b *Bundle) { b.Transactions = txs }, err
	})
	run(SlotEthPrice, func(ctx context.Context) (func(*Bundle), error) {
		price, err := a.explorer.EthPriceUSD(ctx)
		return func(b *Bundle) { b.EthPriceUSD = &price }, err
	})
}

func (a *Aggregator) contractSlots(run slotRunner, addr chain.Address) {
	run(SlotBytecode, func(ctx context.Context) (func(*Bundle), error) {
		code, err := a.chain.Code(ctx, addr)
		return func(b *Bundle) { b.Bytecode = code }, err
	})
	run(SlotTransactions, func(ctx context.Context) (func(*Bundle), error) {
		txs, err := a.explorer.Transactions(ctx, addr, a.config.TxLimit)
		return func(b *Bundle) { b.Transactions = txs }, err
	})
	run(SlotContractSource, func(ctx context.Context) (func(*Bundle), error) {
		src, err := a.explorer.ContractSource(ctx, addr)
		return func(b *Bundle) { b.ContractSource = src }, err
	})
	run(SlotContractCreation, func(ctx context.Context) (func(*Bundle), error) {
		creation, err := a.explorer.ContractCreation(ctx, addr)
		return func(b *Bundle) { b.ContractCreation = creation }, err
	})
}

func (a *Aggregator) tokenSlots(run slotRunner, addr chain.Address) {
	run(SlotTokenMetadata, func(ctx context.Context) (func(*Bundle), error) {
		meta, err := a.chain.TokenMetadata(ctx, addr)
		return func(b *Bundle) { b.TokenMetadata = meta }, err
	})
	run(SlotTokenTransfers, func(ctx context.Context) (func(*Bundle), error) {
		since := time.Now().Add(-a.config.TransferWindow)
		transfers, err := a.explorer.TokenTransfers(ctx, addr, since)
		return func(b *Bundle) { b.TokenTransfers = transfers }, err
	})
	run(SlotMarket, func(ctx context.Context) (func(*Bundle), error) {
		data, err := a.market.TokenMarket(ctx, addr)
		return func(b *Bundle) { b.Market = data }, err
	})
	run(SlotEthPrice, func(ctx context.Context) (func(*Bundle), error) {
		price, err := a.explorer.EthPriceUSD(ctx)
		return func(b *Bundle) { b.EthPriceUSD = &price }, err
	})
}
