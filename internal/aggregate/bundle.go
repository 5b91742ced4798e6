// Package aggregate fans out provider calls for an address and joins them
// into a raw-data bundle with per-slot provenance. A failed source leaves
// its slot nil; aggregation itself never fails on individual sources.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/explorer"
	"github.com/etherlens/etherlens/internal/market"
)

// Slot identifies one independently fetched field of the bundle.
type Slot string

const (
	SlotBytecode         Slot = "bytecode"
	SlotBalance          Slot = "balance"
	SlotTransactions     Slot = "transactions"
	SlotTokenTransfers   Slot = "token_transfers"
	SlotContractSource   Slot = "contract_source"
	SlotContractCreation Slot = "contract_creation"
	SlotTokenMetadata    Slot = "token_metadata"
	SlotMarket           Slot = "market"
	SlotEthPrice         Slot = "eth_price"
)

// SlotStatus records the outcome of one slot fetch, for observability and
// for down-weighting confidence when data is missing.
type SlotStatus struct {
	OK      bool
	Err     string
	Elapsed time.Duration
}

// Bundle is the per-kind aggregate of provider responses. Every pointer or
// slice field is independently nilable: nil means the source failed or does
// not apply to this address kind.
type Bundle struct {
	Address chain.Address
	Kind    chain.Kind

	Bytecode         []byte
	Balance          *decimal.Decimal
	Transactions     []explorer.Transaction
	TokenTransfers   []explorer.TokenTransfer
	ContractSource   *explorer.ContractSource
	ContractCreation *explorer.ContractCreation
	TokenMetadata    *chain.TokenMetadata
	Market           *market.Data
	EthPriceUSD      *decimal.Decimal

	Provenance  map[Slot]SlotStatus
	CollectedAt time.Time
}

// OK reports whether a slot was fetched successfully.
func (b *Bundle) OK(slot Slot) bool {
	return b.Provenance[slot].OK
}

// DegradedSlots returns the sorted names of slots that were attempted but
// failed. Slots not relevant to the kind are absent from provenance and do
// not count as degraded.
func (b *Bundle) DegradedSlots() []string {
	var out []string
	for slot, status := range b.Provenance {
		if !status.OK {
			out = append(out, string(slot))
		}
	}
	sort.Strings(out)
	return out
}
