// Package classify determines whether an address is a wallet, a plain
// contract, or a token contract.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/etherlens/etherlens/internal/chain"
)

// ErrIndeterminate is returned when bytecode presence cannot be established.
// Without it nothing downstream can run, so the scan fails.
var ErrIndeterminate = errors.New("classify: cannot establish bytecode presence")

// Classifier resolves an address kind from two node calls: a bytecode fetch
// and a token interface probe. It has no state and no side effects.
type Classifier struct {
	chain chain.Client
}

// New creates a classifier backed by the given node client.
func New(c chain.Client) *Classifier {
	return &Classifier{chain: c}
}

// Classify determines the address kind. Absence of bytecode means Wallet.
// A successful token probe means TokenContract. An inconclusive probe fails
// open to Contract: token-specific analysis downstream assumes the full
// token interface is answerable, so false negatives are the safe direction.
func (c *Classifier) Classify(ctx context.Context, addr chain.Address) (chain.Kind, error) {
	code, err := c.chain.Code(ctx, addr)
	if err != nil {
		return chain.KindUnknown, fmt.Errorf("%w: %v", ErrIndeterminate, err)
	}
	if len(code) == 0 {
		return chain.KindWallet, nil
	}

	meta, err := c.chain.TokenMetadata(ctx, addr)
	switch {
	case err == nil && meta != nil:
		return chain.KindTokenContract, nil
	case errors.Is(err, chain.ErrNotToken):
		return chain.KindContract, nil
	default:
		log.Debug().Str("address", addr.String()).Err(err).
			Msg("token probe inconclusive, treating as plain contract")
		return chain.KindContract, nil
	}
}
