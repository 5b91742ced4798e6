package chain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Core address types
// ---------------------------------------------------------------------------

// Address is a 20-byte Ethereum account identifier.
type Address [20]byte

// ZeroAddress is the canonical burn/mint address.
var ZeroAddress = Address{}

// ParseAddress parses a 0x-prefixed 40-hex-digit string.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return a, fmt.Errorf("invalid address %q: want 0x + 40 hex digits", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress parses or panics. Test helper.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the address as lowercase 0x-prefixed hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalJSON encodes the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a hex string address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ---------------------------------------------------------------------------
// Address kind
// ---------------------------------------------------------------------------

// Kind classifies an address as a wallet, a plain contract, or a token contract.
type Kind int

const (
	KindUnknown Kind = iota
	KindWallet
	KindContract
	KindTokenContract
)

func (k Kind) String() string {
	switch k {
	case KindWallet:
		return "Wallet"
	case KindContract:
		return "Contract"
	case KindTokenContract:
		return "Token"
	default:
		return "Unknown"
	}
}

// ---------------------------------------------------------------------------
// Token metadata
// ---------------------------------------------------------------------------

// TokenMetadata is the standard token interface surface of a contract.
type TokenMetadata struct {
	Name        string          `json:"name"`
	Symbol      string          `json:"symbol"`
	Decimals    uint8           `json:"decimals"`
	TotalSupply decimal.Decimal `json:"total_supply"`
}
