/*

Tokens held by a pool and the ways an operation can refer to one of them.

*/

package types

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// ZeroAddress is the unset account. It owns the minimum BPT locked at initialization
// and marks "no rate provider" / "no asset manager" slots.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

var (
	ErrTokenNotFound = errors.New("token not found in pool")
	ErrNAryLength    = errors.New("amount count does not match token count")
)

type Token struct {
	Symbol   string `json:"symbol"`   // e.g., "WETH"
	Address  string `json:"address"`  // e.g., "0xc02a..."
	Decimals int    `json:"decimals"` // e.g., 18
}

// IsZeroAddress reports whether an account is empty or the zero address.
func IsZeroAddress(account string) bool {
	return account == "" || strings.EqualFold(account, ZeroAddress)
}

// BptAsset is the ledger asset key of a pool's share token.
func BptAsset(id PoolID) string {
	return fmt.Sprintf("bpt:%d", id)
}

// PoolAccount is the ledger account holding a pool's reserves.
func PoolAccount(id PoolID) string {
	return fmt.Sprintf("pool:%d", id)
}

// TokenRef identifies a pool token by index or by address.
type TokenRef struct {
	Index   *int   `json:"index,omitempty"`
	Address string `json:"address,omitempty"`
}

func TokenIndex(i int) TokenRef {
	return TokenRef{Index: &i}
}

func TokenAddress(address string) TokenRef {
	return TokenRef{Address: address}
}

// Resolve returns the index of the referenced token within tokens.
func (r TokenRef) Resolve(tokens []Token) (int, error) {
	if r.Index != nil {
		if *r.Index < 0 || *r.Index >= len(tokens) {
			return 0, fmt.Errorf("%w: index %d out of %d tokens", ErrTokenNotFound, *r.Index, len(tokens))
		}
		return *r.Index, nil
	}
	for i, t := range tokens {
		if strings.EqualFold(t.Address, r.Address) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrTokenNotFound, r.Address)
}

func (r TokenRef) String() string {
	if r.Index != nil {
		return fmt.Sprintf("#%d", *r.Index)
	}
	return r.Address
}

// NAry holds either one amount shared by every token or one amount per token.
type NAry []sdkmath.Int

// Expand returns exactly n amounts.
func (a NAry) Expand(n int) ([]sdkmath.Int, error) {
	switch len(a) {
	case n:
		out := make([]sdkmath.Int, n)
		copy(out, a)
		return out, nil
	case 1:
		out := make([]sdkmath.Int, n)
		for i := range out {
			out[i] = a[0]
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: got %d, want 1 or %d", ErrNAryLength, len(a), n)
	}
}
