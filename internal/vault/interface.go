package vault

import (
	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
)

// Ledger defines the interface for the token ledger that sits behind the pools.
// The ledger owns every balance: pool reserves, account token holdings and BPT. Pools only
// describe the movements an operation implies; the ledger applies them.
type Ledger interface {
	// Balance returns the amount of an asset held by an account.
	Balance(account, asset string) sdkmath.Int

	// Deposit credits an account out of thin air (faucet, bridge-in, test seeding).
	Deposit(account, asset string, amount sdkmath.Int) error

	// Transfer moves an asset between two accounts.
	Transfer(from, to, asset string, amount sdkmath.Int) error

	// Settle applies every movement of a settlement or none of them.
	Settle(s types.Settlement) error

	// PoolBalances returns the reserves the ledger holds for a pool, indexed like tokens.
	PoolBalances(id types.PoolID, tokens []string) []sdkmath.Int

	// Supply returns the total minted amount of an asset, e.g. a pool's BPT.
	Supply(asset string) sdkmath.Int

	// Close releases any resources used by the ledger.
	Close() error
}
