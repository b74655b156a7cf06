package vault

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice  = "0x00000000000000000000000000000000000000f1"
	bob    = "0x00000000000000000000000000000000000000f2"
	tokenA = "0x00000000000000000000000000000000000000a1"
	tokenB = "0x00000000000000000000000000000000000000a2"
)

func ints(values ...int64) []sdkmath.Int {
	out := make([]sdkmath.Int, len(values))
	for i, v := range values {
		out[i] = sdkmath.NewInt(v)
	}
	return out
}

func TestDepositAndTransfer(t *testing.T) {
	v := NewMemoryVault("")
	assert.Equal(t, DefaultFeeCollector, v.FeeCollector())

	require.NoError(t, v.Deposit(alice, tokenA, sdkmath.NewInt(100)))
	assert.Equal(t, "100", v.Balance(alice, tokenA).String())
	// Accounts and assets are case-insensitive.
	assert.Equal(t, "100", v.Balance(alice, "0x00000000000000000000000000000000000000A1").String())
	assert.Equal(t, "100", v.Supply(tokenA).String())

	require.NoError(t, v.Transfer(alice, bob, tokenA, sdkmath.NewInt(40)))
	assert.Equal(t, "60", v.Balance(alice, tokenA).String())
	assert.Equal(t, "40", v.Balance(bob, tokenA).String())
	assert.Equal(t, "100", v.Supply(tokenA).String())

	err := v.Transfer(bob, alice, tokenA, sdkmath.NewInt(41))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "40", v.Balance(bob, tokenA).String())

	assert.ErrorIs(t, v.Deposit("", tokenA, sdkmath.NewInt(1)), ErrInvalidAccount)
	assert.ErrorIs(t, v.Deposit(alice, tokenA, sdkmath.NewInt(-1)), ErrInvalidAmount)
	assert.Equal(t, []string{alice, bob}, v.Accounts())
}

func TestSettleJoinAndExit(t *testing.T) {
	v := NewMemoryVault("fees")
	require.NoError(t, v.Deposit(alice, tokenA, sdkmath.NewInt(1_000)))
	require.NoError(t, v.Deposit(alice, tokenB, sdkmath.NewInt(1_000)))

	err := v.Settle(types.Settlement{
		PoolID:       7,
		Operation:    types.OpInit,
		Sender:       alice,
		Recipient:    alice,
		Tokens:       []string{tokenA, tokenB},
		AmountsIn:    ints(500, 400),
		AmountsOut:   ints(0, 0),
		ProtocolFees: ints(0, 0),
		BptMinted:    sdkmath.NewInt(900),
		BptBurned:    sdkmath.ZeroInt(),
		BptLocked:    sdkmath.NewInt(10),
	})
	require.NoError(t, err)

	bpt := types.BptAsset(7)
	assert.Equal(t, "500", v.Balance(alice, tokenA).String())
	assert.Equal(t, "600", v.Balance(alice, tokenB).String())
	assert.Equal(t, "900", v.Balance(alice, bpt).String())
	assert.Equal(t, "10", v.Balance(types.ZeroAddress, bpt).String())
	assert.Equal(t, "910", v.Supply(bpt).String())
	reserves := v.PoolBalances(7, []string{tokenA, tokenB})
	assert.Equal(t, "500", reserves[0].String())
	assert.Equal(t, "400", reserves[1].String())

	err = v.Settle(types.Settlement{
		PoolID:       7,
		Operation:    types.OpMultiExitGivenIn,
		Sender:       alice,
		Recipient:    bob,
		Tokens:       []string{tokenA, tokenB},
		AmountsIn:    ints(0, 0),
		AmountsOut:   ints(100, 80),
		ProtocolFees: ints(5, 0),
		BptBurned:    sdkmath.NewInt(180),
	})
	require.NoError(t, err)
	assert.Equal(t, "100", v.Balance(bob, tokenA).String())
	assert.Equal(t, "80", v.Balance(bob, tokenB).String())
	assert.Equal(t, "5", v.Balance("fees", tokenA).String())
	assert.Equal(t, "720", v.Balance(alice, bpt).String())
	assert.Equal(t, "730", v.Supply(bpt).String())
	reserves = v.PoolBalances(7, []string{tokenA, tokenB})
	assert.Equal(t, "395", reserves[0].String())
	assert.Equal(t, "320", reserves[1].String())
}

func TestSettleIsAtomic(t *testing.T) {
	v := NewMemoryVault("")
	require.NoError(t, v.Deposit(alice, tokenA, sdkmath.NewInt(100)))
	require.NoError(t, v.Deposit(alice, tokenB, sdkmath.NewInt(10)))

	// The second token is short, so the first transfer must not happen either.
	err := v.Settle(types.Settlement{
		PoolID:    1,
		Operation: types.OpJoinGivenIn,
		Sender:    alice,
		Recipient: alice,
		Tokens:    []string{tokenA, tokenB},
		AmountsIn: ints(50, 50),
		BptMinted: sdkmath.NewInt(10),
	})
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, "100", v.Balance(alice, tokenA).String())
	assert.Equal(t, "10", v.Balance(alice, tokenB).String())
	assert.True(t, v.Supply(types.BptAsset(1)).IsZero())
	assert.True(t, v.PoolBalances(1, []string{tokenA})[0].IsZero())
}

func TestSettleRejectsMalformed(t *testing.T) {
	v := NewMemoryVault("")

	err := v.Settle(types.Settlement{Tokens: []string{tokenA, tokenB}, AmountsIn: ints(1)})
	assert.ErrorIs(t, err, ErrInvalidSettlement)

	err = v.Settle(types.Settlement{Tokens: []string{tokenA}, Sender: alice, AmountsIn: ints(-1)})
	assert.ErrorIs(t, err, ErrInvalidSettlement)

	err = v.Settle(types.Settlement{Tokens: []string{tokenA}, AmountsIn: ints(1)})
	assert.ErrorIs(t, err, ErrInvalidSettlement)
}
