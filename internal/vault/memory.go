package vault

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	sdkmath "cosmossdk.io/math"
	"github.com/elys-network/wpool/internal/logger"
	"github.com/elys-network/wpool/internal/types"
	"github.com/rs/zerolog"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidAmount       = errors.New("amount must not be negative")
	ErrInvalidAccount      = errors.New("account must not be empty")
	ErrInvalidSettlement   = errors.New("settlement is invalid")
)

// DefaultFeeCollector receives protocol swap fees unless configured otherwise.
const DefaultFeeCollector = "protocol-fee-collector"

// MemoryVault is an in-memory Ledger. All methods are safe for concurrent use.
type MemoryVault struct {
	mu           sync.Mutex
	balances     map[string]map[string]sdkmath.Int // account -> asset -> amount
	supply       map[string]sdkmath.Int
	feeCollector string
	log          zerolog.Logger
}

var _ Ledger = (*MemoryVault)(nil)

// NewMemoryVault returns an empty ledger. An empty fee collector selects DefaultFeeCollector.
func NewMemoryVault(feeCollector string) *MemoryVault {
	if feeCollector == "" {
		feeCollector = DefaultFeeCollector
	}
	return &MemoryVault{
		balances:     make(map[string]map[string]sdkmath.Int),
		supply:       make(map[string]sdkmath.Int),
		feeCollector: feeCollector,
		log:          logger.GetForComponent("vault"),
	}
}

func (v *MemoryVault) FeeCollector() string { return v.feeCollector }

func key(s string) string { return strings.ToLower(s) }

func (v *MemoryVault) balance(account, asset string) sdkmath.Int {
	if assets, ok := v.balances[key(account)]; ok {
		if b, ok := assets[key(asset)]; ok {
			return b
		}
	}
	return sdkmath.ZeroInt()
}

func (v *MemoryVault) set(account, asset string, amount sdkmath.Int) {
	acc := key(account)
	assets, ok := v.balances[acc]
	if !ok {
		assets = make(map[string]sdkmath.Int)
		v.balances[acc] = assets
	}
	if amount.IsZero() {
		delete(assets, key(asset))
		return
	}
	assets[key(asset)] = amount
}

func (v *MemoryVault) Balance(account, asset string) sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance(account, asset)
}

func (v *MemoryVault) Supply(asset string) sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.supply[key(asset)]; ok {
		return s
	}
	return sdkmath.ZeroInt()
}

func (v *MemoryVault) Deposit(account, asset string, amount sdkmath.Int) error {
	if account == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applyLocked([]movement{{to: account, asset: asset, amount: amount, mint: true}})
}

func (v *MemoryVault) Transfer(from, to, asset string, amount sdkmath.Int) error {
	if from == "" || to == "" {
		return ErrInvalidAccount
	}
	if amount.IsNil() || amount.IsNegative() {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.applyLocked([]movement{{from: from, to: to, asset: asset, amount: amount}})
}

// PoolBalances returns the reserves held in the pool account.
func (v *MemoryVault) PoolBalances(id types.PoolID, tokens []string) []sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	account := types.PoolAccount(id)
	out := make([]sdkmath.Int, len(tokens))
	for i, t := range tokens {
		out[i] = v.balance(account, t)
	}
	return out
}

// movement is one debit and/or credit. An empty from mints, an empty to burns.
type movement struct {
	from   string
	to     string
	asset  string
	amount sdkmath.Int
	mint   bool
}

func (v *MemoryVault) movements(s types.Settlement) ([]movement, error) {
	n := len(s.Tokens)
	for name, amounts := range map[string][]sdkmath.Int{"amounts in": s.AmountsIn, "amounts out": s.AmountsOut, "protocol fees": s.ProtocolFees} {
		if amounts != nil && len(amounts) != n {
			return nil, fmt.Errorf("%w: %d %s for %d tokens", ErrInvalidSettlement, len(amounts), name, n)
		}
	}

	pool := types.PoolAccount(s.PoolID)
	bpt := types.BptAsset(s.PoolID)
	var out []movement
	add := func(m movement) error {
		if m.amount.IsNil() || m.amount.IsZero() {
			return nil
		}
		if m.amount.IsNegative() {
			return fmt.Errorf("%w: negative %s movement", ErrInvalidSettlement, m.asset)
		}
		if m.from == "" && !m.mint {
			return fmt.Errorf("%w: %s movement has no source account", ErrInvalidSettlement, m.asset)
		}
		out = append(out, m)
		return nil
	}

	for i, token := range s.Tokens {
		if s.AmountsIn != nil {
			if err := add(movement{from: s.Sender, to: pool, asset: token, amount: s.AmountsIn[i]}); err != nil {
				return nil, err
			}
		}
		if s.ProtocolFees != nil {
			if err := add(movement{from: pool, to: v.feeCollector, asset: token, amount: s.ProtocolFees[i]}); err != nil {
				return nil, err
			}
		}
		if s.AmountsOut != nil {
			if err := add(movement{from: pool, to: s.Recipient, asset: token, amount: s.AmountsOut[i]}); err != nil {
				return nil, err
			}
		}
	}
	if err := add(movement{from: s.Sender, asset: bpt, amount: s.BptBurned}); err != nil {
		return nil, err
	}
	if err := add(movement{to: s.Recipient, asset: bpt, amount: s.BptMinted, mint: true}); err != nil {
		return nil, err
	}
	if err := add(movement{to: types.ZeroAddress, asset: bpt, amount: s.BptLocked, mint: true}); err != nil {
		return nil, err
	}
	return out, nil
}

// applyLocked checks every debit against the balances first, so a failing settlement leaves
// the ledger untouched.
func (v *MemoryVault) applyLocked(ms []movement) error {
	type slot struct{ account, asset string }
	debits := make(map[slot]sdkmath.Int)
	for _, m := range ms {
		if m.mint {
			if m.to == "" {
				return fmt.Errorf("%w: minted %s has no recipient", ErrInvalidSettlement, m.asset)
			}
			continue
		}
		if m.from == "" {
			return ErrInvalidAccount
		}
		k := slot{key(m.from), key(m.asset)}
		d, ok := debits[k]
		if !ok {
			d = sdkmath.ZeroInt()
		}
		debits[k] = d.Add(m.amount)
	}
	for k, d := range debits {
		if have := v.balance(k.account, k.asset); have.LT(d) {
			return fmt.Errorf("%w: %s holds %s %s, needs %s", ErrInsufficientBalance, k.account, have, k.asset, d)
		}
	}

	for _, m := range ms {
		if !m.mint {
			v.set(m.from, m.asset, v.balance(m.from, m.asset).Sub(m.amount))
		}
		if m.to == "" {
			v.addSupply(m.asset, m.amount.Neg())
			continue
		}
		v.set(m.to, m.asset, v.balance(m.to, m.asset).Add(m.amount))
		if m.mint {
			v.addSupply(m.asset, m.amount)
		}
	}
	return nil
}

func (v *MemoryVault) addSupply(asset string, delta sdkmath.Int) {
	k := key(asset)
	s, ok := v.supply[k]
	if !ok {
		s = sdkmath.ZeroInt()
	}
	v.supply[k] = s.Add(delta)
}

// Settle applies a pool settlement: tokens in from the sender, protocol fees to the fee
// collector, tokens out and minted BPT to the recipient, burned BPT from the sender and
// locked BPT to the zero address.
func (v *MemoryVault) Settle(s types.Settlement) error {
	ms, err := v.movements(s)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.applyLocked(ms); err != nil {
		return err
	}
	v.log.Debug().
		Uint64("pool_id", uint64(s.PoolID)).
		Str("operation", string(s.Operation)).
		Int("movements", len(ms)).
		Msg("Settlement applied")
	return nil
}

// Holdings returns every non-zero asset balance of an account.
func (v *MemoryVault) Holdings(account string) map[string]sdkmath.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]sdkmath.Int)
	for asset, amount := range v.balances[key(account)] {
		out[asset] = amount
	}
	return out
}

// Accounts returns every account with a balance, sorted.
func (v *MemoryVault) Accounts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.balances))
	for acc, assets := range v.balances {
		if len(assets) > 0 {
			out = append(out, acc)
		}
	}
	sort.Strings(out)
	return out
}

func (v *MemoryVault) Close() error { return nil }
