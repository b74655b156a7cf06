/*

This file contains the request types for every pool operation. Requests are transient:
built per call and discarded once the pool has answered.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// OperationType names a pool operation in receipts, logs and metrics.
type OperationType string

const (
	OpInit               OperationType = "INIT"
	OpJoinGivenIn        OperationType = "JOIN_GIVEN_IN"
	OpJoinGivenOut       OperationType = "JOIN_GIVEN_OUT"
	OpJoinAllGivenOut    OperationType = "JOIN_ALL_GIVEN_OUT"
	OpExitGivenOut       OperationType = "EXIT_GIVEN_OUT"
	OpSingleExitGivenIn  OperationType = "SINGLE_EXIT_GIVEN_IN"
	OpMultiExitGivenIn   OperationType = "MULTI_EXIT_GIVEN_IN"
	OpSwapGivenIn        OperationType = "SWAP_GIVEN_IN"
	OpSwapGivenOut       OperationType = "SWAP_GIVEN_OUT"
	OpGovernance         OperationType = "GOVERNANCE"
	OpCollectAumFees     OperationType = "COLLECT_AUM_FEES"
	OpAddToken           OperationType = "ADD_TOKEN"
	OpRemoveToken        OperationType = "REMOVE_TOKEN"
	OpUpdateTokenRate    OperationType = "UPDATE_TOKEN_RATE"
	OpSetCircuitBreakers OperationType = "SET_CIRCUIT_BREAKERS"
	OpUpdateWeights      OperationType = "UPDATE_WEIGHTS_GRADUALLY"
	OpUpdateSwapFee      OperationType = "UPDATE_SWAP_FEE_GRADUALLY"
)

// IsJoin reports whether the operation adds liquidity.
func (o OperationType) IsJoin() bool {
	return o == OpInit || o == OpJoinGivenIn || o == OpJoinGivenOut || o == OpJoinAllGivenOut
}

// IsExit reports whether the operation removes liquidity.
func (o OperationType) IsExit() bool {
	return o == OpExitGivenOut || o == OpSingleExitGivenIn || o == OpMultiExitGivenIn
}

// IsProportional reports whether the operation leaves token prices unchanged.
func (o OperationType) IsProportional() bool {
	return o == OpJoinAllGivenOut || o == OpMultiExitGivenIn
}

// Options are the fields shared by join, exit and swap requests.
type Options struct {
	From      string `json:"from,omitempty"`
	Recipient string `json:"recipient,omitempty"` // Defaults to From

	// CurrentBalances replaces the pool's stored balances when pricing a query. Committed
	// operations reject balances that differ from the stored ones.
	CurrentBalances []sdkmath.Int `json:"current_balances,omitempty"`
	// LastChangeBlock must match the pool's last change block when set.
	LastChangeBlock *uint64 `json:"last_change_block,omitempty"`
	// ProtocolFeePercentage is the protocol's share of swap fees accrued since the last join/exit.
	ProtocolFeePercentage *sdkmath.LegacyDec `json:"protocol_fee_percentage,omitempty"`
	Data                  string             `json:"data,omitempty"`
}

// ResolvedRecipient returns the recipient, falling back to the sender.
func (o Options) ResolvedRecipient() string {
	if o.Recipient != "" {
		return o.Recipient
	}
	return o.From
}

type InitRequest struct {
	InitialBalances NAry `json:"initial_balances"`
	Options
}

type JoinGivenInRequest struct {
	AmountsIn     NAry         `json:"amounts_in"`
	MinimumBptOut *sdkmath.Int `json:"minimum_bpt_out,omitempty"`
	Options
}

type JoinGivenOutRequest struct {
	Token  TokenRef    `json:"token"`
	BptOut sdkmath.Int `json:"bpt_out"`
	Options
}

type JoinAllGivenOutRequest struct {
	BptOut sdkmath.Int `json:"bpt_out"`
	Options
}

type ExitGivenOutRequest struct {
	AmountsOut   NAry         `json:"amounts_out"`
	MaximumBptIn *sdkmath.Int `json:"maximum_bpt_in,omitempty"`
	Options
}

type SingleExitGivenInRequest struct {
	BptIn sdkmath.Int `json:"bpt_in"`
	Token TokenRef    `json:"token"`
	Options
}

type MultiExitGivenInRequest struct {
	BptIn sdkmath.Int `json:"bpt_in"`
	Options
}

// SwapKind selects which side of a swap is fixed.
type SwapKind string

const (
	GivenIn  SwapKind = "GIVEN_IN"
	GivenOut SwapKind = "GIVEN_OUT"
)

type SwapRequest struct {
	In     TokenRef    `json:"in"`
	Out    TokenRef    `json:"out"`
	Amount sdkmath.Int `json:"amount"`
	Kind   SwapKind    `json:"kind,omitempty"` // Defaults to GIVEN_IN
	// Limit is the minimum amount out (given in) or the maximum amount in (given out).
	Limit *sdkmath.Int `json:"limit,omitempty"`
	Options
}

// ResolvedKind returns the swap kind, defaulting to GivenIn.
func (r SwapRequest) ResolvedKind() SwapKind {
	if r.Kind == "" {
		return GivenIn
	}
	return r.Kind
}

// Settlement is the set of ledger movements an operation implies. Amount slices are
// indexed like Tokens.
type Settlement struct {
	PoolID       PoolID        `json:"pool_id"`
	Operation    OperationType `json:"operation"`
	Sender       string        `json:"sender"`
	Recipient    string        `json:"recipient"`
	Tokens       []string      `json:"tokens"`
	AmountsIn    []sdkmath.Int `json:"amounts_in"`    // sender -> pool
	AmountsOut   []sdkmath.Int `json:"amounts_out"`   // pool -> recipient
	ProtocolFees []sdkmath.Int `json:"protocol_fees"` // pool -> protocol fee collector
	BptMinted    sdkmath.Int   `json:"bpt_minted"`    // -> recipient
	BptBurned    sdkmath.Int   `json:"bpt_burned"`    // sender ->
	BptLocked    sdkmath.Int   `json:"bpt_locked"`    // -> zero address
}

// SettleFunc applies a settlement to the external ledger. Returning an error aborts the
// operation before the pool commits any state.
type SettleFunc func(Settlement) error

// AddTokenRequest adds a token to a managed pool. The other weights are scaled by
// 1 - Weight; Amount of the new token is deposited by From and MintAmount BPT is minted
// to the recipient.
type AddTokenRequest struct {
	Token        Token             `json:"token"`
	Weight       sdkmath.LegacyDec `json:"weight"`
	Amount       sdkmath.Int       `json:"amount"`
	RateProvider string            `json:"rate_provider,omitempty"`
	AssetManager string            `json:"asset_manager,omitempty"`
	MintAmount   sdkmath.Int       `json:"mint_amount"`
	Options
}

// RemoveTokenRequest removes a token from a managed pool. Its whole balance is paid to the
// recipient and BurnAmount BPT is burned from From.
type RemoveTokenRequest struct {
	Token      TokenRef    `json:"token"`
	BurnAmount sdkmath.Int `json:"burn_amount"`
	Options
}
