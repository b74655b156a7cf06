/*

Result records returned by pool operations and read-only queries.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Receipt is the proof-of-execution handle attached to every state-changing operation.
type Receipt struct {
	ID        string        `json:"id"`
	PoolID    PoolID        `json:"pool_id"`
	Operation OperationType `json:"operation"`
	Block     uint64        `json:"block"` // The pool's change block after the operation
	Timestamp time.Time     `json:"timestamp"`
	Sender    string        `json:"sender,omitempty"`
	Recipient string        `json:"recipient,omitempty"`
}

type JoinResult struct {
	AmountsIn             []sdkmath.Int `json:"amounts_in"`
	DueProtocolFeeAmounts []sdkmath.Int `json:"due_protocol_fee_amounts"`
	BptOut                sdkmath.Int   `json:"bpt_out"`
	Receipt               Receipt       `json:"receipt"`
}

type ExitResult struct {
	AmountsOut            []sdkmath.Int `json:"amounts_out"`
	DueProtocolFeeAmounts []sdkmath.Int `json:"due_protocol_fee_amounts"`
	BptIn                 sdkmath.Int   `json:"bpt_in"`
	Receipt               Receipt       `json:"receipt"`
}

type SwapResult struct {
	Amount  sdkmath.Int `json:"amount"` // Amount out for GIVEN_IN, amount in for GIVEN_OUT
	Receipt Receipt     `json:"receipt"`
}

// JoinQueryResult is the projected outcome of a join without any state change.
type JoinQueryResult struct {
	BptOut    sdkmath.Int   `json:"bpt_out"`
	AmountsIn []sdkmath.Int `json:"amounts_in"`
}

// ExitQueryResult is the projected outcome of an exit without any state change.
type ExitQueryResult struct {
	BptIn      sdkmath.Int   `json:"bpt_in"`
	AmountsOut []sdkmath.Int `json:"amounts_out"`
}

// SwapQueryResult is the projected outcome of a swap without any state change.
type SwapQueryResult struct {
	Amount sdkmath.Int `json:"amount"`
}

type VoidResult struct {
	Receipt Receipt `json:"receipt"`
}

// AumFeeResult reports management fees minted as BPT.
type AumFeeResult struct {
	BptMinted sdkmath.Int `json:"bpt_minted"`
	Receipt   Receipt     `json:"receipt"`
}
