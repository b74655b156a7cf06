package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/elys-network/wpool/internal/accountant"
	"github.com/elys-network/wpool/internal/pool"
	"github.com/elys-network/wpool/internal/state"
	"github.com/elys-network/wpool/internal/types"
	"github.com/elys-network/wpool/internal/vault"
	"github.com/elys-network/wpool/internal/weightedmath"
)

var statusTable = []struct {
	status int
	errs   []error
}{
	{http.StatusNotFound, []error{accountant.ErrPoolNotFound, types.ErrTokenNotFound}},
	{http.StatusForbidden, []error{
		pool.ErrSenderNotOwner, pool.ErrSenderNotAdmin, pool.ErrSenderNotRateProvider,
		pool.ErrAddressNotAllowlisted, pool.ErrRightNotGranted,
	}},
	{http.StatusConflict, []error{
		pool.ErrPaused, pool.ErrSwapsDisabled, pool.ErrJoinExitDisabled, pool.ErrAlreadyInitialized,
		pool.ErrUninitialized, pool.ErrStaleBalances, pool.ErrNotPausable, pool.ErrWeightChangeActive,
		pool.ErrBalanceOverride,
	}},
	{http.StatusUnprocessableEntity, []error{
		pool.ErrCircuitBreakerTripped, pool.ErrSwapLimit, pool.ErrBptOutMinAmount, pool.ErrBptInMaxAmount,
		pool.ErrInsufficientLiquidity, pool.ErrZeroBpt, pool.ErrMinimumBpt, vault.ErrInsufficientBalance,
		weightedmath.ErrMaxInRatio, weightedmath.ErrMaxOutRatio, weightedmath.ErrMaxInvariantRatio,
		weightedmath.ErrMinInvariantRatio, weightedmath.ErrInsufficientLiquidity,
	}},
	{http.StatusServiceUnavailable, []error{state.ErrDBNotInitialized}},
	{http.StatusRequestTimeout, []error{context.Canceled, context.DeadlineExceeded}},
}

// statusFor maps an error to an HTTP status. Unknown errors are treated as bad input.
func statusFor(err error) int {
	for _, row := range statusTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.status
			}
		}
	}
	return http.StatusBadRequest
}
