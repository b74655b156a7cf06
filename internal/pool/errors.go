package pool

import "errors"

var (
	ErrAlreadyInitialized    = errors.New("pool already initialized")
	ErrUninitialized         = errors.New("pool not initialized")
	ErrPaused                = errors.New("pool is paused")
	ErrNotPausable           = errors.New("pause window has expired")
	ErrSwapsDisabled         = errors.New("swaps are disabled")
	ErrJoinExitDisabled      = errors.New("joins and exits are disabled")
	ErrAddressNotAllowlisted = errors.New("address is not allowlisted")
	ErrSenderNotOwner        = errors.New("sender is not the pool owner")
	ErrSenderNotAdmin        = errors.New("sender is not the pool admin")
	ErrSenderNotRateProvider = errors.New("sender is not the token rate provider")
	ErrRightNotGranted       = errors.New("pool variant does not grant this right")
	ErrStaleBalances         = errors.New("balances changed since the given block")
	ErrBalanceCount          = errors.New("current balance count does not match token count")
	ErrBalanceOverride       = errors.New("current balances differ from the pool balances")
	ErrCircuitBreakerTripped = errors.New("circuit breaker tripped")
	ErrInvalidCircuitBreaker = errors.New("invalid circuit breaker bounds")
	ErrBptOutMinAmount       = errors.New("bpt out below minimum")
	ErrBptInMaxAmount        = errors.New("bpt in above maximum")
	ErrZeroBpt               = errors.New("operation would mint or burn no bpt")
	ErrMinimumBpt            = errors.New("initial bpt does not exceed the minimum bpt")
	ErrSwapLimit             = errors.New("swap limit exceeded")
	ErrSameToken             = errors.New("swap tokens must differ")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrProtocolFeeTooHigh    = errors.New("protocol fee percentage above maximum")
	ErrInsufficientLiquidity = errors.New("operation would drain a pool balance")
	ErrInvalidSchedule       = errors.New("end time before start time")
	ErrWeightChangeActive    = errors.New("token set cannot change during a weight update")
	ErrInvalidRate           = errors.New("token rate must be positive")
	ErrInvalidAddress        = errors.New("address must not be empty or zero")
)
