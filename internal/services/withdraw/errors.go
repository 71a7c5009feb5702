package withdraw

import "errors"

var (
	ErrDeviceNotFound   = errors.New("device not found")
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("not enough funds in wallet")
	ErrSwapNotSupported = errors.New("device does not support onchain payout")

	// ErrExecutionFailed means the downstream payment or swap call failed.
	// The in-flight marker is always rolled back before this surfaces, so
	// the payload stays retriable.
	ErrExecutionFailed = errors.New("payout failed, try again later")
)
