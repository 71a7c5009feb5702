package pricing

import "errors"

var (
	// ErrRateUnavailable means the exchange-rate lookup failed. A missing
	// rate aborts the whole operation, an amount is never synthesized.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)
