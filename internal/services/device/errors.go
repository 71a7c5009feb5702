package device

import "errors"

var (
	ErrNotFound     = errors.New("device not found")
	ErrTitleMissing = errors.New("device title is required")
	ErrBadProfit    = errors.New("profit margin must be between 0 and 100")
)
