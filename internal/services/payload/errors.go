package payload

import "errors"

// Decode errors. None of these may result in a payment record being created.
var (
	ErrBadVersion    = errors.New("unknown payload version")
	ErrTruncated     = errors.New("truncated payload")
	ErrNonceTooShort = errors.New("nonce too short")
	ErrTooLong       = errors.New("payload too long")
	ErrBadSignature  = errors.New("payload authentication failed")
	ErrBadEncoding   = errors.New("malformed payload encoding")
	ErrBadPin        = errors.New("pin out of range")
	ErrBadAmount     = errors.New("invalid amount")
)
