package ledger

import "errors"

var (
	// ErrAlreadyClaimed means the record is terminally paid. It is never
	// surfaced with any record mutation.
	ErrAlreadyClaimed = errors.New("payment already claimed")

	// ErrAlreadyPending means another settlement attempt is in flight.
	ErrAlreadyPending = errors.New("payment already pending")

	// ErrNotFound means no record exists for the given id or swap id.
	ErrNotFound = errors.New("payment not found")

	// ErrConflict means a state transition lost a race and the record is
	// no longer in the expected state.
	ErrConflict = errors.New("payment state conflict")
)
