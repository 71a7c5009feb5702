package reconciler

import "context"

// SwapTag marks confirmation events that belong to the on-chain payout
// channel. Events carrying any other tag are not ours to resolve.
const SwapTag = "boltz"

// Event is one entry on the payment-confirmation feed.
type Event struct {
	Tag         string `json:"tag"`
	SwapID      string `json:"swap_id"`
	PaymentHash string `json:"payment_hash"`
	Sats        int64  `json:"sats"`
}

// Feed delivers confirmation events until the context is cancelled.
type Feed interface {
	Events(ctx context.Context) (<-chan Event, error)
}

// Notifier pushes a status update to clients watching a payment, e.g. a
// device screen polling for its swap to complete.
type Notifier interface {
	Notify(ctx context.Context, paymentID, status string) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, string, string) error { return nil }
