package models

import "time"

// PaymentStatus is the lifecycle state of a payout record. Transitions are
// enforced with compare-and-set updates in the payment repository, so two
// concurrent claims can never both move the same record forward.
type PaymentStatus string

const (
	// StatusUnclaimed means the payload is registered but no settlement
	// attempt has started. The only state a claim may start from.
	StatusUnclaimed PaymentStatus = "unclaimed"

	// StatusPending means a settlement attempt is in flight.
	StatusPending PaymentStatus = "pending"

	// StatusPendingSwap means the payout was delegated to the swap service
	// and will be finalized by the reconciler.
	StatusPendingSwap PaymentStatus = "pending_swap"

	// StatusPaid is terminal.
	StatusPaid PaymentStatus = "paid"
)

// Payment is one payout record per distinct device payload. ID is derived
// from the raw payload, which is what makes registration idempotent.
type Payment struct {
	ID          string        `gorm:"primarykey" json:"id"`
	DeviceID    string        `gorm:"not null;index" json:"device_id"`
	Payload     string        `gorm:"not null" json:"payload"`
	Pin         int           `json:"pin"`
	Amount      float64       `json:"amount"`
	Sats        int64         `json:"sats"`
	Status      PaymentStatus `gorm:"not null;default:'unclaimed';index" json:"status"`
	PaymentHash string        `json:"payment_hash,omitempty"`
	SwapID      string        `gorm:"index" json:"swap_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// InFlight reports whether a settlement attempt is currently outstanding.
func (p *Payment) InFlight() bool {
	return p.Status == StatusPending || p.Status == StatusPendingSwap
}
