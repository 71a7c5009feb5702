package repositories

import "errors"

var (
	ErrDeviceNotFound  = errors.New("device not found")
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicatePayment is returned when a payment record already exists
	// for the given id. Callers treat this as "fetch the existing record".
	ErrDuplicatePayment = errors.New("payment already exists")
)
