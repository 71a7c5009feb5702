// Package pricing converts device-embedded amounts into settlement satoshis,
// applying currency conversion and the operator's profit margin.
package pricing

import (
	"context"
	"fmt"
	"math"

	"fossa/internal/models"
)

// CurrencySat marks a device that already reports amounts in satoshis.
const CurrencySat = "sat"

// RateSource converts a fiat amount into satoshis at the current rate.
type RateSource interface {
	FiatAsSats(ctx context.Context, amount float64, currency string) (int64, error)
}

type Service struct {
	rates RateSource
}

func NewService(rates RateSource) *Service {
	if rates == nil {
		panic("rate source is required")
	}
	return &Service{rates: rates}
}

// AmountToSats converts a decoded payload amount into the payout amount.
// Fiat devices embed the amount in cents. The profit margin is deducted from
// the payout, so the operator retains profit% of each withdrawal.
func (s *Service) AmountToSats(ctx context.Context, device *models.Device, amount float64) (int64, error) {
	var sats int64
	if device.Currency == CurrencySat {
		sats = int64(math.Ceil(amount))
	} else {
		var err error
		sats, err = s.rates.FiatAsSats(ctx, amount/100, device.Currency)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}
	}

	if device.Profit > 0 {
		sats -= int64(float64(sats) * device.Profit / 100)
	}
	return sats, nil
}
