package withdraw

import (
	"context"

	"fossa/internal/invoice"
	"fossa/internal/models"
)

// SafetyMarginSats is held back from the wallet balance check and added to
// the payment fee ceiling, covering routing fees on the payout.
const SafetyMarginSats = 100

// DeviceSource resolves devices, typically backed by the device service
// with its Redis read-through cache.
type DeviceSource interface {
	Get(ctx context.Context, id string) (*models.Device, error)
}

// InvoiceDecoder validates bolt11 payment requests against the exact
// payout amount.
type InvoiceDecoder interface {
	DecodeExpecting(pr string, amountMsat int64) (*invoice.Invoice, error)
}

// InvoiceResolver turns an ATM withdraw request (bolt11, lnurl-pay or
// lightning address) into a concrete invoice for the given amount.
type InvoiceResolver interface {
	ResolveInvoice(ctx context.Context, request string, amountMsat int64) (string, error)
}

// MetricsCollector records payout attempts and outcomes.
type MetricsCollector interface {
	RecordPayout(kind, result string)
}

type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordPayout(string, string) {}
