package ledger

import (
	"context"
	"time"

	"fossa/internal/models"
)

// StaleAfter is how long a pending or pending-swap record may sit without
// reconciliation before its payload becomes retriable again.
const StaleAfter = 10 * time.Minute

// Pricer converts a decoded device amount into settlement satoshis.
type Pricer interface {
	AmountToSats(ctx context.Context, device *models.Device, amount float64) (int64, error)
}

// MetricsCollector records ledger activity. A no-op implementation is used
// when metrics are disabled.
type MetricsCollector interface {
	RecordRegistration(deviceID string)
	RecordClaim(result string)
	RecordSettlement(sats int64)
}

type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRegistration(string) {}
func (NoopMetricsCollector) RecordClaim(string)        {}
func (NoopMetricsCollector) RecordSettlement(int64)    {}
