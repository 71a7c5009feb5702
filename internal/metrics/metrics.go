// Package metrics exposes Prometheus collectors behind the service-level
// metrics interfaces.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements the ledger and withdraw metrics interfaces on a
// shared Prometheus registry.
type Collector struct {
	registrations *prometheus.CounterVec
	claims        *prometheus.CounterVec
	payouts       *prometheus.CounterVec
	settledSats   prometheus.Counter
	payoutSats    prometheus.Histogram
}

func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fossa",
			Name:      "payment_registrations_total",
			Help:      "Payment records created, by device.",
		}, []string{"device_id"}),
		claims: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fossa",
			Name:      "payment_claims_total",
			Help:      "Claim attempts by outcome (ok, conflict).",
		}, []string{"result"}),
		payouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fossa",
			Name:      "payouts_total",
			Help:      "Payout attempts by kind (lnurl, lightning, onchain) and result.",
		}, []string{"kind", "result"}),
		settledSats: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "fossa",
			Name:      "settled_sats_total",
			Help:      "Total satoshis paid out.",
		}),
		payoutSats: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fossa",
			Name:      "payout_sats",
			Help:      "Per-payout satoshi amounts.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}),
	}
}

func (c *Collector) RecordRegistration(deviceID string) {
	c.registrations.WithLabelValues(deviceID).Inc()
}

func (c *Collector) RecordClaim(result string) {
	c.claims.WithLabelValues(result).Inc()
}

func (c *Collector) RecordSettlement(sats int64) {
	c.settledSats.Add(float64(sats))
	c.payoutSats.Observe(float64(sats))
}

func (c *Collector) RecordPayout(kind, result string) {
	c.payouts.WithLabelValues(kind, result).Inc()
}
