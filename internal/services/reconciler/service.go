// Package reconciler consumes the payment-confirmation feed and finalizes
// records that the withdraw service parked in the pending-swap state.
package reconciler

import (
	"context"
	"errors"

	"fossa/internal/services/ledger"

	"github.com/sirupsen/logrus"
)

type Service struct {
	feed     Feed
	ledger   *ledger.Service
	notifier Notifier
	log      *logrus.Entry
}

func NewService(feed Feed, ledgerSvc *ledger.Service, notifier Notifier) *Service {
	if feed == nil || ledgerSvc == nil {
		panic("reconciler dependencies missing")
	}
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &Service{
		feed:     feed,
		ledger:   ledgerSvc,
		notifier: notifier,
		log:      logrus.WithField("component", "reconciler"),
	}
}

// Run consumes the feed until the context is cancelled or the feed closes.
// Individual event failures are logged and dropped; the loop never stops
// over a single bad event.
func (s *Service) Run(ctx context.Context) error {
	events, err := s.feed.Events(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) handle(ctx context.Context, ev Event) {
	if ev.Tag != SwapTag {
		return
	}
	if ev.SwapID == "" {
		s.log.Warn("swap event without swap id dropped")
		return
	}

	record, err := s.ledger.FinalizeSwap(ctx, ev.SwapID)
	if errors.Is(err, ledger.ErrNotFound) {
		// A swap we never delegated, or a record already purged. Not an
		// error condition for the feed.
		s.log.WithField("swap_id", ev.SwapID).Warn("no record for swap event")
		return
	}
	if err != nil {
		s.log.WithError(err).WithField("swap_id", ev.SwapID).
			Error("could not finalize swap")
		return
	}

	s.log.WithFields(logrus.Fields{
		"payment_id": record.ID,
		"swap_id":    ev.SwapID,
		"sats":       record.Sats,
	}).Info("swap payout finalized")

	if err := s.notifier.Notify(ctx, record.ID, "Paid"); err != nil {
		s.log.WithError(err).WithField("payment_id", record.ID).
			Warn("could not notify payment watcher")
	}
}
