// Package ledger owns the payout record lifecycle. Registration is
// idempotent per raw payload and every state transition is a storage-level
// compare-and-set, which is the only concurrency control in the claim path.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"fossa/internal/models"
	"fossa/internal/repositories"
	"fossa/internal/services/payload"

	"github.com/sirupsen/logrus"
)

type Service struct {
	repo    repositories.PaymentRepository
	decoder payload.Decoder
	pricer  Pricer
	metrics MetricsCollector
	log     *logrus.Entry
}

func NewService(repo repositories.PaymentRepository, decoder payload.Decoder, pricer Pricer, metrics MetricsCollector) *Service {
	if repo == nil {
		panic("payment repository is required")
	}
	if decoder == nil {
		panic("payload decoder is required")
	}
	if pricer == nil {
		panic("pricer is required")
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	return &Service{
		repo:    repo,
		decoder: decoder,
		pricer:  pricer,
		metrics: metrics,
		log:     logrus.WithField("component", "ledger"),
	}
}

// PaymentID derives the stable record id for a raw payload. Re-submitting
// the same payload always maps to the same record.
func PaymentID(rawPayload string) string {
	sum := sha256.Sum256([]byte(rawPayload))
	return hex.EncodeToString(sum[:])
}

// Register returns the record for the payload, creating it on first sight.
// An existing record is returned unchanged: no re-decode, no re-pricing,
// the settlement amount is fixed at creation time.
func (s *Service) Register(ctx context.Context, device *models.Device, rawPayload, iv string) (*models.Payment, error) {
	id := PaymentID(rawPayload)

	existing, err := s.repo.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrPaymentNotFound) {
		return nil, err
	}

	decoded, err := s.decoder.Decode(payload.Request{
		Payload: rawPayload,
		IV:      iv,
		Key:     device.Key,
	})
	if err != nil {
		return nil, err
	}

	sats, err := s.pricer.AmountToSats(ctx, device, decoded.Amount)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		ID:       id,
		DeviceID: device.ID,
		Payload:  rawPayload,
		Pin:      decoded.Pin,
		Amount:   decoded.Amount,
		Sats:     sats,
		Status:   models.StatusUnclaimed,
	}
	err = s.repo.Create(ctx, p)
	if errors.Is(err, repositories.ErrDuplicatePayment) {
		// Lost a create race, the winner's record is authoritative.
		return s.repo.Get(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRegistration(device.ID)
	s.log.WithFields(logrus.Fields{
		"payment_id": id,
		"device_id":  device.ID,
		"sats":       sats,
	}).Info("payment registered")
	return p, nil
}

// Get returns the record for the given id.
func (s *Service) Get(ctx context.Context, id string) (*models.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrPaymentNotFound) {
		return nil, ErrNotFound
	}
	return p, err
}

// Claim moves the record from unclaimed to pending. Exactly one concurrent
// caller wins; the others get ErrAlreadyPending or ErrAlreadyClaimed.
func (s *Service) Claim(ctx context.Context, id string) (*models.Payment, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.claimable(p); err != nil {
		return nil, err
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, id, models.StatusUnclaimed, models.StatusPending, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Someone else got there between the read and the update.
		s.metrics.RecordClaim("conflict")
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if cerr := s.claimable(current); cerr != nil {
			return nil, cerr
		}
		return nil, ErrConflict
	}

	s.metrics.RecordClaim("ok")
	p.Status = models.StatusPending
	return p, nil
}

func (s *Service) claimable(p *models.Payment) error {
	switch p.Status {
	case models.StatusPaid:
		return ErrAlreadyClaimed
	case models.StatusPending, models.StatusPendingSwap:
		return ErrAlreadyPending
	}
	return nil
}

// Finalize marks a pending record as paid with the settlement reference.
// Terminal: no later transition can ever leave the paid state.
func (s *Service) Finalize(ctx context.Context, id, paymentHash string) error {
	ok, err := s.repo.CompareAndSetStatus(ctx, id, models.StatusPending, models.StatusPaid,
		map[string]interface{}{"payment_hash": paymentHash})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: finalize %s", ErrConflict, id)
	}

	p, err := s.Get(ctx, id)
	if err == nil {
		s.metrics.RecordSettlement(p.Sats)
	}
	s.log.WithFields(logrus.Fields{
		"payment_id":   id,
		"payment_hash": paymentHash,
	}).Info("payment finalized")
	return nil
}

// Release rolls a pending record back to unclaimed after a failed
// settlement attempt, so the payload can be retried.
func (s *Service) Release(ctx context.Context, id string) error {
	ok, err := s.repo.CompareAndSetStatus(ctx, id, models.StatusPending, models.StatusUnclaimed,
		map[string]interface{}{"payment_hash": "", "swap_id": ""})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: release %s", ErrConflict, id)
	}
	s.log.WithField("payment_id", id).Warn("payment released for retry")
	return nil
}

// DelegateSwap hands a pending record over to the swap service. The record
// is finalized asynchronously by the reconciler.
func (s *Service) DelegateSwap(ctx context.Context, id, swapID string) error {
	ok, err := s.repo.CompareAndSetStatus(ctx, id, models.StatusPending, models.StatusPendingSwap,
		map[string]interface{}{"swap_id": swapID})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: delegate %s", ErrConflict, id)
	}
	return nil
}

// FinalizeSwap resolves a pending-swap record by its external swap id.
func (s *Service) FinalizeSwap(ctx context.Context, swapID string) (*models.Payment, error) {
	p, err := s.repo.GetBySwapID(ctx, swapID)
	if errors.Is(err, repositories.ErrPaymentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.CompareAndSetStatus(ctx, p.ID, models.StatusPendingSwap, models.StatusPaid,
		map[string]interface{}{"payment_hash": swapID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: finalize swap %s", ErrConflict, swapID)
	}

	s.metrics.RecordSettlement(p.Sats)
	p.Status = models.StatusPaid
	p.PaymentHash = swapID
	return p, nil
}

// ResetStale releases in-flight records that have outlived the staleness
// window. Returns the number of records reset.
func (s *Service) ResetStale(ctx context.Context) (int64, error) {
	n, err := s.repo.ResetStale(ctx, time.Now().Add(-StaleAfter))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.WithField("count", n).Warn("reset stale in-flight payments")
	}
	return n, nil
}
