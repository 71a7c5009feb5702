// Package withdraw drives the LNURL withdraw handshake and the direct ATM
// payout flows through the payment ledger.
package withdraw

import (
	"context"
	"fmt"
	"time"

	"fossa/internal/boltz"
	"fossa/internal/lightning"
	"fossa/internal/lnurl"
	"fossa/internal/models"
	"fossa/internal/services/ledger"

	"github.com/sirupsen/logrus"
)

// PaymentTag marks payments made by this service on the confirmation feed.
const PaymentTag = "fossa"

type Config struct {
	// CallbackBaseURL is the public base URL devices and wallets reach
	// this server on, used to build the phase-two callback.
	CallbackBaseURL string
}

type Service struct {
	cfg      Config
	devices  DeviceSource
	ledger   *ledger.Service
	wallets  lightning.WalletReader
	payer    lightning.Payer
	swaps    boltz.SwapClient
	invoices InvoiceDecoder
	resolver InvoiceResolver
	metrics  MetricsCollector
	log      *logrus.Entry

	// spawn runs the settlement call off the request path. Tests swap it
	// for an inline runner.
	spawn func(func())
}

func NewService(
	cfg Config,
	devices DeviceSource,
	ledgerSvc *ledger.Service,
	wallets lightning.WalletReader,
	payer lightning.Payer,
	swaps boltz.SwapClient,
	invoices InvoiceDecoder,
	resolver InvoiceResolver,
	metrics MetricsCollector,
) *Service {
	if devices == nil || ledgerSvc == nil || wallets == nil || payer == nil || invoices == nil {
		panic("withdraw service dependencies missing")
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	return &Service{
		cfg:      cfg,
		devices:  devices,
		ledger:   ledgerSvc,
		wallets:  wallets,
		payer:    payer,
		swaps:    swaps,
		invoices: invoices,
		resolver: resolver,
		metrics:  metrics,
		log:      logrus.WithField("component", "withdraw"),
		spawn:    func(f func()) { go f() },
	}
}

// Params handles phase one of the withdraw handshake: decode, price and
// register the payload, then advertise a fixed-amount withdrawal with the
// record id as single-use correlation token.
func (s *Service) Params(ctx context.Context, deviceID, rawPayload, iv string) (*models.LnurlWithdrawResponse, error) {
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return nil, ErrDeviceNotFound
	}

	record, err := s.ledger.Register(ctx, device, rawPayload, iv)
	if err != nil {
		return nil, err
	}
	if record.Status == models.StatusPaid {
		return nil, ledger.ErrAlreadyClaimed
	}

	msat := record.Sats * 1000
	return &models.LnurlWithdrawResponse{
		Tag:                models.LnurlTagWithdraw,
		Callback:           fmt.Sprintf("%s/api/v1/lnurl/cb/%s", s.cfg.CallbackBaseURL, device.ID),
		K1:                 record.ID,
		MinWithdrawable:    msat,
		MaxWithdrawable:    msat,
		DefaultDescription: fmt.Sprintf("%s ID: %s", device.Title, record.ID),
	}, nil
}

// Callback handles phase two: validate the wallet-supplied invoice, claim
// the record and settle in the background. The pending marker is durably
// written before this returns, closing the double-claim window.
func (s *Service) Callback(ctx context.Context, deviceID, k1, pr string) error {
	record, err := s.ledger.Get(ctx, k1)
	if err != nil {
		return err
	}
	if record.DeviceID != deviceID {
		return ledger.ErrNotFound
	}

	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return ErrDeviceNotFound
	}

	if _, err := s.invoices.DecodeExpecting(pr, record.Sats*1000); err != nil {
		return err
	}

	if err := s.checkBalance(ctx, device.Wallet, record.Sats); err != nil {
		return err
	}

	record, err = s.ledger.Claim(ctx, record.ID)
	if err != nil {
		return err
	}

	s.spawn(func() {
		s.settle(record, device, pr)
	})
	return nil
}

// settle runs the actual payment and updates the record. It deliberately
// uses a fresh context: the HTTP request that triggered it is long gone.
func (s *Service) settle(record *models.Payment, device *models.Device, pr string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := s.payer.Pay(ctx, lightning.PayRequest{
		WalletID: device.Wallet,
		Bolt11:   pr,
		MaxSats:  record.Sats + SafetyMarginSats,
		Tag:      PaymentTag,
		Extra:    map[string]string{"id": record.ID},
	})
	if err != nil {
		s.metrics.RecordPayout("lnurl", "failed")
		s.log.WithError(err).WithField("payment_id", record.ID).
			Error("settlement failed, releasing record")
		if rerr := s.ledger.Release(ctx, record.ID); rerr != nil {
			s.log.WithError(rerr).WithField("payment_id", record.ID).
				Error("rollback failed")
		}
		return
	}

	if err := s.ledger.Finalize(ctx, record.ID, result.PaymentHash); err != nil {
		s.log.WithError(err).WithField("payment_id", record.ID).
			Error("settled but could not finalize record")
		return
	}
	s.metrics.RecordPayout("lnurl", "ok")
}

// PayLightning is the direct ATM payout: the caller supplies the scanned
// LNURL and a destination (bolt11, lnurl-pay or lightning address), and the
// payment is settled synchronously.
func (s *Service) PayLightning(ctx context.Context, scannedLnurl, withdrawRequest string) (*models.Payment, error) {
	record, device, err := s.registerScanned(ctx, scannedLnurl)
	if err != nil {
		return nil, err
	}

	if err := s.checkBalance(ctx, device.Wallet, record.Sats); err != nil {
		return nil, err
	}

	msat := record.Sats * 1000
	pr, err := s.resolver.ResolveInvoice(ctx, withdrawRequest, msat)
	if err != nil {
		return nil, err
	}
	if _, err := s.invoices.DecodeExpecting(pr, msat); err != nil {
		return nil, err
	}

	record, err = s.ledger.Claim(ctx, record.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.payer.Pay(ctx, lightning.PayRequest{
		WalletID: device.Wallet,
		Bolt11:   pr,
		MaxSats:  record.Sats + SafetyMarginSats,
		Tag:      PaymentTag,
		Extra:    map[string]string{"id": record.ID},
	})
	if err != nil {
		s.metrics.RecordPayout("lightning", "failed")
		if rerr := s.ledger.Release(ctx, record.ID); rerr != nil {
			s.log.WithError(rerr).WithField("payment_id", record.ID).
				Error("rollback failed")
		}
		return nil, ErrExecutionFailed
	}

	if err := s.ledger.Finalize(ctx, record.ID, result.PaymentHash); err != nil {
		return nil, err
	}
	s.metrics.RecordPayout("lightning", "ok")

	record.Status = models.StatusPaid
	record.PaymentHash = result.PaymentHash
	return record, nil
}

// PayOnchain delegates the payout to the swap service. The record parks in
// pending-swap until the reconciler sees the completion event.
func (s *Service) PayOnchain(ctx context.Context, scannedLnurl, asset, address string) (string, error) {
	record, device, err := s.registerScanned(ctx, scannedLnurl)
	if err != nil {
		return "", err
	}
	if !device.Boltz {
		return "", ErrSwapNotSupported
	}

	if err := s.checkBalance(ctx, device.Wallet, record.Sats); err != nil {
		return "", err
	}

	record, err = s.ledger.Claim(ctx, record.ID)
	if err != nil {
		return "", err
	}

	swapID, err := s.swaps.CreateReverseSwap(ctx, boltz.ReverseSwapRequest{
		Wallet:         device.Wallet,
		Asset:          asset,
		Amount:         record.Sats,
		OnchainAddress: address,
	})
	if err != nil {
		s.metrics.RecordPayout("onchain", "failed")
		if rerr := s.ledger.Release(ctx, record.ID); rerr != nil {
			s.log.WithError(rerr).WithField("payment_id", record.ID).
				Error("rollback failed")
		}
		return "", ErrExecutionFailed
	}

	if err := s.ledger.DelegateSwap(ctx, record.ID, swapID); err != nil {
		return "", err
	}
	s.metrics.RecordPayout("onchain", "pending")

	s.log.WithFields(logrus.Fields{
		"payment_id": record.ID,
		"swap_id":    swapID,
	}).Info("payout delegated to swap service")
	return swapID, nil
}

// registerScanned resolves a scanned LNURL into its device and registered
// payment record.
func (s *Service) registerScanned(ctx context.Context, scannedLnurl string) (*models.Payment, *models.Device, error) {
	payload, err := lnurl.ParsePayload(scannedLnurl)
	if err != nil {
		return nil, nil, err
	}

	device, err := s.devices.Get(ctx, payload.DeviceID)
	if err != nil {
		return nil, nil, ErrDeviceNotFound
	}

	record, err := s.ledger.Register(ctx, device, payload.Payload, payload.IV)
	if err != nil {
		return nil, nil, err
	}
	return record, device, nil
}

func (s *Service) checkBalance(ctx context.Context, walletID string, sats int64) error {
	wallet, err := s.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return ErrWalletNotFound
	}
	if wallet.Balance < sats+SafetyMarginSats {
		return ErrInsufficientFunds
	}
	return nil
}
