// Package device provisions and resolves ATM devices. Lookups go through a
// cache because every LNURL scan resolves its device first.
package device

import (
	"context"
	"errors"

	"fossa/internal/models"
	"fossa/internal/repositories"
	"fossa/internal/services/pricing"
	"fossa/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Cache is the read-through device cache. Misses and cache failures both
// fall back to the repository.
type Cache interface {
	Get(ctx context.Context, id string) (*models.Device, error)
	Set(ctx context.Context, device *models.Device) error
	Invalidate(ctx context.Context, id string) error
}

type Service struct {
	repo  repositories.DeviceRepository
	cache Cache
	log   *logrus.Entry
}

// NewService wires the device service. cache may be nil, lookups then hit
// the repository directly.
func NewService(repo repositories.DeviceRepository, cache Cache) *Service {
	if repo == nil {
		panic("device repository is required")
	}
	return &Service{
		repo:  repo,
		cache: cache,
		log:   logrus.WithField("component", "device"),
	}
}

// Create provisions a new device under the given wallet and mints its
// shared payload secret.
func (s *Service) Create(ctx context.Context, walletID string, req *models.CreateDeviceRequest) (*models.Device, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	key, err := utils.GenerateDeviceKey()
	if err != nil {
		return nil, err
	}

	device := &models.Device{
		ID:       uuid.NewString(),
		Key:      key,
		Title:    req.Title,
		Wallet:   walletID,
		Currency: req.Currency,
		Profit:   req.Profit,
		Boltz:    req.Boltz,
	}
	if device.Currency == "" {
		device.Currency = pricing.CurrencySat
	}

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"device_id": device.ID,
		"wallet":    walletID,
	}).Info("device provisioned")
	return device, nil
}

// Update rewrites a device's settings. The id, key and owning wallet never
// change; re-keying means deleting and provisioning a new device.
func (s *Service) Update(ctx context.Context, walletID, id string, req *models.CreateDeviceRequest) (*models.Device, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	device, err := s.owned(ctx, walletID, id)
	if err != nil {
		return nil, err
	}

	device.Title = req.Title
	device.Currency = req.Currency
	device.Profit = req.Profit
	device.Boltz = req.Boltz
	if device.Currency == "" {
		device.Currency = pricing.CurrencySat
	}

	if err := s.repo.Update(ctx, device); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return device, nil
}

// Get resolves a device, cache first.
func (s *Service) Get(ctx context.Context, id string) (*models.Device, error) {
	if s.cache != nil {
		if device, err := s.cache.Get(ctx, id); err == nil {
			return device, nil
		}
	}

	device, err := s.repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrDeviceNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, device); err != nil {
			s.log.WithError(err).WithField("device_id", id).Warn("device cache write failed")
		}
	}
	return device, nil
}

// List returns the devices owned by a wallet.
func (s *Service) List(ctx context.Context, walletID string) ([]models.Device, error) {
	return s.repo.ListByWallet(ctx, walletID)
}

// Delete removes a device owned by the wallet.
func (s *Service) Delete(ctx context.Context, walletID, id string) error {
	if _, err := s.owned(ctx, walletID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// owned fetches a device and checks the caller's wallet owns it. Foreign
// devices read as not found, ownership is not leaked.
func (s *Service) owned(ctx context.Context, walletID, id string) (*models.Device, error) {
	device, err := s.repo.Get(ctx, id)
	if errors.Is(err, repositories.ErrDeviceNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if device.Wallet != walletID {
		return nil, ErrNotFound
	}
	return device, nil
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.WithError(err).WithField("device_id", id).Warn("device cache invalidation failed")
	}
}

func validate(req *models.CreateDeviceRequest) error {
	if req.Title == "" {
		return ErrTitleMissing
	}
	if req.Profit < 0 || req.Profit > 100 {
		return ErrBadProfit
	}
	return nil
}
