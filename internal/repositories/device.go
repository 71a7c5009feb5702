package repositories

import (
	"context"
	"errors"

	"fossa/internal/models"

	"gorm.io/gorm"
)

// DeviceRepository is the persistence interface for provisioned devices.
type DeviceRepository interface {
	Create(ctx context.Context, device *models.Device) error
	Update(ctx context.Context, device *models.Device) error
	Get(ctx context.Context, id string) (*models.Device, error)
	ListByWallet(ctx context.Context, walletID string) ([]models.Device, error)
	Delete(ctx context.Context, id string) error
}

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) Create(ctx context.Context, device *models.Device) error {
	return r.db.WithContext(ctx).Create(device).Error
}

func (r *deviceRepository) Update(ctx context.Context, device *models.Device) error {
	return r.db.WithContext(ctx).Save(device).Error
}

func (r *deviceRepository) Get(ctx context.Context, id string) (*models.Device, error) {
	var device models.Device
	err := r.db.WithContext(ctx).First(&device, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *deviceRepository) ListByWallet(ctx context.Context, walletID string) ([]models.Device, error) {
	var devices []models.Device
	err := r.db.WithContext(ctx).
		Where("wallet = ?", walletID).
		Order("created_at DESC").
		Find(&devices).Error
	return devices, err
}

func (r *deviceRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Device{}, "id = ?", id).Error
}
