package repositories

import (
	"context"
	"errors"
	"time"

	"fossa/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository persists payout records. CompareAndSetStatus is the
// single synchronization point for the whole claim flow: every lifecycle
// transition goes through it, and the row update's atomicity is what makes
// "at most one successful settlement per record" hold under concurrency.
type PaymentRepository interface {
	// Create inserts the record, returning ErrDuplicatePayment if a record
	// with the same id already exists.
	Create(ctx context.Context, payment *models.Payment) error

	Get(ctx context.Context, id string) (*models.Payment, error)
	GetBySwapID(ctx context.Context, swapID string) (*models.Payment, error)
	ListByDevices(ctx context.Context, deviceIDs []string) ([]models.Payment, error)
	Delete(ctx context.Context, id string) error

	// CompareAndSetStatus moves the record from one status to another,
	// optionally updating the settlement reference columns. It reports
	// false without error when the record was not in the expected status.
	CompareAndSetStatus(ctx context.Context, id string, from, to models.PaymentStatus, updates map[string]interface{}) (bool, error)

	// ResetStale releases in-flight records older than the cutoff back to
	// unclaimed so their payloads become retriable.
	ResetStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(payment)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrDuplicatePayment
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetBySwapID(ctx context.Context, swapID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "swap_id = ?", swapID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByDevices(ctx context.Context, deviceIDs []string) ([]models.Payment, error) {
	if len(deviceIDs) == 0 {
		return nil, nil
	}
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("device_id IN ?", deviceIDs).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, "id = ?", id).Error
}

func (r *paymentRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.PaymentStatus, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *paymentRepository) ResetStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status IN ? AND updated_at < ?",
			[]models.PaymentStatus{models.StatusPending, models.StatusPendingSwap}, cutoff).
		Updates(map[string]interface{}{
			"status":       models.StatusUnclaimed,
			"payment_hash": "",
			"swap_id":      "",
		})
	return res.RowsAffected, res.Error
}
