package repositories

import (
	"errors"
	"fmt"

	"purse/internal/models"

	"gorm.io/gorm"
)

// PaymentRepository defines database access for generic payment records.
type PaymentRepository interface {
	// GetOrCreateByToken returns the existing payment for the token, or
	// persists the given one if none exists. Tokens are deterministic
	// (the recharge id), which makes payment creation idempotent.
	GetOrCreateByToken(payment *models.Payment) (*models.Payment, bool, error)
	GetByToken(token string) (*models.Payment, error)
	Update(payment *models.Payment) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) GetOrCreateByToken(payment *models.Payment) (*models.Payment, bool, error) {
	var existing models.Payment
	err := r.db.Where("token = ?", payment.Token).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("failed to look up payment: %w", err)
	}
	if err := r.db.Create(payment).Error; err != nil {
		// Lost a race with a concurrent create; the unique token index
		// guarantees at most one row, so re-read it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := r.db.Where("token = ?", payment.Token).First(&existing).Error; err != nil {
				return nil, false, fmt.Errorf("failed to re-read payment: %w", err)
			}
			return &existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, true, nil
}

func (r *paymentRepository) GetByToken(token string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("token = ?", token).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *paymentRepository) Update(payment *models.Payment) error {
	if err := r.db.Save(payment).Error; err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return nil
}
