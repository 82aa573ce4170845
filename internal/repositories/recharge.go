package repositories

import (
	"errors"
	"fmt"

	"purse/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RechargeRepository defines database access for wallet recharges.
// Recharges are audit records and are never deleted.
type RechargeRepository interface {
	Create(recharge *models.WalletRecharge) error
	GetByID(id string) (*models.WalletRecharge, error)
	// GetByIDForUpdate reads a recharge under a row lock. Only meaningful
	// inside ExecuteInTransaction; the lock is held until commit.
	GetByIDForUpdate(id string) (*models.WalletRecharge, error)
	Update(recharge *models.WalletRecharge) error
	ListByWallet(walletID uint, limit, offset int) ([]models.WalletRecharge, error)
	// ExecuteInTransaction runs fn with recharge and wallet repositories
	// bound to the same database transaction, so a deposit and the status
	// flip it pays for commit or roll back together.
	ExecuteInTransaction(fn func(RechargeRepository, WalletRepository) error) error
}

type rechargeRepository struct {
	db *gorm.DB
}

func NewRechargeRepository(db *gorm.DB) RechargeRepository {
	return &rechargeRepository{db: db}
}

func (r *rechargeRepository) Create(recharge *models.WalletRecharge) error {
	if err := r.db.Create(recharge).Error; err != nil {
		return fmt.Errorf("failed to create recharge: %w", err)
	}
	return nil
}

func (r *rechargeRepository) GetByID(id string) (*models.WalletRecharge, error) {
	var recharge models.WalletRecharge
	if err := r.db.Preload("Payment").First(&recharge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRechargeNotFound
		}
		return nil, fmt.Errorf("failed to get recharge: %w", err)
	}
	return &recharge, nil
}

func (r *rechargeRepository) GetByIDForUpdate(id string) (*models.WalletRecharge, error) {
	var recharge models.WalletRecharge
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&recharge, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRechargeNotFound
		}
		return nil, fmt.Errorf("failed to lock recharge: %w", err)
	}
	return &recharge, nil
}

func (r *rechargeRepository) Update(recharge *models.WalletRecharge) error {
	if err := r.db.Save(recharge).Error; err != nil {
		return fmt.Errorf("failed to update recharge: %w", err)
	}
	return nil
}

func (r *rechargeRepository) ListByWallet(walletID uint, limit, offset int) ([]models.WalletRecharge, error) {
	var recharges []models.WalletRecharge
	err := r.db.
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&recharges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recharges: %w", err)
	}
	return recharges, nil
}

func (r *rechargeRepository) ExecuteInTransaction(fn func(RechargeRepository, WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&rechargeRepository{db: tx}, &walletRepository{db: tx})
	})
}
