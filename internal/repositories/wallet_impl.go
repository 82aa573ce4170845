package repositories

import (
	"context"
	"errors"
	"fmt"

	"purse/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type walletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) WalletRepository {
	return &walletRepository{db: db}
}

func (r *walletRepository) scope(includeDeleted bool) *gorm.DB {
	if includeDeleted {
		return r.db
	}
	return r.db.Where("deleted = ?", false)
}

func (r *walletRepository) Create(wallet *models.Wallet) error {
	if err := r.db.Create(wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *walletRepository) GetByID(id uint, includeDeleted bool) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.scope(includeDeleted).First(&wallet, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByUserID(userID uint, includeDeleted bool) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.scope(includeDeleted).Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByCustomerEmail(email, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.
		Joins("JOIN users ON users.id = wallets.user_id").
		Where("users.email = ? AND wallets.currency = ? AND wallets.is_active = ? AND wallets.deleted = ?",
			email, currency, true, false).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by customer: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) GetByIDForUpdate(id uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("deleted = ?", false).
		First(&wallet, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *walletRepository) Update(wallet *models.Wallet) error {
	if err := r.db.Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	return nil
}

// SoftDelete marks the wallet deleted. The row and its ledger are kept.
func (r *walletRepository) SoftDelete(id uint) error {
	result := r.db.Model(&models.Wallet{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]interface{}{"deleted": true, "is_active": false})
	if result.Error != nil {
		return fmt.Errorf("failed to delete wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrWalletNotFound
	}
	return nil
}

func (r *walletRepository) AppendEntry(entry *models.LedgerEntry) error {
	if !entry.SignMatchesType() {
		return fmt.Errorf("%w: amount sign does not match type %s", ErrInvalidEntry, entry.Type)
	}
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *walletRepository) GetEntryByID(walletID uint, entryID string, includeDeleted bool) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.scope(includeDeleted).
		Where("wallet_id = ? AND id = ?", walletID, entryID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *walletRepository) EntryHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND deleted = ?", walletID, false).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

func (r *walletRepository) LatestEntry(walletID uint) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.
		Where("wallet_id = ? AND deleted = ?", walletID, false).
		Order("created_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get latest ledger entry: %w", err)
	}
	return &entry, nil
}

func (r *walletRepository) SumEntryAmounts(walletID uint, includeDeleted bool) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.scope(includeDeleted).
		Model(&models.LedgerEntry{}).
		Where("wallet_id = ?", walletID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (r *walletRepository) CountEntries(walletID uint, includeDeleted bool) (int64, error) {
	var count int64
	err := r.scope(includeDeleted).
		Model(&models.LedgerEntry{}).
		Where("wallet_id = ?", walletID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

// SoftDeleteEntry is an administrative correction. It never rewrites the
// LedgerAmount snapshots of later entries.
func (r *walletRepository) SoftDeleteEntry(walletID uint, entryID string) error {
	result := r.db.Model(&models.LedgerEntry{}).
		Where("wallet_id = ? AND id = ? AND deleted = ?", walletID, entryID, false).
		Update("deleted", true)
	if result.Error != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *walletRepository) ExecuteInTransaction(fn func(WalletRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&walletRepository{db: tx})
	})
}
