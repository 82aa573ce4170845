package repositories

import (
	"context"
	"errors"

	"purse/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrEntryNotFound    = errors.New("ledger entry not found")
	ErrDuplicateWallet  = errors.New("wallet already exists")
	ErrInvalidEntry     = errors.New("invalid ledger entry")
	ErrRechargeNotFound = errors.New("wallet recharge not found")
	ErrPaymentNotFound  = errors.New("payment not found")
)

// WalletRepository defines database access for wallets and their ledger.
// Soft-deleted rows are excluded unless the caller passes includeDeleted;
// there is no ambient soft-delete scoping.
type WalletRepository interface {
	// Wallet row operations
	Create(wallet *models.Wallet) error
	GetByID(id uint, includeDeleted bool) (*models.Wallet, error)
	GetByUserID(userID uint, includeDeleted bool) (*models.Wallet, error)
	// GetByCustomerEmail resolves the active, non-deleted wallet for a
	// customer email and currency. Used by the payment gateway adapter.
	GetByCustomerEmail(email, currency string) (*models.Wallet, error)
	// GetByIDForUpdate reads a wallet under a row lock. Only meaningful
	// inside ExecuteInTransaction; the lock is held until commit.
	GetByIDForUpdate(id uint) (*models.Wallet, error)
	Update(wallet *models.Wallet) error
	SoftDelete(id uint) error

	// Ledger entry operations (append-only; entries are never updated)
	AppendEntry(entry *models.LedgerEntry) error
	GetEntryByID(walletID uint, entryID string, includeDeleted bool) (*models.LedgerEntry, error)
	EntryHistory(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error)
	LatestEntry(walletID uint) (*models.LedgerEntry, error)
	SumEntryAmounts(walletID uint, includeDeleted bool) (decimal.Decimal, error)
	CountEntries(walletID uint, includeDeleted bool) (int64, error)
	SoftDeleteEntry(walletID uint, entryID string) error

	// ExecuteInTransaction runs fn against a transaction-scoped repository.
	// Returning an error from fn rolls back everything fn did.
	ExecuteInTransaction(fn func(WalletRepository) error) error
}
