package wallet

import (
	"context"

	"purse/internal/models"
	"purse/internal/repositories"
)

// Service is the wallet account contract. It is the only component allowed
// to create ledger entries; every balance mutation appends an entry and
// updates the cached balance in one database transaction.
type Service interface {
	// Lookups
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	// GetOrCreateWallet lazily creates a wallet on first access.
	GetOrCreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error)
	GetBalance(ctx context.Context, walletID uint) (models.Money, error)
	GetCreditLimit(ctx context.Context, walletID uint) (models.Money, error)

	// CanSpend reports whether amount is within balance plus credit limit.
	// Non-positive amounts are a caller error, not "cannot spend".
	CanSpend(ctx context.Context, walletID uint, amount models.Money) (bool, error)

	// Mutations. Amounts must be positive and in the wallet currency.
	Deposit(ctx context.Context, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error)
	Withdraw(ctx context.Context, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error)

	// DepositTx applies a deposit through an already-open transactional
	// repository, for callers that must commit the deposit atomically with
	// their own state change (the recharge flow).
	DepositTx(repo repositories.WalletRepository, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error)

	// Ledger reads
	GetEntry(ctx context.Context, walletID uint, entryID string) (*models.LedgerEntry, error)
	History(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error)

	// Reconcile verifies the balance against the ledger.
	Reconcile(ctx context.Context, walletID uint) (*ReconciliationReport, error)

	// Administrative soft deletes. Neither touches balances.
	DeactivateWallet(ctx context.Context, walletID uint) error
	DeleteEntry(ctx context.Context, walletID uint, entryID string) error
}
