package wallet

import (
	"context"

	"purse/internal/models"

	"github.com/shopspring/decimal"
)

// CacheOperator is the wallet snapshot cache. Only display reads touch it;
// spend decisions always re-read the wallet from the store under a lock.
type CacheOperator interface {
	GetWallet(ctx context.Context, userID uint) (*models.Wallet, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint) error
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	RecordTransaction(txType string, amount decimal.Decimal)
	RecordBalanceChange(walletID uint, oldBalance, newBalance decimal.Decimal)
	RecordError(operation, errType string)
}

// ReconciliationReport compares the cached balance against the ledger.
type ReconciliationReport struct {
	WalletID           uint            `json:"wallet_id"`
	Balance            decimal.Decimal `json:"balance"`
	LedgerSum          decimal.Decimal `json:"ledger_sum"`
	LatestLedgerAmount decimal.Decimal `json:"latest_ledger_amount"`
	EntryCount         int64           `json:"entry_count"`
	Consistent         bool            `json:"consistent"`
}
