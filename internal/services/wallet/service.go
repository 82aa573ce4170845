package wallet

import (
	"context"
	"errors"
	"fmt"

	"purse/internal/models"
	"purse/internal/repositories"

	"github.com/shopspring/decimal"
)

type service struct {
	repo    repositories.WalletRepository
	cache   CacheOperator
	metrics MetricsCollector
}

// NewService creates a new wallet service
func NewService(repo repositories.WalletRepository, cache CacheOperator, metrics MetricsCollector) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		panic("cache is required")
	}
	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
	}
}

func (s *service) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	// Display read: cache first.
	if w, err := s.cache.GetWallet(ctx, userID); err == nil {
		return w, nil
	}

	w, err := s.repo.GetByUserID(userID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	s.cache.SetWallet(ctx, w)
	return w, nil
}

func (s *service) GetOrCreateWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, error) {
	w, err := s.repo.GetByUserID(userID, false)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, repositories.ErrWalletNotFound) {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	if currency == "" {
		currency = DefaultCurrency
	}
	w = &models.Wallet{
		UserID:   userID,
		Currency: currency,
		IsActive: true,
	}
	if err := s.repo.Create(w); err != nil {
		// Lost a creation race; the unique user index kept one row.
		if errors.Is(err, repositories.ErrDuplicateWallet) {
			return s.repo.GetByUserID(userID, false)
		}
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	s.cache.SetWallet(ctx, w)
	return w, nil
}

func (s *service) GetBalance(ctx context.Context, walletID uint) (models.Money, error) {
	w, err := s.getByID(walletID)
	if err != nil {
		return models.Money{}, err
	}
	return w.GetBalance(), nil
}

func (s *service) GetCreditLimit(ctx context.Context, walletID uint) (models.Money, error) {
	w, err := s.getByID(walletID)
	if err != nil {
		return models.Money{}, err
	}
	return w.GetCreditLimit(), nil
}

func (s *service) CanSpend(ctx context.Context, walletID uint, amount models.Money) (bool, error) {
	// Authoritative read; the cache is never consulted for spend decisions.
	w, err := s.getByID(walletID)
	if err != nil {
		return false, err
	}
	if err := validateAmount(w, amount); err != nil {
		return false, err
	}
	return w.CanSpend(amount.Amount), nil
}

func (s *service) Deposit(ctx context.Context, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry

	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		var err error
		entry, err = s.DepositTx(tx, walletID, amount, source, reason, description)
		return err
	})
	if err != nil {
		s.metrics.RecordError("deposit", err.Error())
		return nil, err
	}

	s.invalidate(ctx, walletID)
	s.metrics.RecordTransaction(models.LedgerEntryCredit, amount.Amount)
	return entry, nil
}

func (s *service) Withdraw(ctx context.Context, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry

	err := s.repo.ExecuteInTransaction(func(tx repositories.WalletRepository) error {
		var err error
		entry, err = s.withdrawTx(tx, walletID, amount, source, reason, description)
		return err
	})
	if err != nil {
		s.metrics.RecordError("withdraw", err.Error())
		return nil, err
	}

	s.invalidate(ctx, walletID)
	s.metrics.RecordTransaction(models.LedgerEntryDebit, amount.Amount)
	return entry, nil
}

// DepositTx re-reads the wallet under a row lock, appends a Credit entry and
// persists the new balance. Callers own the enclosing transaction.
func (s *service) DepositTx(repo repositories.WalletRepository, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error) {
	w, err := lockWallet(repo, walletID)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(w, amount); err != nil {
		return nil, err
	}

	newBalance := w.Balance.Add(amount.Amount)
	entry := &models.LedgerEntry{
		ID:           models.NewLedgerEntryID(),
		WalletID:     w.ID,
		Type:         models.LedgerEntryCredit,
		Amount:       amount.Amount,
		LedgerAmount: newBalance,
		Source:       source,
		Reason:       reason,
		Description:  description,
	}
	if err := repo.AppendEntry(entry); err != nil {
		return nil, err
	}

	oldBalance := w.Balance
	w.Balance = newBalance
	if err := repo.Update(w); err != nil {
		return nil, err
	}

	s.metrics.RecordBalanceChange(w.ID, oldBalance, newBalance)
	return entry, nil
}

// withdrawTx fails with ErrInsufficientBalance when the amount exceeds
// balance plus credit limit; the error aborts the enclosing transaction, so
// neither the entry nor the balance update survives.
func (s *service) withdrawTx(repo repositories.WalletRepository, walletID uint, amount models.Money, source, reason, description string) (*models.LedgerEntry, error) {
	w, err := lockWallet(repo, walletID)
	if err != nil {
		return nil, err
	}
	if err := validateAmount(w, amount); err != nil {
		return nil, err
	}
	if !w.CanSpend(amount.Amount) {
		return nil, ErrInsufficientBalance
	}

	newBalance := w.Balance.Sub(amount.Amount)
	entry := &models.LedgerEntry{
		ID:           models.NewLedgerEntryID(),
		WalletID:     w.ID,
		Type:         models.LedgerEntryDebit,
		Amount:       amount.Amount.Neg(),
		LedgerAmount: newBalance,
		Source:       source,
		Reason:       reason,
		Description:  description,
	}
	if err := repo.AppendEntry(entry); err != nil {
		return nil, err
	}

	oldBalance := w.Balance
	w.Balance = newBalance
	if err := repo.Update(w); err != nil {
		return nil, err
	}

	s.metrics.RecordBalanceChange(w.ID, oldBalance, newBalance)
	return entry, nil
}

func (s *service) GetEntry(ctx context.Context, walletID uint, entryID string) (*models.LedgerEntry, error) {
	entry, err := s.repo.GetEntryByID(walletID, entryID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

func (s *service) History(ctx context.Context, walletID uint, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.repo.EntryHistory(ctx, walletID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

// Reconcile recomputes the signed sum of non-deleted entries and compares
// it against the stored balance and the latest entry's snapshot.
func (s *service) Reconcile(ctx context.Context, walletID uint) (*ReconciliationReport, error) {
	w, err := s.getByID(walletID)
	if err != nil {
		return nil, err
	}

	sum, err := s.repo.SumEntryAmounts(walletID, false)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountEntries(walletID, false)
	if err != nil {
		return nil, err
	}

	latestAmount := decimal.Zero
	if count > 0 {
		latest, err := s.repo.LatestEntry(walletID)
		if err != nil {
			return nil, err
		}
		latestAmount = latest.LedgerAmount
	}

	report := &ReconciliationReport{
		WalletID:           walletID,
		Balance:            w.Balance,
		LedgerSum:          sum,
		LatestLedgerAmount: latestAmount,
		EntryCount:         count,
		Consistent: w.Balance.Equal(sum) &&
			(count == 0 || w.Balance.Equal(latestAmount)),
	}
	if !report.Consistent {
		s.metrics.RecordError("reconcile", "balance_mismatch")
	}
	return report, nil
}

func (s *service) DeactivateWallet(ctx context.Context, walletID uint) error {
	w, err := s.getByID(walletID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(walletID); err != nil {
		return fmt.Errorf("failed to deactivate wallet: %w", err)
	}
	s.cache.InvalidateWallet(ctx, w.UserID)
	return nil
}

func (s *service) DeleteEntry(ctx context.Context, walletID uint, entryID string) error {
	if err := s.repo.SoftDeleteEntry(walletID, entryID); err != nil {
		if errors.Is(err, repositories.ErrEntryNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	return nil
}

// Helpers

func (s *service) getByID(walletID uint) (*models.Wallet, error) {
	w, err := s.repo.GetByID(walletID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return w, nil
}

func lockWallet(repo repositories.WalletRepository, walletID uint) (*models.Wallet, error) {
	w, err := repo.GetByIDForUpdate(walletID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	if !w.IsActive {
		return nil, ErrWalletInactive
	}
	return w, nil
}

func validateAmount(w *models.Wallet, amount models.Money) error {
	if !amount.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.Currency != "" && amount.Currency != w.Currency {
		return fmt.Errorf("%w: wallet is %s, amount is %s",
			models.ErrCurrencyMismatch, w.Currency, amount.Currency)
	}
	return nil
}

func (s *service) invalidate(ctx context.Context, walletID uint) {
	// The cache is keyed by owner, not wallet id; resolve the owner first.
	w, err := s.repo.GetByID(walletID, true)
	if err != nil {
		return
	}
	s.cache.InvalidateWallet(ctx, w.UserID)
}
