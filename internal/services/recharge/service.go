// Package recharge orchestrates wallet top-ups: a pending recharge is
// created, an external payment is attached and pre-processed, and on
// provider success the amount is deposited into the wallet atomically with
// the recharge's terminal status flip.
package recharge

import (
	"context"
	"errors"
	"fmt"
	"log"

	"purse/internal/models"
	"purse/internal/repositories"
	"purse/internal/services/provider"
	"purse/internal/services/wallet"

	"github.com/shopspring/decimal"
)

// Service drives the recharge state machine:
// initiated -> payment_created -> (abandoned | failed | successful).
type Service interface {
	Create(ctx context.Context, walletID uint) (*models.WalletRecharge, error)
	// CreatePayment attaches an external payment for the given gateway and
	// amount and asks the provider to pre-create its order. Retrying with
	// the same recharge and amount reuses the existing payment.
	CreatePayment(ctx context.Context, rechargeID, gatewayName string, amount decimal.Decimal, customerIP string) (*models.WalletRecharge, *models.Payment, error)
	// Complete settles the attached payment and, on success, deposits the
	// recharge amount and marks the recharge successful in one database
	// transaction. On provider failure the recharge becomes failed and a
	// *GatewayError carries the provider's message.
	Complete(ctx context.Context, rechargeID string) (*models.WalletRecharge, error)
	// MarkAbandoned is the hook for the external timeout/cleanup process.
	MarkAbandoned(ctx context.Context, rechargeID string) error
	Get(ctx context.Context, rechargeID string) (*models.WalletRecharge, error)
	ListByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletRecharge, error)
}

type service struct {
	recharges repositories.RechargeRepository
	wallets   repositories.WalletRepository
	payments  repositories.PaymentRepository
	users     repositories.UserRepository
	walletSvc wallet.Service
	provider  provider.Provider
	cache     wallet.CacheOperator
}

// NewService creates a new recharge service
func NewService(
	recharges repositories.RechargeRepository,
	wallets repositories.WalletRepository,
	payments repositories.PaymentRepository,
	users repositories.UserRepository,
	walletSvc wallet.Service,
	paymentProvider provider.Provider,
	cache wallet.CacheOperator,
) Service {
	if recharges == nil || wallets == nil || payments == nil || users == nil {
		panic("repositories are required")
	}
	if walletSvc == nil {
		panic("wallet service is required")
	}
	if paymentProvider == nil {
		panic("payment provider is required")
	}
	return &service{
		recharges: recharges,
		wallets:   wallets,
		payments:  payments,
		users:     users,
		walletSvc: walletSvc,
		provider:  paymentProvider,
		cache:     cache,
	}
}

func (s *service) Create(ctx context.Context, walletID uint) (*models.WalletRecharge, error) {
	if _, err := s.wallets.GetByID(walletID, false); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	recharge := &models.WalletRecharge{
		WalletID: walletID,
		Status:   models.RechargeInitiated,
	}
	if err := s.recharges.Create(recharge); err != nil {
		return nil, err
	}
	return recharge, nil
}

func (s *service) CreatePayment(ctx context.Context, rechargeID, gatewayName string, amount decimal.Decimal, customerIP string) (*models.WalletRecharge, *models.Payment, error) {
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}

	recharge, err := s.get(rechargeID)
	if err != nil {
		return nil, nil, err
	}
	// payment_created is allowed again so a retried call can reattach the
	// same payment; terminal states are not.
	if recharge.Status != models.RechargeInitiated && recharge.Status != models.RechargePaymentCreated {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTransition, recharge.Status)
	}

	w, err := s.wallets.GetByID(recharge.WalletID, false)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, nil, ErrWalletNotFound
		}
		return nil, nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	user, err := s.users.GetByID(w.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get wallet owner: %w", err)
	}

	payment := buildPayment(recharge, w, user, gatewayName, amount, customerIP)
	payment, created, err := s.payments.GetOrCreateByToken(payment)
	if err != nil {
		return nil, nil, err
	}
	if !created && !payment.Total.Equal(amount) {
		return nil, nil, ErrAmountMismatch
	}

	if err := s.provider.CreateOrder(ctx, payment); err != nil {
		// The payment row stays; a retried call reuses it.
		return nil, nil, &GatewayError{Message: err.Error()}
	}
	if err := s.payments.Update(payment); err != nil {
		return nil, nil, err
	}

	recharge.PaymentID = &payment.ID
	recharge.Payment = payment
	recharge.Amount = decimal.NewNullDecimal(amount)
	if recharge.Status == models.RechargeInitiated {
		if !models.CanTransitionRecharge(recharge.Status, models.RechargePaymentCreated) {
			return nil, nil, ErrInvalidTransition
		}
		recharge.Status = models.RechargePaymentCreated
	}
	if err := s.recharges.Update(recharge); err != nil {
		return nil, nil, err
	}

	return recharge, payment, nil
}

func (s *service) Complete(ctx context.Context, rechargeID string) (*models.WalletRecharge, error) {
	recharge, err := s.get(rechargeID)
	if err != nil {
		return nil, err
	}
	if recharge.Status != models.RechargePaymentCreated {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, recharge.Status)
	}
	if recharge.PaymentID == nil || !recharge.Amount.Valid {
		return nil, ErrNoPayment
	}
	payment, err := s.payments.GetByToken(recharge.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, ErrNoPayment
		}
		return nil, err
	}

	var result provider.Result
	if payment.ToConfirm {
		result, err = s.provider.Confirm(ctx, payment)
	} else {
		result, err = s.provider.Process(ctx, payment)
	}
	if err != nil {
		result = provider.Result{Success: false, Error: err.Error()}
	}

	if !result.Success {
		recharge.Status = models.RechargeFailed
		payment.Status = models.PaymentFailed
		if err := s.recharges.Update(recharge); err != nil {
			return nil, err
		}
		if err := s.payments.Update(payment); err != nil {
			log.Printf("recharge %s: failed to mark payment failed: %v", recharge.ID, err)
		}
		return recharge, &GatewayError{Message: result.Error}
	}

	// Deposit and status flip commit together: if the deposit fails the
	// recharge must not read successful.
	err = s.recharges.ExecuteInTransaction(func(recharges repositories.RechargeRepository, wallets repositories.WalletRepository) error {
		// Re-read under lock: a concurrent Complete may have settled the
		// recharge after the status gate above. Exactly one caller gets past
		// this check.
		current, err := recharges.GetByIDForUpdate(recharge.ID)
		if err != nil {
			return err
		}
		if current.Status != models.RechargePaymentCreated {
			return fmt.Errorf("%w: %s", ErrInvalidTransition, current.Status)
		}

		amount := models.NewMoney(recharge.Amount.Decimal, payment.Currency)
		description := fmt.Sprintf("Paid using %s. Txn Id: %s", payment.Gateway, payment.Token)
		if _, err := s.walletSvc.DepositTx(wallets, recharge.WalletID, amount, wallet.SourceApp, wallet.ReasonRecharge, description); err != nil {
			return err
		}
		recharge.Status = models.RechargeSuccessful
		return recharges.Update(recharge)
	})
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to settle recharge: %w", err)
	}

	payment.Status = models.PaymentConfirmed
	if err := s.payments.Update(payment); err != nil {
		log.Printf("recharge %s: failed to mark payment confirmed: %v", recharge.ID, err)
	}

	if s.cache != nil {
		if w, err := s.wallets.GetByID(recharge.WalletID, true); err == nil {
			s.cache.InvalidateWallet(ctx, w.UserID)
		}
	}
	return recharge, nil
}

func (s *service) MarkAbandoned(ctx context.Context, rechargeID string) error {
	recharge, err := s.get(rechargeID)
	if err != nil {
		return err
	}
	if !models.CanTransitionRecharge(recharge.Status, models.RechargeAbandoned) {
		return fmt.Errorf("%w: %s", ErrInvalidTransition, recharge.Status)
	}
	recharge.Status = models.RechargeAbandoned
	return s.recharges.Update(recharge)
}

func (s *service) Get(ctx context.Context, rechargeID string) (*models.WalletRecharge, error) {
	return s.get(rechargeID)
}

func (s *service) ListByWallet(ctx context.Context, walletID uint, limit, offset int) ([]models.WalletRecharge, error) {
	return s.recharges.ListByWallet(walletID, limit, offset)
}

func (s *service) get(rechargeID string) (*models.WalletRecharge, error) {
	recharge, err := s.recharges.GetByID(rechargeID)
	if err != nil {
		if errors.Is(err, repositories.ErrRechargeNotFound) {
			return nil, ErrRechargeNotFound
		}
		return nil, err
	}
	return recharge, nil
}

// buildPayment snapshots billing details onto the payment. The default
// billing address wins; without one the snapshot falls back to the user's
// bare name with empty address fields.
func buildPayment(recharge *models.WalletRecharge, w *models.Wallet, user *models.User, gatewayName string, amount decimal.Decimal, customerIP string) *models.Payment {
	payment := &models.Payment{
		Gateway:      gatewayName,
		Token:        recharge.ID,
		Total:        amount,
		Currency:     w.Currency,
		BillingEmail: user.Email,
		CustomerIP:   customerIP,
	}

	if addr := user.DefaultBillingAddress; addr != nil {
		payment.BillingFirstName = addr.FirstName
		payment.BillingLastName = addr.LastName
		payment.BillingCompanyName = addr.CompanyName
		payment.BillingAddress1 = addr.StreetAddress1
		payment.BillingAddress2 = addr.StreetAddress2
		payment.BillingCity = addr.City
		payment.BillingPostalCode = addr.PostalCode
		payment.BillingCountryCode = addr.CountryCode
		payment.BillingCountryArea = addr.CountryArea
	} else {
		payment.BillingFirstName = user.FirstName
		payment.BillingLastName = user.LastName
	}
	return payment
}
