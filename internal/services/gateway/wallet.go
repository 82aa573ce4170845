package gateway

import (
	"context"
	"errors"
	"fmt"

	"purse/internal/models"
	"purse/internal/repositories"
	"purse/internal/services/wallet"
)

// WalletGatewayName identifies the wallet gateway in the registry.
const WalletGatewayName = "wallet"

// RefundPolicy controls how strictly a refund is matched against the
// original debit entry.
type RefundPolicy string

const (
	// RefundPolicyCapped requires the original debit entry to exist and
	// rejects refunds larger than its magnitude. Default.
	RefundPolicyCapped RefundPolicy = "capped"
	// RefundPolicyPermissive only checks that the original entry exists.
	RefundPolicyPermissive RefundPolicy = "permissive"
)

// WalletConfig configures the wallet gateway.
type WalletConfig struct {
	RefundPolicy RefundPolicy
}

// walletGateway pays for orders straight out of the customer's prepaid
// wallet. Authorization is advisory only: capture re-validates spendability,
// so a capture can still fail after a successful authorize if the balance
// changed concurrently.
type walletGateway struct {
	wallets repositories.WalletRepository
	svc     wallet.Service
	config  WalletConfig
}

// NewWalletGateway creates the wallet payment gateway.
func NewWalletGateway(wallets repositories.WalletRepository, svc wallet.Service, config WalletConfig) Gateway {
	if wallets == nil {
		panic("wallet repository is required")
	}
	if svc == nil {
		panic("wallet service is required")
	}
	if config.RefundPolicy == "" {
		config.RefundPolicy = RefundPolicyCapped
	}
	return &walletGateway{
		wallets: wallets,
		svc:     svc,
		config:  config,
	}
}

// getWallet resolves the active wallet for the paying customer, or nil when
// there is none. A missing wallet is a normal outcome, not an error.
func (g *walletGateway) getWallet(data PaymentData) (*models.Wallet, error) {
	w, err := g.wallets.GetByCustomerEmail(data.CustomerEmail, data.Currency)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}

func (g *walletGateway) response(data PaymentData, kind, txID string, success bool, failureMsg string) Response {
	resp := Response{
		IsSuccess:     success,
		Kind:          kind,
		Amount:        data.Amount,
		Currency:      data.Currency,
		TransactionID: txID,
	}
	if !success {
		resp.Error = failureMsg
	}
	return resp
}

func (g *walletGateway) Authorize(ctx context.Context, data PaymentData) (Response, error) {
	w, err := g.getWallet(data)
	if err != nil {
		return Response{}, err
	}

	success := w != nil && data.Amount.IsPositive() && w.CanSpend(data.Amount)
	return g.response(data, KindAuth, data.Token, success, "Unable to authorize transaction"), nil
}

// Void reports success without side effects: wallet payments are
// single-step captures, there is never an uncaptured hold to release.
func (g *walletGateway) Void(ctx context.Context, data PaymentData) (Response, error) {
	return g.response(data, KindVoid, data.Token, true, ""), nil
}

func (g *walletGateway) Capture(ctx context.Context, data PaymentData) (Response, error) {
	w, err := g.getWallet(data)
	if err != nil {
		return Response{}, err
	}

	if w == nil || !data.Amount.IsPositive() || !w.CanSpend(data.Amount) {
		return g.response(data, KindCapture, data.Token, false, "Unable to process capture"), nil
	}

	entry, err := g.svc.Withdraw(ctx, w.ID,
		models.NewMoney(data.Amount, data.Currency),
		wallet.SourceOnlineStore,
		wallet.ReasonOrderPayment,
		fmt.Sprintf("Transaction ID: %s", data.Token),
	)
	if err != nil {
		// Lost the race against a concurrent spend; report a clean failure.
		if errors.Is(err, wallet.ErrInsufficientBalance) {
			return g.response(data, KindCapture, data.Token, false, "Unable to process capture"), nil
		}
		// Persistence failure: fatal, aborts the enclosing payment.
		return Response{}, err
	}

	return g.response(data, KindCapture, entry.ID, true, ""), nil
}

// Confirm verifies the capture entry referenced by the token. Success
// requires the entry amount to match the expected amount exactly.
func (g *walletGateway) Confirm(ctx context.Context, data PaymentData) (Response, error) {
	w, err := g.getWallet(data)
	if err != nil {
		return Response{}, err
	}

	success := false
	if w != nil {
		entry, err := g.svc.GetEntry(ctx, w.ID, data.Token)
		if err != nil && !errors.Is(err, wallet.ErrEntryNotFound) {
			return Response{}, err
		}
		// Debit entries store negative amounts; compare magnitudes.
		success = entry != nil && entry.Amount.Neg().Equal(data.Amount)
	}

	return g.response(data, KindCapture, data.Token, success, "Unable to process capture"), nil
}

func (g *walletGateway) Refund(ctx context.Context, data PaymentData) (Response, error) {
	w, err := g.getWallet(data)
	if err != nil {
		return Response{}, err
	}
	if w == nil || !data.Amount.IsPositive() {
		return g.response(data, KindRefund, data.Token, false, "Unable to process refund"), nil
	}

	debit, err := g.svc.GetEntry(ctx, w.ID, data.Token)
	if err != nil && !errors.Is(err, wallet.ErrEntryNotFound) {
		return Response{}, err
	}
	if debit == nil {
		return g.response(data, KindRefund, data.Token, false, "Unable to process refund"), nil
	}
	if g.config.RefundPolicy == RefundPolicyCapped &&
		data.Amount.GreaterThan(debit.Amount.Neg()) {
		return g.response(data, KindRefund, data.Token, false, "Refund exceeds original charge"), nil
	}

	entry, err := g.svc.Deposit(ctx, w.ID,
		models.NewMoney(data.Amount, data.Currency),
		wallet.SourceOnlineStore,
		fmt.Sprintf("Refund for order %s", data.OrderID),
		fmt.Sprintf("Original debit transaction ID: %s", data.Token),
	)
	if err != nil {
		return Response{}, err
	}

	return g.response(data, KindRefund, entry.ID, true, ""), nil
}

// ProcessPayment delegates to Capture: the wallet has no separate
// authorize-then-capture flow.
func (g *walletGateway) ProcessPayment(ctx context.Context, data PaymentData) (Response, error) {
	return g.Capture(ctx, data)
}
