package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"purse/internal/models"

	"github.com/shopspring/decimal"
	stripe "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/paymentintent"
)

var minorUnitFactor = decimal.NewFromInt(100)

// stripeProvider settles recharge payments through Stripe PaymentIntents.
type stripeProvider struct{}

// NewStripeProvider configures the Stripe client and returns the provider.
func NewStripeProvider(apiKey string) Provider {
	stripe.Key = apiKey
	return &stripeProvider{}
}

func (p *stripeProvider) CreateOrder(ctx context.Context, payment *models.Payment) error {
	if payment.ProviderRef != "" {
		return nil
	}

	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(toMinorUnits(payment.Total)),
		Currency:     stripe.String(strings.ToLower(payment.Currency)),
		Description:  stripe.String(fmt.Sprintf("Wallet recharge %s", payment.Token)),
		ReceiptEmail: stripe.String(payment.BillingEmail),
	}
	params.Context = ctx
	// One intent per recharge, even across retries.
	params.SetIdempotencyKey(payment.Token)

	intent, err := paymentintent.New(params)
	if err != nil {
		return fmt.Errorf("stripe order creation failed: %w", err)
	}

	payment.ProviderRef = intent.ID
	payment.ToConfirm = intent.Status == stripe.PaymentIntentStatusRequiresConfirmation
	return nil
}

func (p *stripeProvider) Confirm(ctx context.Context, payment *models.Payment) (Result, error) {
	if payment.ProviderRef == "" {
		return Result{}, errors.New("payment has no provider reference")
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	intent, err := paymentintent.Confirm(payment.ProviderRef, params)
	if err != nil {
		return declined(err)
	}
	return fromIntentStatus(intent), nil
}

func (p *stripeProvider) Process(ctx context.Context, payment *models.Payment) (Result, error) {
	if payment.ProviderRef == "" {
		return Result{}, errors.New("payment has no provider reference")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := paymentintent.Get(payment.ProviderRef, params)
	if err != nil {
		return declined(err)
	}
	if intent.Status == stripe.PaymentIntentStatusRequiresConfirmation {
		return p.Confirm(ctx, payment)
	}
	return fromIntentStatus(intent), nil
}

// declined turns a Stripe decline into a Result and keeps transport
// failures as errors.
func declined(err error) (Result, error) {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return Result{Success: false, Error: stripeErr.Msg}, nil
	}
	return Result{}, err
}

func fromIntentStatus(intent *stripe.PaymentIntent) Result {
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		return Result{Success: true}
	}
	msg := fmt.Sprintf("payment not completed (status %s)", intent.Status)
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		msg = intent.LastPaymentError.Msg
	}
	return Result{Success: false, Error: msg}
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}
