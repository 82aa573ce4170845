// Package provider abstracts the external payment processor behind the
// recharge flow. The wallet core treats it as an opaque, fallible network
// collaborator: no retries happen here, callers own the retry policy.
package provider

import (
	"context"

	"purse/internal/models"
)

// Result is the processor's verdict on a settle or confirm attempt.
type Result struct {
	Success bool
	// Error carries the processor's human-readable failure message when
	// Success is false.
	Error string
}

// Provider is the external payment processor capability set.
type Provider interface {
	// CreateOrder pre-creates the processor-side order for a payment and
	// fills in ProviderRef and ToConfirm. Idempotent: a payment that
	// already has a ProviderRef is left untouched.
	CreateOrder(ctx context.Context, payment *models.Payment) error
	// Confirm finishes a payment that required a confirmation step.
	Confirm(ctx context.Context, payment *models.Payment) (Result, error)
	// Process settles a payment that needs no separate confirmation.
	Process(ctx context.Context, payment *models.Payment) (Result, error)
}
