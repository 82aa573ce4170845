package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction kinds reported back to the generic payment pipeline.
const (
	KindAuth    = "auth"
	KindVoid    = "void"
	KindCapture = "capture"
	KindRefund  = "refund"
)

// PaymentData is the payment context handed to a gateway: who is paying,
// how much, and an opaque token linking back to earlier gateway activity.
type PaymentData struct {
	CustomerEmail string
	CustomerIP    string
	Amount        decimal.Decimal
	Currency      string
	Token         string
	OrderID       string
	ExtraData     map[string]interface{}
}

// Response is the uniform gateway result. Failures are reported with
// IsSuccess false and a human-readable Error; gateways return a Go error
// only for fatal persistence failures that must abort the enclosing
// payment transaction.
type Response struct {
	IsSuccess      bool            `json:"is_success"`
	ActionRequired bool            `json:"action_required"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	TransactionID  string          `json:"transaction_id"`
	Error          string          `json:"error,omitempty"`
}

// Gateway is the capability set every payment method implements.
type Gateway interface {
	// Authorize checks whether the payment could succeed. Never mutates.
	Authorize(ctx context.Context, data PaymentData) (Response, error)
	// Void cancels an uncaptured authorization.
	Void(ctx context.Context, data PaymentData) (Response, error)
	// Capture moves the money.
	Capture(ctx context.Context, data PaymentData) (Response, error)
	// Confirm verifies a previously created capture against the expected
	// amount; it performs no new mutation.
	Confirm(ctx context.Context, data PaymentData) (Response, error)
	// Refund returns captured money to the customer.
	Refund(ctx context.Context, data PaymentData) (Response, error)
	// ProcessPayment runs the gateway's default payment flow.
	ProcessPayment(ctx context.Context, data PaymentData) (Response, error)
}

// NewClientToken returns an opaque token for a client-side session.
func NewClientToken() string {
	return uuid.NewString()
}
