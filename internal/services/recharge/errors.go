package recharge

import "errors"

// Service errors
var (
	ErrRechargeNotFound  = errors.New("wallet recharge not found")
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrAmountMismatch    = errors.New("recharge payment already created with a different amount")
	ErrNoPayment         = errors.New("recharge has no payment attached")
	ErrInvalidTransition = errors.New("invalid recharge status transition")
)

// GatewayError reports an external payment provider failure. The recharge
// is moved to failed and the provider's message is surfaced to the caller.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string {
	return e.Message
}
