package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recharge statuses
const (
	RechargeInitiated      = "initiated"
	RechargePaymentCreated = "payment_created"
	RechargeAbandoned      = "abandoned"
	RechargeFailed         = "failed"
	RechargeSuccessful     = "successful"
)

// rechargeTransitions defines the forward-only state machine.
var rechargeTransitions = map[string][]string{
	RechargeInitiated:      {RechargePaymentCreated, RechargeAbandoned},
	RechargePaymentCreated: {RechargeAbandoned, RechargeFailed, RechargeSuccessful},
}

// CanTransitionRecharge reports whether a recharge may move from one status
// to another. Terminal statuses have no outgoing transitions.
func CanTransitionRecharge(from, to string) bool {
	for _, next := range rechargeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// WalletRecharge is a financial audit record of a top-up attempt. It is
// never deleted. Amount stays null until a payment method is chosen.
type WalletRecharge struct {
	ID        string              `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	WalletID  uint                `gorm:"index;not null" json:"wallet_id"`
	PaymentID *uint               `gorm:"index" json:"payment_id,omitempty"`
	Payment   *Payment            `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
	Amount    decimal.NullDecimal `gorm:"type:decimal(20,2)" json:"amount"`
	Status    string              `gorm:"type:varchar(40);index;not null;default:'initiated'" json:"status"`
}

func (r *WalletRecharge) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = RechargeInitiated
	}
	return nil
}
