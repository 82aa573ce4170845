package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds a customer's prepaid balance snapshot. Balance is the
// running sum of all non-deleted ledger entries for the wallet; the two are
// updated inside the same database transaction and must never diverge.
type Wallet struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	UserID      uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Balance     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`
	CreditLimit decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"credit_limit"`
	IsActive    bool            `gorm:"not null;default:true" json:"is_active"`
	Deleted     bool            `gorm:"not null;default:false;index" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	// Balance always starts at zero; the ledger is the only way to move it.
	w.Balance = decimal.Zero
	return nil
}

// GetBalance returns the current balance tagged with the wallet currency.
func (w *Wallet) GetBalance() Money {
	return NewMoney(w.Balance, w.Currency)
}

// GetCreditLimit returns the credit limit tagged with the wallet currency.
func (w *Wallet) GetCreditLimit() Money {
	return NewMoney(w.CreditLimit, w.Currency)
}

// SpendableAmount is the balance plus the unused credit limit.
func (w *Wallet) SpendableAmount() decimal.Decimal {
	return w.Balance.Add(w.CreditLimit)
}

// CanSpend reports whether a withdrawal of amount is within the spendable
// amount. Callers must validate that amount is positive before asking.
func (w *Wallet) CanSpend(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(w.SpendableAmount())
}
