package models

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Ledger entry types
const (
	LedgerEntryCredit = "Credit"
	LedgerEntryDebit  = "Debit"
)

// LedgerEntry is an immutable record of a single balance-affecting event.
// Amount is signed: positive for credits, negative for debits, and the sign
// must match Type. LedgerAmount is the wallet balance immediately after the
// entry was applied, kept so the balance can be audited independently of
// the cached Wallet.Balance. Entries are never updated; soft-delete exists
// only for administrative correction and never rewrites later LedgerAmounts.
type LedgerEntry struct {
	ID           string          `gorm:"type:varchar(26);primarykey" json:"id"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
	WalletID     uint            `gorm:"index;not null" json:"wallet_id"`
	Type         string          `gorm:"type:varchar(10);index;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	LedgerAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"ledger_amount"`
	Source       string          `gorm:"type:varchar(40)" json:"source"`
	Reason       string          `gorm:"type:varchar(100)" json:"reason"`
	Description  string          `gorm:"type:varchar(255)" json:"description"`
	Deleted      bool            `gorm:"not null;default:false;index" json:"-"`
}

// NewLedgerEntryID returns a time-ordered random identifier, unique
// independent of insertion order.
func NewLedgerEntryID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

func (e *LedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = NewLedgerEntryID()
	}
	return nil
}

// SignMatchesType reports whether the signed amount agrees with the type
// tag: credits strictly positive, debits strictly negative.
func (e *LedgerEntry) SignMatchesType() bool {
	switch e.Type {
	case LedgerEntryCredit:
		return e.Amount.IsPositive()
	case LedgerEntryDebit:
		return e.Amount.IsNegative()
	}
	return false
}
