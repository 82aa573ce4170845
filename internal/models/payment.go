package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentFailed    = "failed"
)

// Payment is the generic payment record a recharge attaches itself to. The
// wallet core treats the external processor behind it as an opaque
// capability; it only reads and writes the amount, token and gateway.
// Token is deterministic (the recharge id) so retried payment creation
// reuses the same row instead of creating a duplicate.
type Payment struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Gateway     string          `gorm:"type:varchar(40);not null" json:"gateway"`
	Token       string          `gorm:"uniqueIndex;not null" json:"token"`
	Total       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`
	Status      string          `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	ToConfirm   bool            `gorm:"not null;default:false" json:"to_confirm"`
	ProviderRef string          `gorm:"type:varchar(255)" json:"provider_ref"`

	// Billing snapshot taken at payment creation time.
	BillingEmail       string `gorm:"type:varchar(255)" json:"billing_email"`
	BillingFirstName   string `gorm:"type:varchar(255)" json:"billing_first_name"`
	BillingLastName    string `gorm:"type:varchar(255)" json:"billing_last_name"`
	BillingCompanyName string `gorm:"type:varchar(255)" json:"billing_company_name"`
	BillingAddress1    string `gorm:"type:varchar(255)" json:"billing_address_1"`
	BillingAddress2    string `gorm:"type:varchar(255)" json:"billing_address_2"`
	BillingCity        string `gorm:"type:varchar(255)" json:"billing_city"`
	BillingPostalCode  string `gorm:"type:varchar(20)" json:"billing_postal_code"`
	BillingCountryCode string `gorm:"type:varchar(2)" json:"billing_country_code"`
	BillingCountryArea string `gorm:"type:varchar(128)" json:"billing_country_area"`

	CustomerIP string `gorm:"type:varchar(45)" json:"customer_ip"`
	ExtraData  JSON   `gorm:"type:jsonb" json:"extra_data"`
}
