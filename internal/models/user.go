package models

import (
	"time"
)

// Address is a stored billing address. The wallet core only reads it to
// build the billing snapshot on recharge payments.
type Address struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	FirstName      string    `gorm:"type:varchar(255)" json:"first_name"`
	LastName       string    `gorm:"type:varchar(255)" json:"last_name"`
	CompanyName    string    `gorm:"type:varchar(255)" json:"company_name"`
	StreetAddress1 string    `gorm:"type:varchar(255)" json:"street_address_1"`
	StreetAddress2 string    `gorm:"type:varchar(255)" json:"street_address_2"`
	City           string    `gorm:"type:varchar(255)" json:"city"`
	PostalCode     string    `gorm:"type:varchar(20)" json:"postal_code"`
	CountryCode    string    `gorm:"type:varchar(2)" json:"country_code"`
	CountryArea    string    `gorm:"type:varchar(128)" json:"country_area"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type User struct {
	ID                      uint     `gorm:"primarykey" json:"id"`
	Email                   string   `gorm:"uniqueIndex;not null" json:"email"`
	Password                string   `gorm:"not null" json:"-"`
	FirstName               string   `gorm:"type:varchar(255)" json:"first_name"`
	LastName                string   `gorm:"type:varchar(255)" json:"last_name"`
	Role                    string   `gorm:"default:'user'" json:"role"`
	DefaultBillingAddressID *uint    `json:"-"`
	DefaultBillingAddress   *Address `gorm:"foreignKey:DefaultBillingAddressID" json:"default_billing_address,omitempty"`
	TokenVersion            int      `gorm:"default:1" json:"-"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}
