package models

import (
	"time"

	"gorm.io/datatypes"
)

// Merchant is a participating store whose validator terminals scan member
// tokens. Each merchant configures the discount it offers.
type Merchant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code     string `gorm:"type:text;not null;uniqueIndex"` // Terminal login identifier.
	Name     string `gorm:"type:text;not null"`             // Display name.
	Password string `gorm:"type:text;not null"`             // bcrypt hash for terminal login.

	DiscountPercent float64 `gorm:"type:decimal(5,2);not null"` // Discount offered at this merchant.
	IsActive        bool    `gorm:"not null;default:true"`      // Inactive merchants cannot redeem.

	Settings datatypes.JSON `gorm:"type:json"` // Free-form merchant settings.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
