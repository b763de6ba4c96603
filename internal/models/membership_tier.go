package models

import (
	"time"

	"gorm.io/datatypes"
)

// MembershipTier defines a subscription level and the discount it is
// entitled to. The unlimited tier bypasses the discount cap entirely.
type MembershipTier struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name               string  `gorm:"type:text;not null;uniqueIndex"` // Tier name.
	DiscountCapPercent float64 `gorm:"type:decimal(5,2);not null"`     // Maximum discount percentage.
	IsUnlimited        bool    `gorm:"not null;default:false"`         // Top tier; offered discounts apply uncapped.

	Perks datatypes.JSON `gorm:"type:json"` // Free-form tier perk metadata.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
