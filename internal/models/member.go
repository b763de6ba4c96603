package models

import "time"

// Member represents a subscriber who can hold one membership card.
type Member struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Login identifier.
	Name     string `gorm:"type:text;not null"`             // Display name.
	Password string `gorm:"type:text;not null"`             // bcrypt hash.

	TierID *uint64         `gorm:"index"`                 // Subscription tier, if any.
	Tier   *MembershipTier `gorm:"foreignKey:TierID"`     // Tier record.
	IsActive bool          `gorm:"not null;default:true"` // Inactive members cannot redeem.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
