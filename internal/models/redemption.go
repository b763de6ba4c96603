package models

import "time"

// Redemption is the persisted audit record of one successful redemption.
// It mirrors the receipt returned to the caller; written best-effort after
// the redemption transaction commits.
type Redemption struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	EventID    string  `gorm:"type:text;not null;uniqueIndex"` // Globally unique event identifier.
	CardID     uint64  `gorm:"not null;index"`                 // Redeemed card.
	MemberID   uint64  `gorm:"not null;index"`                 // Card owner.
	MerchantID *uint64 `gorm:"index"`                          // Presenting merchant, if any.

	Token        string `gorm:"type:text;not null"` // Token that was redeemed.
	WindowOffset int    `gorm:"not null"`           // Matched rotation-window offset.

	OfferedDiscount float64 `gorm:"type:decimal(5,2);not null"`  // Discount before tier clamping.
	AppliedDiscount float64 `gorm:"type:decimal(5,2);not null"`  // Discount actually applied.
	OriginalAmount  float64 `gorm:"type:decimal(20,2);not null"` // Amount presented at the till.
	DiscountAmount  float64 `gorm:"type:decimal(20,2);not null"` // Money taken off.
	FinalAmount     float64 `gorm:"type:decimal(20,2);not null"` // Amount due after discount.

	RedeemedAt time.Time `gorm:"not null;index"` // Redemption time.
}
