package models

import "time"

// Card is a member's persistent membership instrument. The secret backing
// token generation is stored encrypted; legacy rows may still hold the raw
// hex secret until the vault migrates them on first read.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	MemberID   uint64 `gorm:"not null;uniqueIndex"`           // Owning member.
	CardNumber string `gorm:"type:text;not null;uniqueIndex"` // Stable user-facing identifier.
	Secret     string `gorm:"type:text;not null"`             // Encrypted token secret (or legacy plaintext hex).

	CurrentToken  string  `gorm:"type:text;not null;index"` // Token displayed right now.
	PreviousToken *string `gorm:"type:text;index"`          // Token from the prior rotation, still redeemable.
	LastRotation  time.Time `gorm:"not null"`               // When the current token was installed.

	IsActive bool `gorm:"not null;default:true"` // Deactivated cards reject all redemptions.

	Tokens []CardToken `gorm:"foreignKey:CardID"` // Bounded rotation history.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// CardToken is one entry in a card's rotation history. Rows double as the
// anti-replay record: a redeemed token flips IsUsed exactly once.
type CardToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key; insertion order.

	CardID uint64 `gorm:"not null;index:idx_card_token,priority:1"`           // Owning card.
	Token  string `gorm:"type:text;not null;index:idx_card_token,priority:2"` // Token value for this rotation.

	IsUsed bool       `gorm:"not null;default:false"` // Whether the token was redeemed.
	UsedAt *time.Time // Redemption time, if redeemed.

	CreatedAt time.Time `gorm:"not null"` // Rotation time that minted this token.
}
