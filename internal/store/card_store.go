package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/perkpass/perkpass/internal/db"
	"github.com/perkpass/perkpass/internal/models"
)

// Storage-level redemption outcomes.
var (
	// ErrTokenUsed reports a conditional mark-used that lost: the entry was
	// already used when the update ran.
	ErrTokenUsed = errors.New("store: token already used")
	// ErrTokenMissing reports a mark-used against a token with no history
	// entry on the card.
	ErrTokenMissing = errors.New("store: token has no history entry")
)

// CardStore persists cards and their bounded rotation history.
type CardStore struct {
	db          *gorm.DB
	historySize int
}

// NewCardStore creates a CardStore keeping historySize entries per card.
func NewCardStore(db *gorm.DB, historySize int) *CardStore {
	if historySize < 2 {
		historySize = 2
	}
	return &CardStore{db: db, historySize: historySize}
}

// Create inserts a new card together with its seed history entry.
func (s *CardStore) Create(ctx context.Context, c *models.Card, seed *models.CardToken) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errCreate := tx.Create(c).Error; errCreate != nil {
			return fmt.Errorf("store: create card: %w", errCreate)
		}
		seed.CardID = c.ID
		if errSeed := tx.Create(seed).Error; errSeed != nil {
			return fmt.Errorf("store: seed history: %w", errSeed)
		}
		return nil
	})
}

// FindByMember returns the member's card with its history, or nil when the
// member holds no card.
func (s *CardStore) FindByMember(ctx context.Context, memberID uint64) (*models.Card, error) {
	var c models.Card
	errFind := s.db.WithContext(ctx).
		Preload("Tokens", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("member_id = ?", memberID).
		First(&c).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find card by member: %w", errFind)
	}
	return &c, nil
}

// FindByToken returns the active card whose current or previous token equals
// the value, or nil when no card matches. The oldest card wins if the short
// code space ever collides across cards.
func (s *CardStore) FindByToken(ctx context.Context, tokenValue string) (*models.Card, error) {
	var c models.Card
	errFind := s.db.WithContext(ctx).
		Preload("Tokens", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("is_active = ?", true).
		Where("current_token = ? OR previous_token = ?", tokenValue, tokenValue).
		Order("id ASC").
		First(&c).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find card by token: %w", errFind)
	}
	return &c, nil
}

// SaveRotation persists a card's rotated state plus its new history entry
// and trims the history to capacity.
func (s *CardStore) SaveRotation(ctx context.Context, c *models.Card, entry *models.CardToken) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errSave := s.saveRotationState(tx, c); errSave != nil {
			return errSave
		}
		entry.CardID = c.ID
		if errCreate := tx.Create(entry).Error; errCreate != nil {
			return fmt.Errorf("store: append history: %w", errCreate)
		}
		return s.trimHistory(tx, c.ID)
	})
}

// Save persists mutable card flags outside the rotation path.
func (s *CardStore) Save(ctx context.Context, c *models.Card) error {
	errSave := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"is_active":  c.IsActive,
			"updated_at": time.Now().UTC(),
		}).Error
	if errSave != nil {
		return fmt.Errorf("store: save card: %w", errSave)
	}
	return nil
}

// Delete hard-deletes a member's card and its history.
func (s *CardStore) Delete(ctx context.Context, memberID uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Card
		if errFind := tx.Where("member_id = ?", memberID).First(&c).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("store: find card for delete: %w", errFind)
		}
		if errTokens := tx.Where("card_id = ?", c.ID).Delete(&models.CardToken{}).Error; errTokens != nil {
			return fmt.Errorf("store: delete history: %w", errTokens)
		}
		if errCard := tx.Delete(&c).Error; errCard != nil {
			return fmt.Errorf("store: delete card: %w", errCard)
		}
		return nil
	})
}

// CommitRedemption atomically retires a redeemed token: it flips the history
// entry to used only if it was still unused, rotates, appends the new
// history entry, and trims. A lost conditional update surfaces ErrTokenUsed,
// which callers must treat as authoritative. The rotation runs via rotate on
// the card row reloaded inside the transaction, so a concurrent commit of
// the card's other live token cannot be clobbered by stale in-memory
// pointers; c is synced with the committed state on success.
func (s *CardStore) CommitRedemption(ctx context.Context, c *models.Card, usedToken string, usedAt time.Time, rotate func(*models.Card) (*models.CardToken, error)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SQLite serializes writers on its own; the row lock is a Postgres
		// concern.
		reload := tx
		if !db.IsSQLite(tx) {
			reload = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var fresh models.Card
		if errFind := reload.First(&fresh, c.ID).Error; errFind != nil {
			return fmt.Errorf("store: reload card: %w", errFind)
		}

		res := tx.Model(&models.CardToken{}).
			Where("card_id = ? AND token = ? AND is_used = ?", fresh.ID, usedToken, false).
			Updates(map[string]any{"is_used": true, "used_at": usedAt})
		if res.Error != nil {
			return fmt.Errorf("store: mark token used: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if errCount := tx.Model(&models.CardToken{}).
				Where("card_id = ? AND token = ?", fresh.ID, usedToken).
				Count(&count).Error; errCount != nil {
				return fmt.Errorf("store: verify token entry: %w", errCount)
			}
			if count == 0 {
				return ErrTokenMissing
			}
			return ErrTokenUsed
		}

		entry, errRotate := rotate(&fresh)
		if errRotate != nil {
			return errRotate
		}
		if errSave := s.saveRotationState(tx, &fresh); errSave != nil {
			return errSave
		}
		entry.CardID = fresh.ID
		if errCreate := tx.Create(entry).Error; errCreate != nil {
			return fmt.Errorf("store: append history: %w", errCreate)
		}
		if errTrim := s.trimHistory(tx, fresh.ID); errTrim != nil {
			return errTrim
		}

		c.CurrentToken = fresh.CurrentToken
		c.PreviousToken = fresh.PreviousToken
		c.LastRotation = fresh.LastRotation
		return nil
	})
}

// saveRotationState writes the rotation pointer fields of a card.
func (s *CardStore) saveRotationState(tx *gorm.DB, c *models.Card) error {
	errSave := tx.Model(&models.Card{}).
		Where("id = ?", c.ID).
		Updates(map[string]any{
			"current_token":  c.CurrentToken,
			"previous_token": c.PreviousToken,
			"last_rotation":  c.LastRotation,
			"updated_at":     time.Now().UTC(),
		}).Error
	if errSave != nil {
		return fmt.Errorf("store: save rotation: %w", errSave)
	}
	return nil
}

// trimHistory evicts the oldest history rows beyond capacity, by insertion
// order. Capacity is at least 2, so the rows behind the current and
// previous pointers always survive.
func (s *CardStore) trimHistory(tx *gorm.DB, cardID uint64) error {
	keep := tx.Session(&gorm.Session{NewDB: true}).
		Model(&models.CardToken{}).
		Select("id").
		Where("card_id = ?", cardID).
		Order("id DESC").
		Limit(s.historySize)
	errTrim := tx.Where("card_id = ? AND id NOT IN (?)", cardID, keep).
		Delete(&models.CardToken{}).Error
	if errTrim != nil {
		return fmt.Errorf("store: trim history: %w", errTrim)
	}
	return nil
}

// UpdateSecret persists a migrated secret ciphertext.
func (s *CardStore) UpdateSecret(ctx context.Context, cardID uint64, ciphertext string) error {
	errSave := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ?", cardID).
		Update("secret", ciphertext).Error
	if errSave != nil {
		return fmt.Errorf("store: update secret: %w", errSave)
	}
	return nil
}
