package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/perkpass/perkpass/internal/models"
)

// RedemptionStore appends redemption audit records.
type RedemptionStore struct {
	db *gorm.DB
}

// NewRedemptionStore creates a RedemptionStore.
func NewRedemptionStore(db *gorm.DB) *RedemptionStore {
	return &RedemptionStore{db: db}
}

// Append inserts one audit record.
func (s *RedemptionStore) Append(ctx context.Context, rec *models.Redemption) error {
	if errCreate := s.db.WithContext(ctx).Create(rec).Error; errCreate != nil {
		return fmt.Errorf("store: append redemption: %w", errCreate)
	}
	return nil
}

// ListByCard returns a card's audit records, newest first.
func (s *RedemptionStore) ListByCard(ctx context.Context, cardID uint64, limit int) ([]models.Redemption, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Redemption
	errFind := s.db.WithContext(ctx).
		Where("card_id = ?", cardID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if errFind != nil {
		return nil, fmt.Errorf("store: list redemptions: %w", errFind)
	}
	return rows, nil
}
