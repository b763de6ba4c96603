package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/perkpass/perkpass/internal/models"
)

// MerchantStore reads the participating-merchant directory.
type MerchantStore struct {
	db *gorm.DB
}

// NewMerchantStore creates a MerchantStore.
func NewMerchantStore(db *gorm.DB) *MerchantStore {
	return &MerchantStore{db: db}
}

// GetByID returns a merchant, or nil when absent.
func (s *MerchantStore) GetByID(ctx context.Context, id uint64) (*models.Merchant, error) {
	var m models.Merchant
	errFind := s.db.WithContext(ctx).First(&m, id).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get merchant: %w", errFind)
	}
	return &m, nil
}

// GetByCode returns a merchant by its terminal login code, or nil when
// absent.
func (s *MerchantStore) GetByCode(ctx context.Context, code string) (*models.Merchant, error) {
	var m models.Merchant
	errFind := s.db.WithContext(ctx).Where("code = ?", code).First(&m).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get merchant by code: %w", errFind)
	}
	return &m, nil
}
