package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/perkpass/perkpass/internal/models"
)

// SeedTiers installs the default membership tiers when none exist yet.
func SeedTiers(ctx context.Context, db *gorm.DB) error {
	var count int64
	if errCount := db.WithContext(ctx).Model(&models.MembershipTier{}).Count(&count).Error; errCount != nil {
		return fmt.Errorf("store: count tiers: %w", errCount)
	}
	if count > 0 {
		return nil
	}

	tiers := []models.MembershipTier{
		{Name: "classic", DiscountCapPercent: 10},
		{Name: "plus", DiscountCapPercent: 25},
		{Name: "black", DiscountCapPercent: 100, IsUnlimited: true},
	}
	if errCreate := db.WithContext(ctx).Create(&tiers).Error; errCreate != nil {
		return fmt.Errorf("store: seed tiers: %w", errCreate)
	}
	return nil
}
