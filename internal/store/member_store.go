package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/perkpass/perkpass/internal/models"
)

// Entitlement is the subscription-tier view the redemption path consumes.
type Entitlement struct {
	TierName           string
	IsActive           bool
	DiscountCapPercent float64
	IsUnlimited        bool
}

// MemberStore reads member and tier records.
type MemberStore struct {
	db *gorm.DB
}

// NewMemberStore creates a MemberStore.
func NewMemberStore(db *gorm.DB) *MemberStore {
	return &MemberStore{db: db}
}

// FindByEmail returns a member by login email, or nil when absent.
func (s *MemberStore) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var m models.Member
	errFind := s.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: find member by email: %w", errFind)
	}
	return &m, nil
}

// GetEntitlement resolves a member's subscription entitlement, or nil when
// the member does not exist. A member without a tier, or an inactive
// member, yields an inactive entitlement.
func (s *MemberStore) GetEntitlement(ctx context.Context, memberID uint64) (*Entitlement, error) {
	var m models.Member
	errFind := s.db.WithContext(ctx).Preload("Tier").First(&m, memberID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: get entitlement: %w", errFind)
	}

	ent := &Entitlement{IsActive: m.IsActive && m.Tier != nil}
	if m.Tier != nil {
		ent.TierName = m.Tier.Name
		ent.DiscountCapPercent = m.Tier.DiscountCapPercent
		ent.IsUnlimited = m.Tier.IsUnlimited
	}
	return ent, nil
}
