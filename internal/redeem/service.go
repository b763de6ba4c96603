package redeem

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/perkpass/perkpass/internal/card"
	"github.com/perkpass/perkpass/internal/events"
	"github.com/perkpass/perkpass/internal/models"
	"github.com/perkpass/perkpass/internal/money"
	"github.com/perkpass/perkpass/internal/store"
	"github.com/perkpass/perkpass/internal/token"
	"github.com/perkpass/perkpass/internal/vault"
)

// Receipt is the immutable outcome of one successful redemption.
type Receipt struct {
	CardNumber      string
	TierName        string
	OfferedDiscount decimal.Decimal
	AppliedDiscount decimal.Decimal
	Original        decimal.Decimal
	DiscountAmount  decimal.Decimal
	FinalAmount     decimal.Decimal
	WindowOffset    int
	RedeemedAt      time.Time
}

// CardView is the member-facing card state returned by FetchCard.
type CardView struct {
	CardNumber       string
	CurrentToken     string
	RotationDeadline time.Time
	IsActive         bool
}

// Deps wires the collaborators of a Service.
type Deps struct {
	Cards       *store.CardStore
	Members     *store.MemberStore
	Merchants   *store.MerchantStore
	Redemptions *store.RedemptionStore
	Vault       *vault.Vault
	Tokens      *token.Generator
	Events      *events.Publisher
	Tolerance   int
}

// Service orchestrates the membership-card operations: card issuance,
// rotation-on-read, and the redemption flow. It holds no mutable card state
// between calls; everything lives in the store.
type Service struct {
	cards       *store.CardStore
	members     *store.MemberStore
	merchants   *store.MerchantStore
	redemptions *store.RedemptionStore
	vault       *vault.Vault
	tokens      *token.Generator
	manager     *card.Manager
	events      *events.Publisher
	tolerance   int
	now         func() time.Time
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	tolerance := deps.Tolerance
	if tolerance <= 0 {
		tolerance = 1
	}
	return &Service{
		cards:       deps.Cards,
		members:     deps.Members,
		merchants:   deps.Merchants,
		redemptions: deps.Redemptions,
		vault:       deps.Vault,
		tokens:      deps.Tokens,
		manager:     card.NewManager(deps.Tokens),
		events:      deps.Events,
		tolerance:   tolerance,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateCard mints a card for a member: fresh secret, first token, seeded
// history. Fails with ErrCardExists when the member already holds one.
func (s *Service) CreateCard(ctx context.Context, memberID uint64) (*CardView, error) {
	existing, errFind := s.cards.FindByMember(ctx, memberID)
	if errFind != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errFind)
	}
	if existing != nil {
		return nil, ErrCardExists
	}

	secret, errSecret := token.NewSecret()
	if errSecret != nil {
		return nil, errSecret
	}
	now := s.now()
	c, seed, errNew := s.manager.NewCard(memberID, secret, now)
	if errNew != nil {
		return nil, errNew
	}
	ciphertext, errEncrypt := s.vault.Encrypt(secret)
	if errEncrypt != nil {
		return nil, errEncrypt
	}
	c.Secret = ciphertext

	if errCreate := s.cards.Create(ctx, c, seed); errCreate != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errCreate)
	}
	return s.view(c), nil
}

// FetchCard returns the member's card, rotating first when the window has
// elapsed so clients always see a live token.
func (s *Service) FetchCard(ctx context.Context, memberID uint64) (*CardView, error) {
	c, errFind := s.cards.FindByMember(ctx, memberID)
	if errFind != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errFind)
	}
	if c == nil {
		return nil, ErrCardNotFound
	}
	if !c.IsActive {
		return s.view(c), nil
	}

	secret, errSecret := s.resolveSecret(ctx, c)
	if errSecret != nil {
		return nil, errSecret
	}
	entry, errFresh := s.manager.EnsureFresh(c, secret, s.now())
	if errFresh != nil {
		return nil, errFresh
	}
	if entry != nil {
		if errSave := s.cards.SaveRotation(ctx, c, entry); errSave != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errSave)
		}
	}
	return s.view(c), nil
}

// Redeem validates a scanned token and applies the tier-gated discount.
// Either the whole attempt commits (receipt returned, token retired) or it
// fails with a typed error and no mutation is visible.
func (s *Service) Redeem(ctx context.Context, scannedToken string, amount float64, rctx RedemptionContext) (*Receipt, error) {
	now := s.now()
	scanned := strings.TrimSpace(scannedToken)
	if scanned == "" || amount <= 0 {
		return nil, ErrInvalidInput
	}

	c, errFind := s.cards.FindByToken(ctx, scanned)
	if errFind != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errFind)
	}
	if c == nil {
		log.WithField("token", maskToken(scanned)).Debug("token not recognized")
		return nil, ErrTokenNotRecognized
	}

	entry := findHistoryEntry(c, scanned)
	if entry == nil {
		return nil, ErrTokenNotRecognized
	}
	if entry.IsUsed {
		log.WithFields(log.Fields{"card": c.CardNumber, "token": maskToken(scanned)}).Debug("replay rejected")
		return nil, ErrTokenAlreadyUsed
	}

	secret, errSecret := s.resolveSecret(ctx, c)
	if errSecret != nil {
		return nil, errSecret
	}
	// Freshness is judged from when the token was installed, not from which
	// window's code it borrows: forced rotations mint ahead of the clock.
	valid, offset, errValidate := s.tokens.Validate(scanned, secret, entry.CreatedAt, now, s.tolerance)
	if errValidate != nil {
		return nil, errValidate
	}
	if !valid {
		return nil, ErrTokenExpiredOrInvalid
	}

	ent, errEnt := s.members.GetEntitlement(ctx, c.MemberID)
	if errEnt != nil {
		return nil, fmt.Errorf("%w: %v", ErrEntitlementUnavailable, errEnt)
	}
	if ent == nil || !ent.IsActive {
		return nil, ErrEntitlementInactive
	}

	tierCap := decimal.NewFromFloat(ent.DiscountCapPercent)
	offered := tierCap
	var merchantID *uint64
	if id, ok := rctx.Merchant(); ok {
		merchant, errMerchant := s.merchants.GetByID(ctx, id)
		if errMerchant != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errMerchant)
		}
		if merchant == nil || !merchant.IsActive {
			return nil, fmt.Errorf("%w: unknown or inactive merchant", ErrInvalidInput)
		}
		offered = decimal.NewFromFloat(merchant.DiscountPercent)
		merchantID = &merchant.ID
	}
	applied := money.ClampDiscount(offered, tierCap, ent.IsUnlimited)

	original := decimal.NewFromFloat(amount)
	discountAmount, finalAmount := money.ComputeAmounts(original, applied)

	if errMark := s.manager.MarkUsed(c, scanned, now); errMark != nil {
		return nil, errMark
	}
	rotate := func(fresh *models.Card) (*models.CardToken, error) {
		return s.manager.ForceRotate(fresh, secret, now)
	}
	if errCommit := s.cards.CommitRedemption(ctx, c, scanned, now, rotate); errCommit != nil {
		switch {
		case errors.Is(errCommit, store.ErrTokenUsed):
			// A concurrent attempt won the conditional update; its verdict
			// is authoritative.
			return nil, ErrTokenAlreadyUsed
		case errors.Is(errCommit, store.ErrTokenMissing):
			return nil, ErrTokenNotRecognized
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errCommit)
		}
	}

	receipt := &Receipt{
		CardNumber:      c.CardNumber,
		TierName:        ent.TierName,
		OfferedDiscount: offered,
		AppliedDiscount: applied,
		Original:        original,
		DiscountAmount:  discountAmount,
		FinalAmount:     finalAmount,
		WindowOffset:    offset,
		RedeemedAt:      now,
	}
	s.afterCommit(ctx, c, receipt, merchantID, scanned)
	return receipt, nil
}

// ToggleActive flips the card's active state and returns the new state.
func (s *Service) ToggleActive(ctx context.Context, memberID uint64) (bool, error) {
	c, errFind := s.cards.FindByMember(ctx, memberID)
	if errFind != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, errFind)
	}
	if c == nil {
		return false, ErrCardNotFound
	}
	active := s.manager.ToggleActive(c)
	if errSave := s.cards.Save(ctx, c); errSave != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, errSave)
	}
	return active, nil
}

// ResetCard hard-deletes the member's card. The next CreateCard starts from
// a fresh secret.
func (s *Service) ResetCard(ctx context.Context, memberID uint64) error {
	if errDelete := s.cards.Delete(ctx, memberID); errDelete != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, errDelete)
	}
	return nil
}

// ListRedemptions returns the member's redemption audit records, newest
// first.
func (s *Service) ListRedemptions(ctx context.Context, memberID uint64, limit int) ([]models.Redemption, error) {
	c, errFind := s.cards.FindByMember(ctx, memberID)
	if errFind != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errFind)
	}
	if c == nil {
		return nil, ErrCardNotFound
	}
	rows, errList := s.redemptions.ListByCard(ctx, c.ID, limit)
	if errList != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, errList)
	}
	return rows, nil
}

// resolveSecret decrypts the card secret, transparently migrating legacy
// plaintext rows back to ciphertext.
func (s *Service) resolveSecret(ctx context.Context, c *models.Card) (string, error) {
	return s.vault.ResolveSecret(ctx, c.Secret, func(pctx context.Context, ciphertext string) error {
		if errUpdate := s.cards.UpdateSecret(pctx, c.ID, ciphertext); errUpdate != nil {
			return errUpdate
		}
		c.Secret = ciphertext
		return nil
	})
}

// afterCommit runs the best-effort post-commit side effects: the audit
// record and the redemption event. Nothing here may fail an already
// committed redemption.
func (s *Service) afterCommit(ctx context.Context, c *models.Card, r *Receipt, merchantID *uint64, scanned string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("redemption side effects panicked")
		}
	}()

	eventID := uuid.NewString()
	if s.redemptions != nil {
		record := &models.Redemption{
			EventID:         eventID,
			CardID:          c.ID,
			MemberID:        c.MemberID,
			MerchantID:      merchantID,
			Token:           scanned,
			WindowOffset:    r.WindowOffset,
			OfferedDiscount: r.OfferedDiscount.InexactFloat64(),
			AppliedDiscount: r.AppliedDiscount.InexactFloat64(),
			OriginalAmount:  r.Original.InexactFloat64(),
			DiscountAmount:  r.DiscountAmount.InexactFloat64(),
			FinalAmount:     r.FinalAmount.InexactFloat64(),
			RedeemedAt:      r.RedeemedAt,
		}
		if errAppend := s.redemptions.Append(ctx, record); errAppend != nil {
			log.WithError(errAppend).WithField("card", c.CardNumber).Warn("append redemption audit failed")
		}
	}

	s.events.PublishRedemption(ctx, events.RedemptionEvent{
		EventID:         eventID,
		CardNumber:      c.CardNumber,
		MemberID:        c.MemberID,
		MerchantID:      merchantID,
		OfferedDiscount: r.OfferedDiscount.InexactFloat64(),
		AppliedDiscount: r.AppliedDiscount.InexactFloat64(),
		OriginalAmount:  r.Original.InexactFloat64(),
		DiscountAmount:  r.DiscountAmount.InexactFloat64(),
		FinalAmount:     r.FinalAmount.InexactFloat64(),
		WindowOffset:    r.WindowOffset,
		RedeemedAt:      r.RedeemedAt,
	})
}

// view builds the member-facing card state.
func (s *Service) view(c *models.Card) *CardView {
	return &CardView{
		CardNumber:       c.CardNumber,
		CurrentToken:     c.CurrentToken,
		RotationDeadline: c.LastRotation.Add(s.tokens.Window()),
		IsActive:         c.IsActive,
	}
}

// findHistoryEntry returns the history entry carrying the token, preferring
// the newest when a cycle ever repeats a value.
func findHistoryEntry(c *models.Card, tokenValue string) *models.CardToken {
	for i := len(c.Tokens) - 1; i >= 0; i-- {
		if c.Tokens[i].Token == tokenValue {
			return &c.Tokens[i]
		}
	}
	return nil
}

// maskToken obscures a token for logging.
func maskToken(tokenValue string) string {
	if len(tokenValue) <= 4 {
		return "****"
	}
	return tokenValue[:2] + "****" + tokenValue[len(tokenValue)-2:]
}
