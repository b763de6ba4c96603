package card

import (
	"errors"
	"time"

	"github.com/perkpass/perkpass/internal/models"
	"github.com/perkpass/perkpass/internal/token"
)

// ErrTokenNotFound indicates a token absent from a card's history. It is a
// defensive assertion: the redeem path only marks tokens it just looked up.
var ErrTokenNotFound = errors.New("token not found in card history")

// Manager owns a card's mutable rotation state. All methods mutate the
// in-memory card; persistence is the caller's concern.
type Manager struct {
	tokens *token.Generator
	window time.Duration
}

// NewManager creates a Manager around a token generator.
func NewManager(tokens *token.Generator) *Manager {
	return &Manager{tokens: tokens, window: tokens.Window()}
}

// NewCard builds a fresh card for a member: new card number, first token,
// and the seed history entry. The caller encrypts the secret before
// persisting.
func (m *Manager) NewCard(memberID uint64, secret string, now time.Time) (*models.Card, *models.CardToken, error) {
	number, errNumber := token.NewCardNumber()
	if errNumber != nil {
		return nil, nil, errNumber
	}
	code, errGen := m.tokens.Generate(secret, now)
	if errGen != nil {
		return nil, nil, errGen
	}
	c := &models.Card{
		MemberID:     memberID,
		CardNumber:   number,
		CurrentToken: code,
		LastRotation: now,
		IsActive:     true,
	}
	seed := &models.CardToken{Token: code, CreatedAt: now}
	return c, seed, nil
}

// RotationDue reports whether the card's natural rotation window has
// elapsed.
func (m *Manager) RotationDue(c *models.Card, now time.Time) bool {
	return now.Sub(c.LastRotation) >= m.window
}

// EnsureFresh rotates the card if its window has elapsed, returning the new
// history entry, or nil when the current token is still fresh.
func (m *Manager) EnsureFresh(c *models.Card, secret string, now time.Time) (*models.CardToken, error) {
	if !m.RotationDue(c, now) {
		return nil, nil
	}
	return m.rotate(c, secret, now)
}

// ForceRotate retires the current token immediately, regardless of elapsed
// time. Used right after a successful redemption so a redeemed token can
// never be presented twice. The natural window restarts from now.
func (m *Manager) ForceRotate(c *models.Card, secret string, now time.Time) (*models.CardToken, error) {
	return m.rotate(c, secret, now)
}

// rotate shifts current to previous and installs the next fresh code. The
// generator skips codes matching the live tokens, so rotation forced
// mid-window never reissues an unexpired token.
func (m *Manager) rotate(c *models.Card, secret string, now time.Time) (*models.CardToken, error) {
	avoid := []string{c.CurrentToken}
	if c.PreviousToken != nil {
		avoid = append(avoid, *c.PreviousToken)
	}
	code, errMint := m.tokens.Mint(secret, now, avoid...)
	if errMint != nil {
		return nil, errMint
	}
	prev := c.CurrentToken
	c.PreviousToken = &prev
	c.CurrentToken = code
	c.LastRotation = now
	return &models.CardToken{CardID: c.ID, Token: code, CreatedAt: now}, nil
}

// MarkUsed flips the matching in-memory history entry to used. The
// authoritative, race-safe flip happens in storage; this keeps the card the
// caller holds consistent with it.
func (m *Manager) MarkUsed(c *models.Card, tokenValue string, usedAt time.Time) error {
	for i := range c.Tokens {
		if c.Tokens[i].Token == tokenValue {
			c.Tokens[i].IsUsed = true
			at := usedAt
			c.Tokens[i].UsedAt = &at
			return nil
		}
	}
	return ErrTokenNotFound
}

// ToggleActive flips the card's active flag and returns the new state.
func (m *Manager) ToggleActive(c *models.Card) bool {
	c.IsActive = !c.IsActive
	return c.IsActive
}
