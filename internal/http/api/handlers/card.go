package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perkpass/perkpass/internal/redeem"
)

// CardHandler handles member card endpoints.
type CardHandler struct {
	svc *redeem.Service
}

// NewCardHandler constructs a CardHandler.
func NewCardHandler(svc *redeem.Service) *CardHandler {
	return &CardHandler{svc: svc}
}

// cardDTO defines the member-facing card payload.
type cardDTO struct {
	CardNumber       string    `json:"card_number"`
	CurrentToken     string    `json:"current_token"`
	RotationDeadline time.Time `json:"rotation_deadline"`
	IsActive         bool      `json:"is_active"`
}

func toCardDTO(view *redeem.CardView) cardDTO {
	return cardDTO{
		CardNumber:       view.CardNumber,
		CurrentToken:     view.CurrentToken,
		RotationDeadline: view.RotationDeadline,
		IsActive:         view.IsActive,
	}
}

// Create mints a card for the authenticated member.
func (h *CardHandler) Create(c *gin.Context) {
	memberID := getMemberID(c)
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, errCreate := h.svc.CreateCard(c.Request.Context(), memberID)
	if errCreate != nil {
		if errors.Is(errCreate, redeem.ErrCardExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "card already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create card failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"card": toCardDTO(view)})
}

// Get returns the member's card, rotating the token first when its window
// has elapsed.
func (h *CardHandler) Get(c *gin.Context) {
	memberID := getMemberID(c)
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	view, errFetch := h.svc.FetchCard(c.Request.Context(), memberID)
	if errFetch != nil {
		if errors.Is(errFetch, redeem.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "fetch card failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"card": toCardDTO(view)})
}

// Toggle flips the card's active state.
func (h *CardHandler) Toggle(c *gin.Context) {
	memberID := getMemberID(c)
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	active, errToggle := h.svc.ToggleActive(c.Request.Context(), memberID)
	if errToggle != nil {
		if errors.Is(errToggle, redeem.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "toggle card failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_active": active})
}

// Reset deletes the member's card. A later create starts from a fresh
// secret.
func (h *CardHandler) Reset(c *gin.Context) {
	memberID := getMemberID(c)
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if errReset := h.svc.ResetCard(c.Request.Context(), memberID); errReset != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reset card failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// redemptionDTO defines one audit record in the member's redemption list.
type redemptionDTO struct {
	EventID         string    `json:"event_id"`
	MerchantID      *uint64   `json:"merchant_id,omitempty"`
	OfferedDiscount float64   `json:"offered_discount"`
	AppliedDiscount float64   `json:"applied_discount"`
	OriginalAmount  float64   `json:"original_amount"`
	DiscountAmount  float64   `json:"discount_amount"`
	FinalAmount     float64   `json:"final_amount"`
	RedeemedAt      time.Time `json:"redeemed_at"`
}

// Redemptions lists the member's redemption history, newest first.
func (h *CardHandler) Redemptions(c *gin.Context) {
	memberID := getMemberID(c)
	if memberID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	rows, errList := h.svc.ListRedemptions(c.Request.Context(), memberID, 50)
	if errList != nil {
		if errors.Is(errList, redeem.ErrCardNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list redemptions failed"})
		return
	}

	resp := make([]redemptionDTO, 0, len(rows))
	for _, row := range rows {
		resp = append(resp, redemptionDTO{
			EventID:         row.EventID,
			MerchantID:      row.MerchantID,
			OfferedDiscount: row.OfferedDiscount,
			AppliedDiscount: row.AppliedDiscount,
			OriginalAmount:  row.OriginalAmount,
			DiscountAmount:  row.DiscountAmount,
			FinalAmount:     row.FinalAmount,
			RedeemedAt:      row.RedeemedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"redemptions": resp})
}
