package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/perkpass/perkpass/internal/redeem"
)

// RedeemHandler handles the validator terminal's redemption endpoint.
type RedeemHandler struct {
	svc *redeem.Service
}

// NewRedeemHandler constructs a RedeemHandler.
func NewRedeemHandler(svc *redeem.Service) *RedeemHandler {
	return &RedeemHandler{svc: svc}
}

// redeemRequest defines the request body for a redemption attempt.
type redeemRequest struct {
	Token  string  `json:"token"`
	Amount float64 `json:"amount"`
}

// Redeem validates a scanned token and applies the member's discount to the
// purchase amount.
func (h *RedeemHandler) Redeem(c *gin.Context) {
	merchantID := getMerchantID(c)
	if merchantID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var body redeemRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	receipt, errRedeem := h.svc.Redeem(c.Request.Context(), body.Token, body.Amount, redeem.AtMerchant(merchantID))
	if errRedeem != nil {
		status, message := redeemStatus(errRedeem)
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"receipt": gin.H{
			"card_number":      receipt.CardNumber,
			"tier":             receipt.TierName,
			"offered_discount": receipt.OfferedDiscount.InexactFloat64(),
			"applied_discount": receipt.AppliedDiscount.InexactFloat64(),
			"original_amount":  receipt.Original.InexactFloat64(),
			"discount_amount":  receipt.DiscountAmount.InexactFloat64(),
			"final_amount":     receipt.FinalAmount.InexactFloat64(),
			"window_offset":    receipt.WindowOffset,
			"redeemed_at":      receipt.RedeemedAt,
		},
	})
}

// redeemStatus maps redemption outcomes to HTTP statuses. Replay and
// unknown-token outcomes are client errors, not server faults.
func redeemStatus(err error) (int, string) {
	switch {
	case errors.Is(err, redeem.ErrInvalidInput):
		return http.StatusBadRequest, "invalid redemption input"
	case errors.Is(err, redeem.ErrTokenNotRecognized):
		return http.StatusNotFound, "token not recognized"
	case errors.Is(err, redeem.ErrTokenAlreadyUsed):
		return http.StatusConflict, "token already used"
	case errors.Is(err, redeem.ErrTokenExpiredOrInvalid):
		return http.StatusUnprocessableEntity, "token expired or invalid"
	case errors.Is(err, redeem.ErrEntitlementInactive):
		return http.StatusForbidden, "membership inactive"
	case errors.Is(err, redeem.ErrEntitlementUnavailable),
		errors.Is(err, redeem.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "redeem failed"
	}
}
