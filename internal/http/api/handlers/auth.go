package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/perkpass/perkpass/internal/config"
	"github.com/perkpass/perkpass/internal/security"
	"github.com/perkpass/perkpass/internal/store"
)

// AuthHandler handles member and terminal login.
type AuthHandler struct {
	members   *store.MemberStore
	merchants *store.MerchantStore
	jwtCfg    config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(members *store.MemberStore, merchants *store.MerchantStore, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{members: members, merchants: merchants, jwtCfg: jwtCfg}
}

// memberLoginRequest defines the request body for member login.
type memberLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MemberLogin authenticates a member and issues a JWT.
func (h *AuthHandler) MemberLogin(c *gin.Context) {
	var body memberLoginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	password := strings.TrimSpace(body.Password)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing email or password"})
		return
	}

	member, errFind := h.members.FindByEmail(c.Request.Context(), email)
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if member == nil || !security.CheckPassword(member.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !member.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "member disabled"})
		return
	}

	token, errSign := security.GenerateMemberToken(h.jwtCfg.Secret, member.ID, member.Email, h.jwtCfg.Expiry.Std())
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"member": gin.H{
			"id":    member.ID,
			"email": member.Email,
			"name":  member.Name,
		},
	})
}

// terminalLoginRequest defines the request body for terminal login.
type terminalLoginRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// TerminalLogin authenticates a merchant validator terminal and issues a
// JWT.
func (h *AuthHandler) TerminalLogin(c *gin.Context) {
	var body terminalLoginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	password := strings.TrimSpace(body.Password)
	if code == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or password"})
		return
	}

	merchant, errFind := h.merchants.GetByCode(c.Request.Context(), code)
	if errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	if merchant == nil || !security.CheckPassword(merchant.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if !merchant.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "merchant disabled"})
		return
	}

	token, errSign := security.GenerateTerminalToken(h.jwtCfg.Secret, merchant.ID, merchant.Code, h.jwtCfg.Expiry.Std())
	if errSign != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"merchant": gin.H{
			"id":               merchant.ID,
			"code":             merchant.Code,
			"name":             merchant.Name,
			"discount_percent": merchant.DiscountPercent,
		},
	})
}
