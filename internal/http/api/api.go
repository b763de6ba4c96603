package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/perkpass/perkpass/internal/config"
	"github.com/perkpass/perkpass/internal/http/api/handlers"
	"github.com/perkpass/perkpass/internal/models"
	"github.com/perkpass/perkpass/internal/redeem"
	"github.com/perkpass/perkpass/internal/security"
	"github.com/perkpass/perkpass/internal/store"
)

// RegisterRoutes registers the member and terminal API routes.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc *redeem.Service, jwtCfg config.JWTConfig) {
	if r == nil || db == nil || svc == nil {
		return
	}

	root := r.Group("/api")

	authHandler := handlers.NewAuthHandler(store.NewMemberStore(db), store.NewMerchantStore(db), jwtCfg)
	root.POST("/member/login", authHandler.MemberLogin)
	root.POST("/terminal/login", authHandler.TerminalLogin)

	cardHandler := handlers.NewCardHandler(svc)
	member := root.Group("")
	member.Use(memberAuthMiddleware(db, jwtCfg))
	member.POST("/card", cardHandler.Create)
	member.GET("/card", cardHandler.Get)
	member.POST("/card/toggle", cardHandler.Toggle)
	member.DELETE("/card", cardHandler.Reset)
	member.GET("/card/redemptions", cardHandler.Redemptions)

	redeemHandler := handlers.NewRedeemHandler(svc)
	terminal := root.Group("")
	terminal.Use(terminalAuthMiddleware(jwtCfg))
	terminal.POST("/redeem", redeemHandler.Redeem)
}

// memberAuthMiddleware validates member JWTs and loads the member into
// context.
func memberAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, errJWT := security.ParseMemberToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var member models.Member
		if errFind := db.WithContext(c.Request.Context()).First(&member, claims.MemberID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "member not found"})
			return
		}
		if !member.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "member disabled"})
			return
		}

		c.Set("memberID", member.ID)
		c.Next()
	}
}

// terminalAuthMiddleware validates terminal JWTs and loads the merchant ID
// into context.
func terminalAuthMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			return
		}

		claims, errJWT := security.ParseTerminalToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set("merchantID", claims.MerchantID)
		c.Next()
	}
}

// bearerToken extracts the bearer token, aborting the request when the
// header is missing or malformed.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
		return "", false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == authHeader {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
		return "", false
	}
	return token, true
}
