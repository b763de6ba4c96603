package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// MemberClaims defines JWT claims for member app sessions.
type MemberClaims struct {
	MemberID uint64 `json:"member_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// TerminalClaims defines JWT claims for merchant validator terminals.
type TerminalClaims struct {
	MerchantID uint64 `json:"merchant_id"`
	Code       string `json:"code"`
	jwt.RegisteredClaims
}

// GenerateMemberToken signs a member JWT with the configured expiry.
func GenerateMemberToken(secret string, memberID uint64, email string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := MemberClaims{
		MemberID: memberID,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseMemberToken validates a member JWT and returns its claims.
func ParseMemberToken(secret string, tokenString string) (*MemberClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MemberClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*MemberClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateTerminalToken signs a validator-terminal JWT with the configured
// expiry.
func GenerateTerminalToken(secret string, merchantID uint64, code string, expiry time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := TerminalClaims{
		MerchantID: merchantID,
		Code:       code,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseTerminalToken validates a terminal JWT and returns its claims.
func ParseTerminalToken(secret string, tokenString string) (*TerminalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TerminalClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*TerminalClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
