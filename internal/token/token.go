package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// secretBytes is the length of a freshly minted card secret.
const secretBytes = 32

// mintLookahead bounds how many windows ahead Mint may borrow a code from
// when the nearby windows' codes are still live. Validation probes the same
// range, so every code Mint hands out verifies.
const mintLookahead = 4

// Generator derives time-stepped redemption codes from a card secret. Codes
// are a fixed-period TOTP, so a given (secret, window) pair always yields
// the same code.
type Generator struct {
	window time.Duration
	digits otp.Digits
}

// NewGenerator creates a Generator with the given rotation window. The
// window is truncated to whole seconds; anything below one second falls back
// to the 30s default, keeping WindowIndex and the TOTP period in agreement.
func NewGenerator(window time.Duration) *Generator {
	window = window.Truncate(time.Second)
	if window < time.Second {
		window = 30 * time.Second
	}
	return &Generator{window: window, digits: otp.DigitsEight}
}

// Window returns the rotation window.
func (g *Generator) Window() time.Duration {
	return g.window
}

// WindowIndex returns the rotation window index containing t.
func (g *Generator) WindowIndex(t time.Time) int64 {
	return t.Unix() / int64(g.window/time.Second)
}

// Generate derives the code for the window containing t.
func (g *Generator) Generate(secret string, t time.Time) (string, error) {
	encoded, errEncode := otpSecret(secret)
	if errEncode != nil {
		return "", errEncode
	}
	code, errGen := totp.GenerateCodeCustom(encoded, t, g.opts())
	if errGen != nil {
		return "", fmt.Errorf("token: generate: %w", errGen)
	}
	return code, nil
}

// Mint returns a code for the window containing t that differs from every
// avoid value, borrowing from the next windows when the nearer codes are
// still live. Forced rotation inside one window needs this: regenerating the
// same window would reissue the token just retired.
func (g *Generator) Mint(secret string, t time.Time, avoid ...string) (string, error) {
	step := t
	for i := 0; i < mintLookahead; i++ {
		code, errGen := g.Generate(secret, step)
		if errGen != nil {
			return "", errGen
		}
		if !contains(avoid, code) {
			return code, nil
		}
		step = step.Add(g.window)
	}
	return "", fmt.Errorf("token: no fresh code within %d windows", mintLookahead)
}

// Validate reports whether code is genuine for a token minted at mintedAt
// and whether no more than tolerance windows have elapsed since the mint.
// The code is checked against the mint window and the lookahead windows Mint
// may have borrowed from, so a freshly installed token always verifies even
// when its code belongs to a future window. The second return value is the
// window drift between mint and scan (negative when scanned later), for
// audit.
func (g *Generator) Validate(code, secret string, mintedAt, now time.Time, tolerance int) (bool, int, error) {
	if tolerance < 0 {
		tolerance = 0
	}
	drift := int(g.WindowIndex(mintedAt) - g.WindowIndex(now))
	if drift < -tolerance || drift > tolerance {
		return false, 0, nil
	}
	step := mintedAt
	for i := 0; i < mintLookahead; i++ {
		expected, errGen := g.Generate(secret, step)
		if errGen != nil {
			return false, 0, errGen
		}
		if subtle.ConstantTimeCompare([]byte(code), []byte(expected)) == 1 {
			return true, drift, nil
		}
		step = step.Add(g.window)
	}
	return false, 0, nil
}

// opts returns the TOTP parameters for this generator.
func (g *Generator) opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(g.window / time.Second),
		Skew:      0,
		Digits:    g.digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// contains reports whether values holds v.
func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// otpSecret converts a hex card secret into the base32 form the TOTP
// library expects.
func otpSecret(secret string) (string, error) {
	raw, errDecode := hex.DecodeString(strings.TrimSpace(secret))
	if errDecode != nil {
		return "", fmt.Errorf("token: secret is not hex: %w", errDecode)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// NewSecret mints a fresh random card secret, hex-encoded.
func NewSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, errRead := io.ReadFull(rand.Reader, raw); errRead != nil {
		return "", fmt.Errorf("token: new secret: %w", errRead)
	}
	return hex.EncodeToString(raw), nil
}

// NewCardNumber mints a user-presentable card number, independent of the
// card secret.
func NewCardNumber() (string, error) {
	raw := make([]byte, 16)
	if _, errRead := io.ReadFull(rand.Reader, raw); errRead != nil {
		return "", fmt.Errorf("token: new card number: %w", errRead)
	}
	var sb strings.Builder
	sb.WriteString("PP")
	for i, b := range raw {
		if i%4 == 0 {
			sb.WriteByte('-')
		}
		sb.WriteByte('0' + b%10)
	}
	return sb.String(), nil
}
