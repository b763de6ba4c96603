package vault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/chacha20poly1305"
)

// Vault errors.
var (
	// ErrEmptySecret indicates an attempt to encrypt an empty secret.
	ErrEmptySecret = errors.New("empty secret")
	// ErrUnreadableSecret indicates a stored secret that is neither valid
	// ciphertext nor a recognizable legacy plaintext.
	ErrUnreadableSecret = errors.New("unreadable secret")
)

// versionPrefix tags ciphertext produced by the current format.
const versionPrefix = "v1:"

// legacySecretPattern matches secrets stored before encryption at rest was
// introduced: a long hex string.
var legacySecretPattern = regexp.MustCompile(`^[0-9a-fA-F]{32,}$`)

// PersistFunc saves a migrated ciphertext back to storage.
type PersistFunc func(ctx context.Context, ciphertext string) error

// Vault encrypts and decrypts per-card token secrets at rest.
type Vault struct {
	key []byte
}

// New creates a Vault from a 32-byte key.
func New(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("vault: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	out := make([]byte, len(key))
	copy(out, key)
	return &Vault{key: out}, nil
}

// NewFromHex creates a Vault from a hex-encoded 32-byte key.
func NewFromHex(hexKey string) (*Vault, error) {
	key, errDecode := hex.DecodeString(strings.TrimSpace(hexKey))
	if errDecode != nil {
		return nil, fmt.Errorf("vault: decode key: %w", errDecode)
	}
	return New(key)
}

// Encrypt seals a plaintext secret with a fresh random nonce. The result is
// one opaque string carrying the format version, nonce and sealed payload.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	if strings.TrimSpace(plaintext) == "" {
		return "", ErrEmptySecret
	}
	aead, errAEAD := chacha20poly1305.NewX(v.key)
	if errAEAD != nil {
		return "", fmt.Errorf("vault: init cipher: %w", errAEAD)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, errRead := io.ReadFull(rand.Reader, nonce); errRead != nil {
		return "", fmt.Errorf("vault: nonce: %w", errRead)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt. It reports false, rather
// than an error, when the version tag is unrecognized or authentication
// fails, so callers can fall back to legacy handling.
func (v *Vault) Decrypt(ciphertext string) (string, bool) {
	if !strings.HasPrefix(ciphertext, versionPrefix) {
		return "", false
	}
	sealed, errDecode := base64.RawStdEncoding.DecodeString(ciphertext[len(versionPrefix):])
	if errDecode != nil {
		return "", false
	}
	aead, errAEAD := chacha20poly1305.NewX(v.key)
	if errAEAD != nil {
		return "", false
	}
	if len(sealed) < aead.NonceSize() {
		return "", false
	}
	nonce, payload := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, errOpen := aead.Open(nil, nonce, payload, nil)
	if errOpen != nil {
		return "", false
	}
	return string(plaintext), true
}

// ResolveSecret returns the plaintext secret behind a stored value. Already
// encrypted values decrypt directly. Legacy plaintext values are encrypted
// and persisted back via persist; persistence is best-effort and never
// blocks returning the plaintext. Repeated calls are idempotent.
func (v *Vault) ResolveSecret(ctx context.Context, stored string, persist PersistFunc) (string, error) {
	if plaintext, ok := v.Decrypt(stored); ok {
		return plaintext, nil
	}

	trimmed := strings.TrimSpace(stored)
	if !legacySecretPattern.MatchString(trimmed) {
		return "", ErrUnreadableSecret
	}

	ciphertext, errEncrypt := v.Encrypt(trimmed)
	if errEncrypt != nil {
		return "", fmt.Errorf("vault: migrate legacy secret: %w", errEncrypt)
	}
	if persist != nil {
		if errPersist := persist(ctx, ciphertext); errPersist != nil {
			log.WithError(errPersist).Warn("legacy secret migration persist failed")
		}
	}
	return trimmed, nil
}
