// internal/auth/session/codec.go

// Package session seals and opens the cookie payload shared by the
// cookie-marked schemes. Sessions are minted by an external identity
// provider flow; the verification core only opens and validates them.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// MinSecretLen is the minimum secret length, matching the AES-256 key size
const MinSecretLen = 32

// ErrExpired is returned when a session opened from a cookie has expired
var ErrExpired = errors.New("session expired")

// Session is the identity material carried in a sealed cookie
type Session struct {
	Subject string    `json:"subject"`
	Email   string    `json:"email,omitempty"`
	Roles   []string  `json:"roles,omitempty"`
	Expiry  time.Time `json:"expiry"`
}

// Codec seals sessions into opaque cookie values and opens them again
type Codec struct {
	key []byte
}

// NewCodec creates a codec from a shared secret. The secret must be at least
// 32 bytes; a shorter one fails at startup, never per-request.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("session cookie secret must be at least %d bytes long", MinSecretLen)
	}
	return &Codec{key: []byte(secret)[:MinSecretLen]}, nil
}

// Seal encrypts a session into a cookie-safe string
func (c *Codec) Seal(s Session) (string, error) {
	plaintext, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	gcm, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Open decrypts a cookie value back into a session and checks its expiry
func (c *Codec) Open(value string) (*Session, error) {
	encrypted, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session cookie: %w", err)
	}

	gcm, err := c.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, fmt.Errorf("encrypted session too short")
	}

	nonce, ciphertext := encrypted[:nonceSize], encrypted[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(plaintext, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if !s.Expiry.IsZero() && time.Now().After(s.Expiry) {
		return nil, ErrExpired
	}

	return &s, nil
}

func (c *Codec) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
