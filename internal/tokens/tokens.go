// Package tokens implements the self-contained session tokens exchanged
// with browsers. Two flavors share one symmetric key derived from the
// operator-supplied hash seed: signed tokens (integrity only, payload
// readable by the holder) carry the session cache, encrypted tokens
// (confidentiality + integrity) carry the authenticated login session.
package tokens

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"navlens/internal/config"
)

// ErrInvalidToken is returned when an encrypted token fails to decrypt,
// fails integrity checks, or is structurally malformed.
var ErrInvalidToken = errors.New("invalid token")

// ErrTokenExpired is returned when an encrypted token is past its expiry.
var ErrTokenExpired = errors.New("token expired")

var (
	key     []byte
	keyOnce sync.Once
)

// SecretKey returns the process-wide 32-byte key, expanded once from the
// configured hash seed with SHA-256. Read-only after first use.
func SecretKey() []byte {
	keyOnce.Do(func() {
		sum := sha256.Sum256([]byte(config.GetConfig().AuthHashSeed))
		key = sum[:]
	})
	return key
}

// ResetSecretKey clears the cached key; intended for tests that swap the
// configured seed.
func ResetSecretKey() {
	keyOnce = sync.Once{}
	key = nil
}

// SessionCache is the payload the browser replays to skip session
// re-derivation. SiteRef carries the internal site key so replay
// requests resolve their full context without touching the database.
type SessionCache struct {
	SiteID      string `json:"sid"`
	SiteRef     uint   `json:"ref"`
	Fingerprint string `json:"fp"`
	Base        string `json:"base,omitempty"`
}

type sessionCacheClaims struct {
	SiteID      string `json:"sid"`
	SiteRef     uint   `json:"ref"`
	Fingerprint string `json:"fp"`
	Base        string `json:"base,omitempty"`
	jwt.RegisteredClaims
}

// IssueSessionCache signs a session cache payload as a compact JWS (HS256).
func IssueSessionCache(cache SessionCache) (string, error) {
	claims := &sessionCacheClaims{
		SiteID:      cache.SiteID,
		SiteRef:     cache.SiteRef,
		Fingerprint: cache.Fingerprint,
		Base:        cache.Base,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(SecretKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign session cache: %w", err)
	}
	return signed, nil
}

// ReadSessionCache verifies a signed session cache token. Any failure -
// bad signature, wrong algorithm, malformed structure, missing fields -
// yields nil: the caller treats it as a cache miss, never a hard error.
func ReadSessionCache(tokenString string) *SessionCache {
	claims := &sessionCacheClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return SecretKey(), nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	if claims.SiteID == "" || claims.Fingerprint == "" || claims.SiteRef == 0 {
		return nil
	}
	return &SessionCache{
		SiteID:      claims.SiteID,
		SiteRef:     claims.SiteRef,
		Fingerprint: claims.Fingerprint,
		Base:        claims.Base,
	}
}

// AuthSession is the authenticated-user payload carried by encrypted
// tokens. Unlike the session cache it must not be readable by the holder.
type AuthSession struct {
	UserID     uint   `json:"uid"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	RememberMe bool   `json:"rememberMe"`
}

type authTokenEnvelope struct {
	Session   AuthSession `json:"session"`
	ExpiresAt int64       `json:"exp,omitempty"`
}

// IssueAuthToken encrypts an auth session with AES-256-GCM under the
// shared key. A zero ttl issues a token without expiry.
func IssueAuthToken(session AuthSession, ttl time.Duration) (string, error) {
	envelope := authTokenEnvelope{Session: session}
	if ttl > 0 {
		envelope.ExpiresAt = time.Now().UTC().Add(ttl).Unix()
	}

	plaintext, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth session: %w", err)
	}

	block, err := aes.NewCipher(SecretKey())
	if err != nil {
		return "", fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to init GCM: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// ReadAuthToken decrypts and validates an encrypted auth token. A failure
// here is an authentication failure, not a cache-miss fallback.
func ReadAuthToken(tokenString string) (*AuthSession, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(tokenString)
	if err != nil {
		return nil, ErrInvalidToken
	}

	block, err := aes.NewCipher(SecretKey())
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrInvalidToken
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var envelope authTokenEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		return nil, ErrInvalidToken
	}
	if envelope.ExpiresAt > 0 && time.Now().UTC().Unix() > envelope.ExpiresAt {
		return nil, ErrTokenExpired
	}

	return &envelope.Session, nil
}
