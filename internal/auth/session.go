// Package auth verifies the session tokens issued by the identity provider.
// Tokens are EdDSA (ed25519) JWTs whose subject is the user id.
package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrCannotSign is returned by Issue when only a public key was loaded.
	ErrCannotSign = errors.New("session signing key not available")
)

// Sessions issues and verifies session tokens.
type Sessions struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	ttl        time.Duration
}

// NewSessions generates a fresh key pair. Tokens signed by it do not survive
// a restart; use it for local development only.
func NewSessions(ttl time.Duration) (*Sessions, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Sessions{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// LoadSessions reads the provider's public key from path. The file may hold a
// PEM encoded key or the raw 32 key bytes. The result can verify but not issue.
func LoadSessions(path string, ttl time.Duration) (*Sessions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(data) == ed25519.PublicKeySize {
		return &Sessions{publicKey: ed25519.PublicKey(data), ttl: ttl}, nil
	}
	key, err := jwt.ParseEdPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	pub, ok := key.(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, want ed25519", key)
	}
	return &Sessions{publicKey: pub, ttl: ttl}, nil
}

// Issue signs a token with sub = userID. A zero ttl means no expiry.
func (s *Sessions) Issue(userID uuid.UUID) (string, error) {
	if s.privateKey == nil {
		return "", ErrCannotSign
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  userID.String(),
		IssuedAt: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.privateKey)
}

// Authenticate verifies token and returns the user id in its subject.
func (s *Sessions) Authenticate(token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, ErrInvalidToken
	}
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}
