package storage

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const downloadAudience = "attachment-download"

var (
	ErrTokenFormat    = errors.New("invalid token format")
	ErrTokenSignature = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token expired")
)

// SignedURLSigner issues short-lived HS256 tokens naming one stored attachment.
// Tokens are audience-scoped so an access token can never be replayed as a download link.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate signs reference and returns the token with its expiry.
func (s *SignedURLSigner) Generate(reference string) (string, time.Time, error) {
	if reference == "" {
		return "", time.Time{}, errors.New("reference required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, errors.New("signing secret missing")
	}
	now := s.now().Truncate(time.Second)
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   reference,
		Audience:  jwt.ClaimStrings{downloadAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Parse verifies token and returns the reference it names.
func (s *SignedURLSigner) Parse(token string) (string, time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(downloadAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", time.Time{}, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", time.Time{}, ErrTokenSignature
	default:
		return "", time.Time{}, ErrTokenFormat
	}
	if claims.Subject == "" {
		return "", time.Time{}, ErrTokenFormat
	}
	return claims.Subject, claims.ExpiresAt.Time, nil
}
