package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued token stays valid. There is no revocation:
// a token outlives password changes and account deletion until it expires;
// deleted accounts are caught by the 404 on the next store read.
const TokenTTL = 24 * time.Hour

var (
	// ErrTokenExpired marks a token whose signature checked out but whose
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid marks a malformed token, a bad signature or an
	// unexpected signing method.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the identity payload embedded in every issued token.
type Claims struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies bearer tokens with a process-wide symmetric
// secret. Verification is purely local; no store round-trip.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an Issuer. An empty secret is a configuration error and
// must stop startup, not surface at first use.
func NewIssuer(secret string) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret is not set")
	}
	return &Issuer{secret: []byte(secret), ttl: TokenTTL}, nil
}

// Issue signs a token for the given identity, valid for TokenTTL from now.
func (i *Issuer) Issue(userID int64, name, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Name:   name,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Expired and invalid tokens are
// distinct error kinds so logs and tests can tell them apart, even though
// the middleware answers 403 for both.
func (i *Issuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// issueWithTTL exists for expiry tests.
func (i *Issuer) issueWithTTL(userID int64, name, email string, ttl time.Duration) (string, error) {
	clone := Issuer{secret: i.secret, ttl: ttl}
	return clone.Issue(userID, name, email)
}
