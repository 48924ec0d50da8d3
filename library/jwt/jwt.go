// Package jwt issues and verifies organization session tokens.
package jwt

import (
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Laisky/fingenius-compliance/library/apierr"
)

// TokenTTL is the fixed lifetime of a session token.
const TokenTTL = 24 * time.Hour

// Issuer signs and verifies HS256 session tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithClock replaces the time source.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
	}
}

// NewIssuer creates an Issuer, secret must not be empty.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}

	i := &Issuer{
		secret: secret,
		ttl:    TokenTTL,
		now:    gutils.Clock.GetUTCNow,
	}
	for _, opt := range opts {
		opt(i)
	}

	return i, nil
}

// Sign issues a token for the organization.
func (i *Issuer) Sign(organizationID, email string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   organizationID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		OrganizationID: organizationID,
		Email:          email,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return signed, nil
}

// Verify parses the token and returns its claims.
// It fails with INVALID_TOKEN on a bad signature or payload and EXPIRED_TOKEN after exp.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return i.secret, nil
		},
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, apierr.Wrap(err, apierr.CodeExpiredToken, "Token expired")
	case err != nil:
		return nil, apierr.Wrap(err, apierr.CodeInvalidToken, "Invalid token")
	case !token.Valid:
		return nil, apierr.New(apierr.CodeInvalidToken, "Invalid token")
	}

	if claims.OrganizationID == "" {
		return nil, apierr.New(apierr.CodeInvalidToken, "Invalid token")
	}

	return claims, nil
}
