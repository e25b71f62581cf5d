// Package token mints and validates donor bearer tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"donaria/internal/donor/models"
	dErrors "donaria/pkg/domain-errors"
)

// TTL is the fixed lifetime of a donor bearer token.
const TTL = 60 * 24 * time.Hour

// RoleDonor is the only role this issuer mints.
const RoleDonor = "donor-user"

// Claims is the complete claim set of a donor token: subject id, email,
// role, and expiry. Nothing else is added.
type Claims struct {
	DonorID string `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"type"`
	jwt.RegisteredClaims
}

// Issuer signs donor tokens with a process-wide shared secret. The key is
// loaded once at startup and immutable thereafter.
type Issuer struct {
	signingKey []byte
	now        func() time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithClock sets the issuance clock for testability.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer constructs an Issuer. A missing signing key is a configuration
// error and should abort startup.
func NewIssuer(signingKey string, opts ...Option) (*Issuer, error) {
	if signingKey == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "token signing key is not configured")
	}
	i := &Issuer{
		signingKey: []byte(signingKey),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i, nil
}

// Mint produces a signed HS256 token for the donor, expiring exactly 60 days
// from issuance (whole Unix seconds).
func (i *Issuer) Mint(d *models.Donor) (string, error) {
	exp := i.now().Add(TTL).Truncate(time.Second)
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		DonorID: d.ID.String(),
		Email:   d.Email,
		Role:    RoleDonor,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signedToken, err := newToken.SignedString(i.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signedToken, nil
}

// Validate parses and verifies a token string, returning its claims.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}
