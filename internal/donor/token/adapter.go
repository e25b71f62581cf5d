package token

import (
	"donaria/internal/platform/middleware"
)

// ToMiddlewareClaims converts issuer claims into the shape the auth
// middleware consumes.
func ToMiddlewareClaims(claims *Claims) *middleware.TokenClaims {
	return &middleware.TokenClaims{
		DonorID:   claims.DonorID,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
}

// IssuerAdapter exposes an Issuer through the middleware's TokenValidator
// interface.
type IssuerAdapter struct {
	issuer *Issuer
}

func NewIssuerAdapter(issuer *Issuer) *IssuerAdapter {
	return &IssuerAdapter{issuer: issuer}
}

func (a *IssuerAdapter) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := a.issuer.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
