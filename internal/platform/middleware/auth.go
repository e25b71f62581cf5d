package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	DonorID   string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// RevocationChecker reports whether a presented token has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// Context keys for storing authenticated donor information
type contextKeyDonorID struct{}
type contextKeyDonorEmail struct{}
type contextKeyBearerToken struct{}

// ContextKeyDonorID is exported for use in handlers
var (
	ContextKeyDonorID     = contextKeyDonorID{}
	ContextKeyDonorEmail  = contextKeyDonorEmail{}
	ContextKeyBearerToken = contextKeyBearerToken{}
)

// GetDonorID retrieves the authenticated donor ID from the context.
func GetDonorID(ctx context.Context) string {
	donorID, ok := ctx.Value(ContextKeyDonorID).(string)
	if !ok {
		return ""
	}
	return donorID
}

// GetDonorEmail retrieves the authenticated donor email from the context.
func GetDonorEmail(ctx context.Context) string {
	email, ok := ctx.Value(ContextKeyDonorEmail).(string)
	if !ok {
		return ""
	}
	return email
}

// GetBearerToken retrieves the raw presented token, needed for logout.
func GetBearerToken(ctx context.Context) string {
	tok, ok := ctx.Value(ContextKeyBearerToken).(string)
	if !ok {
		return ""
	}
	return tok
}

// RequireAuth gates handlers behind a valid, unrevoked bearer token. The
// revocation checker may be nil when no revocation backend is configured.
func RequireAuth(validator TokenValidator, revocations RevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "

			tokenString, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || tokenString == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if revocations != nil {
				revoked, err := revocations.IsRevoked(ctx, tokenString)
				if err != nil {
					logger.ErrorContext(ctx, "revocation check failed",
						"error", err,
						"request_id", GetRequestID(ctx),
					)
					writeUnauthorized(w, "Invalid or expired token")
					return
				}
				if revoked {
					writeUnauthorized(w, "Invalid or expired token")
					return
				}
			}

			ctx = context.WithValue(ctx, ContextKeyDonorID, claims.DonorID)
			ctx = context.WithValue(ctx, ContextKeyDonorEmail, claims.Email)
			ctx = context.WithValue(ctx, ContextKeyBearerToken, tokenString)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
