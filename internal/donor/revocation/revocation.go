// Package revocation tracks revoked bearer tokens until they expire.
//
// Donor tokens carry no token identifier claim, so entries are keyed by the
// SHA-256 digest of the compact token string. TTLs equal the remaining token
// life; an expired entry no longer matters because the token itself is dead.
package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// List is the contract for token revocation checks.
type List interface {
	Revoke(ctx context.Context, tokenString string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenString string) (bool, error)
}

// Digest renders the revocation key for a compact token string.
func Digest(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// InMemory is a process-local revocation list for tests and single-instance
// deployments.
type InMemory struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   func() time.Time
}

// InMemoryOption configures an InMemory list.
type InMemoryOption func(*InMemory)

// WithClock sets the expiry clock for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(l *InMemory) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemory {
	l := &InMemory{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *InMemory) Revoke(_ context.Context, tokenString string, ttl time.Duration) error {
	if tokenString == "" || ttl <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[Digest(tokenString)] = l.clock().Add(ttl)
	return nil
}

func (l *InMemory) IsRevoked(_ context.Context, tokenString string) (bool, error) {
	if tokenString == "" {
		return false, nil
	}
	l.mu.RLock()
	expiresAt, ok := l.revoked[Digest(tokenString)]
	l.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if l.clock().After(expiresAt) {
		l.mu.Lock()
		delete(l.revoked, Digest(tokenString))
		l.mu.Unlock()
		return false, nil
	}
	return true, nil
}
