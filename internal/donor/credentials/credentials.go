// Package credentials derives and verifies donor password secrets.
//
// The derivation is PBKDF2-SHA512 over a random per-record salt. It is
// deliberately slow; callers on a latency-critical path should bound
// concurrent derivations (the donor service does this with a semaphore).
package credentials

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"donaria/internal/donor/models"
	dErrors "donaria/pkg/domain-errors"
)

const (
	saltBytes  = 16
	iterations = 10000
	keyBytes   = 512
)

// SetSecret generates a fresh salt and derives the secret hash for password,
// overwriting any prior salt/hash on the donor. Fails on an empty password.
func SetSecret(d *models.Donor, password string) error {
	if password == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "password cannot be empty")
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("could not generate salt: %w", err)
	}
	saltHex := hex.EncodeToString(salt)

	d.SecretSalt = saltHex
	d.SecretHash = derive(password, saltHex)
	return nil
}

// VerifySecret recomputes the hash from the stored salt and compares it to
// the stored hash in constant time. Returns false, not an error, when no
// secret has been established.
func VerifySecret(d *models.Donor, password string) bool {
	if !d.HasSecret() || password == "" {
		return false
	}
	computed := derive(password, d.SecretSalt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(d.SecretHash)) == 1
}

// derive runs PBKDF2 over the password with the hex-rendered salt. The salt
// string itself is the KDF input, so stored salts verify byte-for-byte.
func derive(password, saltHex string) string {
	key := pbkdf2.Key([]byte(password), []byte(saltHex), iterations, keyBytes, sha512.New)
	return hex.EncodeToString(key)
}
