// Package credential implements password hashing and opaque secret generation.
package credential

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted by ValidateStrength.
const MinPasswordLength = 8

// MaxPasswordBytes is bcrypt's input limit. Longer passwords are rejected by Hash.
const MaxPasswordBytes = 72

// resetTokenBytes is the entropy of generated reset tokens before encoding.
const resetTokenBytes = 32

// Bcrypt hashes and compares passwords with bcrypt.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a hasher using the given cost. A cost outside bcrypt's range falls back to the default.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

// Hash generates a bcrypt hash from a plaintext password.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

// Compare reports whether plaintext matches the bcrypt hash.
func (b *Bcrypt) Compare(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// GenerateResetToken creates a random, URL-safe opaque string.
func (b *Bcrypt) GenerateResetToken() (string, error) {
	return RandomToken(resetTokenBytes)
}

// ValidateStrength requires MinPasswordLength characters, at most MaxPasswordBytes bytes,
// and at least one upper case letter, lower case letter and digit.
func (b *Bcrypt) ValidateStrength(plaintext string) bool {
	if len([]rune(plaintext)) < MinPasswordLength || len(plaintext) > MaxPasswordBytes {
		return false
	}
	var upper, lower, digit bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

// RandomToken returns n random bytes encoded as unpadded base64url.
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand read: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
