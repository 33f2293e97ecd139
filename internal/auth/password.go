package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAlreadyHashed rejects input that is itself a bcrypt digest.
	ErrAlreadyHashed = errors.New("password looks like a bcrypt digest")
	// ErrPasswordTooLong rejects input bcrypt would silently truncate.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

const maxPasswordBytes = 72

// Hasher produces and verifies salted bcrypt digests. It is immutable and
// safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using the given bcrypt cost. Out of range costs
// fall back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the bcrypt work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a new digest for plaintext. Every call draws a fresh salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	if _, err := bcrypt.Cost([]byte(plaintext)); err == nil {
		return "", ErrAlreadyHashed
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Empty or malformed
// digests never match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
