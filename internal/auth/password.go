package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt hashes without truncation.
const maxPasswordBytes = 72

// Hasher turns plaintext passwords into salted one-way digests and checks them.
type Hasher interface {
	Hash(plaintext string) ([]byte, error)
	Verify(plaintext string, digest []byte) bool
}

// BcryptHasher implements Hasher with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using the given cost. Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

// Hash returns a bcrypt digest embedding a random salt.
func (h BcryptHasher) Hash(plaintext string) ([]byte, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, maxPasswordBytes)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return digest, nil
}

// Verify reports whether plaintext matches digest. The comparison is constant time.
// Inputs bcrypt would truncate never match.
func (h BcryptHasher) Verify(plaintext string, digest []byte) bool {
	if len(plaintext) > maxPasswordBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, []byte(plaintext)) == nil
}
