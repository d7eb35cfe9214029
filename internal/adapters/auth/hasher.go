package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"campushub/internal/domain"
)

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a CodeHasher backed by bcrypt. Verification codes are
// short-lived, so a low cost is acceptable.
func NewBcryptHasher(cost int) domain.CodeHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (h *bcryptHasher) Hash(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hash), nil
}

func (h *bcryptHasher) Compare(hash, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}
