package hasher

import (
	"fmt"

	"blogapi/internal/service"

	"golang.org/x/crypto/bcrypt"
)

var _ service.PasswordHasher = (*Bcrypt)(nil)

type Bcrypt struct {
	cost int
}

// New returns a bcrypt hasher. A cost outside bcrypt's range falls back to
// bcrypt.DefaultCost.
func New(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", fmt.Errorf("generate password hash: %w", err)
	}
	return string(digest), nil
}

func (b *Bcrypt) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
