package user

import (
	"time"

	"github.com/google/uuid"
)

// New builds a fresh user record with the default role. passwordHash may be
// empty for administratively created accounts; such accounts cannot sign in.
func New(name, email, passwordHash string) User {
	now := time.Now().UTC()

	return User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Name:         name,
		Role:         DefaultRole,
		Skills:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
