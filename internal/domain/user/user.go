package user

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Avatar       string    `json:"avatar,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Skills       []string  `json:"skills"`
	Experience   string    `json:"experience,omitempty"`
	Location     string    `json:"location,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const DefaultRole = "user"

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already exists")
	ErrInvalid    = errors.New("invalid user data")
)

// simple local@domain.tld shape; anything stricter is the mail provider's problem
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail lowercases and trims so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidEmail(email string) bool {
	return emailRe.MatchString(NormalizeEmail(email))
}

// Validate checks the store-level invariants: non-empty name, well-formed email.
func Validate(name, email string) error {
	var problems []string

	if strings.TrimSpace(name) == "" {
		problems = append(problems, "Name is required")
	}

	if !ValidEmail(email) {
		problems = append(problems, "Valid email is required")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}

	return nil
}

type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Problems, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

// UpdateUserRequest deliberately has no password or role field. Credential
// changes go through a dedicated flow; role is not caller-settable.
type UpdateUserRequest struct {
	Name       *string   `json:"name"`
	Email      *string   `json:"email"`
	Avatar     *string   `json:"avatar"`
	Bio        *string   `json:"bio"`
	Skills     *[]string `json:"skills"`
	Experience *string   `json:"experience"`
	Location   *string   `json:"location"`
	Provider   *string   `json:"provider"`
}

// Projects is the per-user auxiliary association set. Owned by the store so
// it survives restarts and gets removed when the user is deleted.
type Projects struct {
	OwnedProjects         []string `json:"ownedProjects"`
	ParticipatingProjects []string `json:"participatingProjects"`
}
