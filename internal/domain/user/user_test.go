package user_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/devhubhq/devhub/internal/domain/user"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ann@Example.com", "ann@example.com"},
		{"  ann@example.com  ", "ann@example.com"},
		{"ANN@EXAMPLE.COM", "ann@example.com"},
		{"ann@example.com", "ann@example.com"},
	}

	for _, tt := range tests {
		if got := user.NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"ann@example.com", "a.b+c@sub.example.co", "  Ann@Example.com "}
	invalid := []string{"", "ann", "ann@", "@example.com", "ann@example", "a b@example.com", "ann@@example.com"}

	for _, e := range valid {
		if !user.ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = false, want true", e)
		}
	}

	for _, e := range invalid {
		if user.ValidEmail(e) {
			t.Errorf("ValidEmail(%q) = true, want false", e)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := user.Validate("Ann", "ann@example.com"); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	err := user.Validate("", "not-an-email")

	if err == nil {
		t.Fatal("expected an error")
	}

	if !errors.Is(err, user.ErrInvalid) {
		t.Fatalf("error does not match ErrInvalid: %v", err)
	}

	msg := err.Error()

	if !strings.Contains(msg, "Name is required") || !strings.Contains(msg, "Valid email is required") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestNewUserDefaults(t *testing.T) {
	u := user.New("Ann", "  Ann@Example.COM ", "hash")

	if u.ID == "" {
		t.Fatal("missing id")
	}

	if u.Email != "ann@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}

	if u.Role != user.DefaultRole {
		t.Fatalf("got role %q", u.Role)
	}

	if u.Skills == nil {
		t.Fatal("skills should be an empty slice, not nil")
	}

	if u.CreatedAt.IsZero() || !u.CreatedAt.Equal(u.UpdatedAt) {
		t.Fatalf("timestamps off: %v / %v", u.CreatedAt, u.UpdatedAt)
	}
}

func TestPasswordHashNeverMarshals(t *testing.T) {
	u := user.New("Ann", "ann@example.com", "$2a$10$secret-hash")

	b, err := json.Marshal(u)

	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if strings.Contains(string(b), "secret-hash") || strings.Contains(string(b), "PasswordHash") {
		t.Fatalf("hash leaked into JSON: %s", b)
	}
}
