package db

import (
	"context"
	"errors"

	"github.com/devhubhq/devhub/internal/config"
	"github.com/devhubhq/devhub/internal/domain/user"
	"github.com/devhubhq/devhub/internal/security"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser seeds the configured admin account once. A no-op when the
// admin credentials are absent or the account already exists.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, hasher *security.Hasher, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	email := user.NormalizeEmail(cfg.AdminEmail)

	// check if the user exists

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := hasher.Hash(cfg.AdminPassword)

	if err != nil {
		return err
	}

	u := user.New(cfg.AdminName, email, hash)
	u.Role = cfg.AdminRole

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, skills, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Skills, u.CreatedAt, u.UpdatedAt,
	)

	return err
}
