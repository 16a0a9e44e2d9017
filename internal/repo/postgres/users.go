package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/devhubhq/devhub/internal/domain/user"
	"github.com/devhubhq/devhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, name, role, avatar, bio, skills, experience, location, provider, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.Avatar,
		&u.Bio,
		&u.Skills,
		&u.Experience,
		&u.Location,
		&u.Provider,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	if u.Skills == nil {
		u.Skills = []string{}
	}

	return u, nil
}

// GetByEmail loads a user including the credential hash; used on the
// sign-in path. The hash never leaves the process because of the json:"-"
// tag on the entity.
func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		row := r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
	         FROM users
	         WHERE email = $1`,
			user.NormalizeEmail(email),
		)

		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_id", func() error {
		row := r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
	         FROM users
	         WHERE id = $1`,
			id,
		)

		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(
			ctx,
			`SELECT `+userColumns+`
	         FROM users
	         ORDER BY created_at ASC, id ASC`,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Create inserts a new user. The unique index on email closes the race
// between any prior existence check and this insert; a violation surfaces as
// user.ErrEmailTaken.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if err := user.Validate(u.Name, u.Email); err != nil {
		return user.User{}, err
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role,
			u.Avatar, u.Bio, u.Skills, u.Experience, u.Location, u.Provider,
			u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// Update applies the supplied profile fields. Password and role have no
// column here: they are not reachable through this path. Email changes are
// re-validated and re-checked for uniqueness against persisted state by the
// unique index at write time.
func (r *UsersRepo) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}
	pos := 2

	addSet := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, pos))
		args = append(args, val)
		pos++
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return user.User{}, &user.ValidationError{Problems: []string{"Name is required"}}
		}
		addSet("name", *req.Name)
	}

	if req.Email != nil {
		email := user.NormalizeEmail(*req.Email)
		if !user.ValidEmail(email) {
			return user.User{}, &user.ValidationError{Problems: []string{"Valid email is required"}}
		}
		addSet("email", email)
	}

	if req.Avatar != nil {
		addSet("avatar", *req.Avatar)
	}
	if req.Bio != nil {
		addSet("bio", *req.Bio)
	}
	if req.Skills != nil {
		addSet("skills", *req.Skills)
	}
	if req.Experience != nil {
		addSet("experience", *req.Experience)
	}
	if req.Location != nil {
		addSet("location", *req.Location)
	}
	if req.Provider != nil {
		addSet("provider", *req.Provider)
	}

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1
		RETURNING ` + userColumns

	var u user.User

	err := r.observe("users.update", func() error {
		row := r.pool.QueryRow(ctx, query, args...)

		var err error
		u, err = scanUser(row)
		return err
	})

	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}

	return u, nil
}

// Delete removes the user and its project associations in one transaction and
// returns the removed record.
func (r *UsersRepo) Delete(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.delete", func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})

		if err != nil {
			return err
		}

		defer func() { _ = tx.Rollback(ctx) }()

		_, err = tx.Exec(ctx, `DELETE FROM user_projects WHERE user_id = $1`, id)

		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx,
			`DELETE FROM users WHERE id = $1
			 RETURNING `+userColumns,
			id,
		)

		u, err = scanUser(row)

		if err != nil {
			return err
		}

		return tx.Commit(ctx)
	})

	if err != nil {
		return user.User{}, err
	}

	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
