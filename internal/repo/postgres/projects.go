package postgres

import (
	"context"

	"github.com/devhubhq/devhub/internal/domain/user"
	"github.com/devhubhq/devhub/internal/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectsRepo reads the per-user project associations. Writes happen in the
// project service; this side only needs lookups, plus the cascade handled by
// UsersRepo.Delete.
type ProjectsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProjectsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProjectsRepo {
	return &ProjectsRepo{pool: pool, prom: prom}
}

func (r *ProjectsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ProjectsRepo) ListForUser(ctx context.Context, userID string) (user.Projects, error) {
	p := user.Projects{
		OwnedProjects:         []string{},
		ParticipatingProjects: []string{},
	}

	err := r.observe("projects.list_for_user", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT project_id, relation
			 FROM user_projects
			 WHERE user_id = $1
			 ORDER BY created_at ASC, project_id ASC`,
			userID,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		for rows.Next() {
			var projectID, relation string

			err = rows.Scan(&projectID, &relation)

			if err != nil {
				return err
			}

			if relation == "owner" {
				p.OwnedProjects = append(p.OwnedProjects, projectID)
			} else {
				p.ParticipatingProjects = append(p.ParticipatingProjects, projectID)
			}
		}

		return rows.Err()
	})

	if err != nil {
		return user.Projects{}, err
	}

	return p, nil
}
