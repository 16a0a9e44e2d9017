package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/devhubhq/devhub/internal/cache"
	"github.com/devhubhq/devhub/internal/config"
	"github.com/devhubhq/devhub/internal/domain/user"
	"github.com/devhubhq/devhub/internal/jobs"
	"github.com/devhubhq/devhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error)
	Delete(ctx context.Context, id string) (user.User, error)
}

type ProjectsReader interface {
	ListForUser(ctx context.Context, userID string) (user.Projects, error)
}

const usersListCacheKey = "users:list"

type UsersHandler struct {
	store    UserStore
	projects ProjectsReader
	hasher   *security.Hasher
	queue    JobEnqueuer
	cache    *cache.Cache
	log      *slog.Logger
}

func NewUsersHandler(store UserStore, projects ProjectsReader, hasher *security.Hasher, queue JobEnqueuer, log *slog.Logger) *UsersHandler {
	return &UsersHandler{
		store:    store,
		projects: projects,
		hasher:   hasher,
		queue:    queue,
		log:      log,
	}
}

func NewUsersHandlerWithCache(store UserStore, projects ProjectsReader, hasher *security.Hasher, queue JobEnqueuer, log *slog.Logger, c *cache.Cache) *UsersHandler {
	h := NewUsersHandler(store, projects, hasher, queue, log)
	h.cache = c
	return h
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	if h.cache != nil {
		if v, ok := h.cache.Get(usersListCacheKey); ok {
			if users, ok := v.([]user.User); ok {
				RespondSuccess(ctx, http.StatusOK, "Users retrieved successfully", users)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.store.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	if h.cache != nil {
		h.cache.Set(usersListCacheKey, users)
	}

	RespondSuccess(ctx, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UsersHandler) GetUserByID(ctx *gin.Context) {
	h.getOne(ctx, "User retrieved successfully")
}

// GetUserProfile mirrors GetUserByID; the hash is excluded from both by the
// entity's JSON shape.
func (h *UsersHandler) GetUserProfile(ctx *gin.Context) {
	h.getOne(ctx, "User profile retrieved successfully")
}

func (h *UsersHandler) getOne(ctx *gin.Context, message string) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUserNotFound(ctx)
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	RespondSuccess(ctx, http.StatusOK, message, u)
}

func (h *UsersHandler) GetUserProjects(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	_, err := h.store.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUserNotFound(ctx)
			return
		}

		RespondInternal(ctx, "Could not fetch user")
		return
	}

	projects, err := h.projects.ListForUser(cctx, id)

	if err != nil {
		RespondInternal(ctx, "Could not fetch user projects")
		return
	}

	RespondSuccess(ctx, http.StatusOK, "User projects retrieved successfully", projects)
}

// CreateUser is the administrative create. Password is optional here: an
// account created without one cannot sign in until a credential is set.
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := user.Validate(req.Name, req.Email); err != nil {
		RespondValidationError(ctx, err.Error())
		return
	}

	hash := ""

	if req.Password != "" {
		var err error
		hash, err = h.hasher.Hash(req.Password)

		if err != nil {
			RespondInternal(ctx, "Could not create user")
			return
		}
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.Create(cctx, user.New(req.Name, req.Email, hash))

	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondEmailExists(ctx)
		case errors.Is(err, user.ErrInvalid):
			RespondValidationError(ctx, err.Error())
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	h.invalidateList()

	RespondSuccess(ctx, http.StatusCreated, "User created successfully", u)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	h.updateFields(ctx, "User updated successfully")
}

func (h *UsersHandler) UpdateUserProfile(ctx *gin.Context) {
	h.updateFields(ctx, "Profile updated successfully")
}

// updateFields applies profile changes. The request type has no password or
// role member, so whatever the caller supplies for those never reaches the
// store.
func (h *UsersHandler) updateFields(ctx *gin.Context, message string) {
	id := ctx.Param("id")

	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.Update(cctx, id, req)

	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondUserNotFound(ctx)
		case errors.Is(err, user.ErrEmailTaken):
			RespondEmailExists(ctx)
		case errors.Is(err, user.ErrInvalid):
			RespondValidationError(ctx, err.Error())
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	h.invalidateList()

	RespondSuccess(ctx, http.StatusOK, message, u)
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.Delete(cctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUserNotFound(ctx)
			return
		}

		RespondInternal(ctx, "Could not delete user")
		return
	}

	h.invalidateList()
	h.enqueueAccountDeleted(cctx, u, requestIDFrom(ctx))

	RespondSuccess(ctx, http.StatusOK, "User deleted successfully", u)
}

func (h *UsersHandler) invalidateList() {
	if h.cache != nil {
		h.cache.Delete(usersListCacheKey)
	}
}

// best effort, like the welcome mail
func (h *UsersHandler) enqueueAccountDeleted(ctx context.Context, u user.User, requestID string) {
	if h.queue == nil {
		return
	}

	payload := jobs.AccountDeletedPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	}

	b, err := jobs.EncodePayload(jobs.JobAccountDeleted, payload)

	if err != nil {
		h.log.Error("encode account-deleted payload failed", "err", err, "user_id", u.ID)
		return
	}

	j, err := jobs.NewJob(jobs.JobAccountDeleted, b, time.Time{})

	if err != nil {
		h.log.Error("build account-deleted job failed", "err", err, "user_id", u.ID)
		return
	}

	if err := h.queue.Enqueue(ctx, j); err != nil {
		h.log.Warn("enqueue account-deleted job failed", "err", err, "user_id", u.ID)
	}
}
