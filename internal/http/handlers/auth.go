package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/devhubhq/devhub/internal/auth"
	"github.com/devhubhq/devhub/internal/config"
	"github.com/devhubhq/devhub/internal/domain/user"
	"github.com/devhubhq/devhub/internal/jobs"
	"github.com/devhubhq/devhub/internal/security"
	"github.com/gin-gonic/gin"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, u user.User) (user.User, error)
}

// JobEnqueuer pushes notification jobs; nil disables the pipeline.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

type AuthHandler struct {
	users      UserReader
	userWriter UserWriter
	hasher     *security.Hasher
	jwt        *auth.Manager
	queue      JobEnqueuer
	log        *slog.Logger
}

func NewAuthHandler(users UserReader, userWriter UserWriter, hasher *security.Hasher, jwtManager *auth.Manager, queue JobEnqueuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:      users,
		userWriter: userWriter,
		hasher:     hasher,
		jwt:        jwtManager,
		queue:      queue,
		log:        log,
	}
}

type SignUpRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignUp(ctx *gin.Context) {
	var req SignUpRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if err := user.Validate(req.Name, req.Email); err != nil {
		RespondValidationError(ctx, err.Error())
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	// Existence check gives the friendly 409 early; the unique index closes
	// the race at insert time.
	_, err := h.users.GetByEmail(cctx, req.Email)

	if err == nil {
		RespondEmailExists(ctx)
		return
	}

	if !errors.Is(err, user.ErrNotFound) {
		RespondInternal(ctx, "Could not create user")
		return
	}

	hash, err := h.hasher.Hash(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.userWriter.Create(cctx, user.New(req.Name, req.Email, hash))

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

	token, err := h.jwt.Issue(u.ID, u.Email, u.Name, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	h.enqueueWelcome(cctx, u, requestIDFrom(ctx))

	RespondSuccess(ctx, http.StatusCreated, "User created successfully", gin.H{
		"token": token,
		"user":  u,
	})
}

func (h *AuthHandler) SignIn(ctx *gin.Context) {
	var req SignInRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// short timeout for DB lookup
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	foundUser, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondInvalidCredentials(ctx)
			return
		}

		RespondInternal(ctx, "Could not sign in")
		return
	}

	if !h.hasher.Verify(req.Password, foundUser.PasswordHash) {
		RespondInvalidCredentials(ctx)
		return
	}

	token, err := h.jwt.Issue(foundUser.ID, foundUser.Email, foundUser.Name, foundUser.Role)

	if err != nil {
		RespondInternal(ctx, "Could not generate token")
		return
	}

	RespondSuccess(ctx, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  foundUser,
	})
}

// enqueueWelcome is best effort: a queue outage must not fail a signup.
func (h *AuthHandler) enqueueWelcome(ctx context.Context, u user.User, requestID string) {
	if h.queue == nil {
		return
	}

	payload := jobs.WelcomeEmailPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		RequestedAt: time.Now().UTC(),
		RequestID:   requestID,
	}

	b, err := jobs.EncodePayload(jobs.JobWelcomeEmail, payload)

	if err != nil {
		h.log.Error("encode welcome payload failed", "err", err, "user_id", u.ID)
		return
	}

	j, err := jobs.NewJob(jobs.JobWelcomeEmail, b, time.Time{})

	if err != nil {
		h.log.Error("build welcome job failed", "err", err, "user_id", u.ID)
		return
	}

	if err := h.queue.Enqueue(ctx, j); err != nil {
		h.log.Warn("enqueue welcome job failed", "err", err, "user_id", u.ID)
	}
}
