package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/devhubhq/devhub/internal/auth"
	"github.com/devhubhq/devhub/internal/domain/user"
	"github.com/devhubhq/devhub/internal/http/handlers"
	"github.com/devhubhq/devhub/internal/jobs"
	"github.com/devhubhq/devhub/internal/security"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repository implementation of the handlers.UserReader and
// handlers.UserWriter interfaces

type fakeAuthRepo struct {
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	createFn     func(ctx context.Context, u user.User) (user.User, error)
}

func (f *fakeAuthRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}

	return user.User{}, user.ErrNotFound
}

func (f *fakeAuthRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}

	return u, nil
}

type fakeEnqueuer struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, j jobs.Job) error {
	if f.err != nil {
		return f.err
	}

	f.jobs = append(f.jobs, j)
	return nil
}

// envelope mirrors the wire shape so tests can assert on all three members
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testHasher(t *testing.T) *security.Hasher {
	t.Helper()

	// min cost keeps the suite fast
	h, err := security.NewHasher(bcrypt.MinCost)

	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	return h
}

// small helper function which returns the gin engine to mount one handler per test

func setupRouter(method, path string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, h)

	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope

	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v, body=%s", err, w.Body.String())
	}

	return w, env
}

// Sign up tests

func TestSignUpHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		repoSetUp  func(*fakeAuthRepo)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"name": "Ann", "email": "Ann@Example.com", "password": "secret1"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return u, nil
				}
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing_fields",
			body: `{"email": "ann@example.com"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				// invalid request, the repo should not be called
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_FIELDS",
		},
		{
			name:       "empty_body",
			body:       ``,
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_FIELDS",
		},
		{
			name:       "short_password",
			body:       `{"name": "Ann", "email": "ann@example.com", "password": "abc"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "malformed_email",
			body:       `{"name": "Ann", "email": "not-an-email", "password": "secret1"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name: "email_already_registered",
			body: `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{ID: "existing", Email: email}, nil
				}
			},
			wantStatus: http.StatusConflict,
			wantCode:   "EMAIL_EXISTS",
		},
		{
			name: "insert_race_maps_to_conflict",
			body: `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantStatus: http.StatusConflict,
			wantCode:   "EMAIL_EXISTS",
		},
		{
			name: "repo_error",
			body: `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				f.createFn = func(ctx context.Context, u user.User) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAuthRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			jwtManager := auth.NewManager("test-secret", time.Hour)

			h := handlers.NewAuthHandler(repo, repo, testHasher(t), jwtManager, nil, testLogger())

			r := setupRouter(http.MethodPost, "/auth/signup", h.SignUp)

			w, env := doJSON(t, r, http.MethodPost, "/auth/signup", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" && env.Code != tt.wantCode {
				t.Fatalf("got code %q, want %q", env.Code, tt.wantCode)
			}

			if tt.wantStatus != http.StatusCreated {
				return
			}

			if !env.Success || env.Message != "User created successfully" {
				t.Fatalf("unexpected success envelope: %s", w.Body.String())
			}

			var data struct {
				Token string    `json:"token"`
				User  user.User `json:"user"`
			}

			if err := json.Unmarshal(env.Data, &data); err != nil {
				t.Fatalf("decode data: %v", err)
			}

			if data.Token == "" {
				t.Fatal("expected a token in the response")
			}

			// email comes back normalized
			if data.User.Email != "ann@example.com" {
				t.Fatalf("got email %q, want normalized form", data.User.Email)
			}

			if data.User.Role != user.DefaultRole {
				t.Fatalf("got role %q, want %q", data.User.Role, user.DefaultRole)
			}

			// hash must never leak through the wire
			if strings.Contains(w.Body.String(), "passwordHash") || strings.Contains(w.Body.String(), "$2a$") {
				t.Fatalf("password hash leaked: %s", w.Body.String())
			}

			claims, err := auth.NewManager("test-secret", time.Hour).Verify(data.Token)

			if err != nil {
				t.Fatalf("issued token does not verify: %v", err)
			}

			if claims.Email != "ann@example.com" {
				t.Fatalf("token email claim %q", claims.Email)
			}
		})
	}
}

func TestSignUpEnqueuesWelcomeJob(t *testing.T) {
	repo := &fakeAuthRepo{}
	q := &fakeEnqueuer{}

	h := handlers.NewAuthHandler(repo, repo, testHasher(t), auth.NewManager("test-secret", time.Hour), q, testLogger())

	r := setupRouter(http.MethodPost, "/auth/signup", h.SignUp)

	w, _ := doJSON(t, r, http.MethodPost, "/auth/signup", `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(q.jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(q.jobs))
	}

	if q.jobs[0].Type != jobs.JobWelcomeEmail {
		t.Fatalf("got job type %q", q.jobs[0].Type)
	}
}

func TestSignUpSurvivesQueueOutage(t *testing.T) {
	repo := &fakeAuthRepo{}
	q := &fakeEnqueuer{err: errors.New("redis down")}

	h := handlers.NewAuthHandler(repo, repo, testHasher(t), auth.NewManager("test-secret", time.Hour), q, testLogger())

	r := setupRouter(http.MethodPost, "/auth/signup", h.SignUp)

	w, _ := doJSON(t, r, http.MethodPost, "/auth/signup", `{"name": "Ann", "email": "ann@example.com", "password": "secret1"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("signup should not fail on queue outage, got %d", w.Code)
	}
}

// Sign in tests

func TestSignInHandler(t *testing.T) {
	hasher := testHasher(t)

	hash, err := hasher.Hash("secret1")

	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	known := user.User{
		ID:           "u-1",
		Email:        "ann@example.com",
		Name:         "Ann",
		Role:         "user",
		PasswordHash: hash,
	}

	tests := []struct {
		name       string
		body       string
		repoSetUp  func(*fakeAuthRepo)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"email": "ann@example.com", "password": "secret1"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return known, nil
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown_email",
			body:       `{"email": "ghost@example.com", "password": "secret1"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name: "wrong_password",
			body: `{"email": "ann@example.com", "password": "nope-nope"}`,
			repoSetUp: func(f *fakeAuthRepo) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return known, nil
				}
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_CREDENTIALS",
		},
		{
			name:       "missing_fields",
			body:       `{"email": "ann@example.com"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_FIELDS",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAuthRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewAuthHandler(repo, repo, hasher, auth.NewManager("test-secret", time.Hour), nil, testLogger())

			r := setupRouter(http.MethodPost, "/auth/signin", h.SignIn)

			w, env := doJSON(t, r, http.MethodPost, "/auth/signin", tt.body)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" && env.Code != tt.wantCode {
				t.Fatalf("got code %q, want %q", env.Code, tt.wantCode)
			}

			if tt.wantStatus == http.StatusOK && env.Message != "Login successful" {
				t.Fatalf("got message %q", env.Message)
			}
		})
	}
}

// unknown email and wrong password must be indistinguishable on the wire

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	hasher := testHasher(t)
	hash, _ := hasher.Hash("secret1")

	known := user.User{ID: "u-1", Email: "ann@example.com", PasswordHash: hash}

	unknownRepo := &fakeAuthRepo{}
	wrongPassRepo := &fakeAuthRepo{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return known, nil
		},
	}

	bodies := map[*fakeAuthRepo]string{
		unknownRepo:   `{"email": "ghost@example.com", "password": "secret1"}`,
		wrongPassRepo: `{"email": "ann@example.com", "password": "wrong-pass"}`,
	}

	var responses []string

	for repo, body := range bodies {
		h := handlers.NewAuthHandler(repo, repo, hasher, auth.NewManager("test-secret", time.Hour), nil, testLogger())
		r := setupRouter(http.MethodPost, "/auth/signin", h.SignIn)

		w, _ := doJSON(t, r, http.MethodPost, "/auth/signin", body)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("got status %d, want 401", w.Code)
		}

		responses = append(responses, w.Body.String())
	}

	if responses[0] != responses[1] {
		t.Fatalf("failure bodies differ:\n%s\n%s", responses[0], responses[1])
	}
}
