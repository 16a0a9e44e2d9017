package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/devhubhq/devhub/internal/auth"
	"github.com/devhubhq/devhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f *fakeVerifier) Verify(token string) (*auth.Claims, error) {
	if f.verifyFn != nil {
		return f.verifyFn(token)
	}

	return nil, auth.ErrInvalidToken
}

type failEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func protectedRouter(v middlewares.TokenVerifier, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	mw := middlewares.NewAuthMiddleware(v)

	if handler == nil {
		handler = func(c *gin.Context) {
			c.Status(http.StatusOK)
		}
	}

	r.GET("/protected", mw.RequireAuth(), handler)

	return r
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name        string
		authHeader  string
		verifyFn    func(token string) (*auth.Claims, error)
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "no_header",
			authHeader:  "",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "NO_TOKEN",
			wantMessage: "Access denied. No token provided.",
		},
		{
			name:        "wrong_scheme",
			authHeader:  "Basic abc123",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "NO_TOKEN",
			wantMessage: "Access denied. No token provided.",
		},
		{
			name:       "bearer_without_token",
			authHeader: "Bearer ",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "NO_TOKEN",
		},
		{
			name:       "rejected_token",
			authHeader: "Bearer bad-token",
			verifyFn: func(token string) (*auth.Claims, error) {
				return nil, auth.ErrInvalidToken
			},
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "INVALID_TOKEN",
			wantMessage: "Invalid token.",
		},
		{
			// expiry is still just an invalid token on the wire
			name:       "expired_token",
			authHeader: "Bearer stale-token",
			verifyFn: func(token string) (*auth.Claims, error) {
				return nil, auth.ErrTokenExpired
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_TOKEN",
		},
		{
			name:       "valid_token",
			authHeader: "Bearer good-token",
			verifyFn: func(token string) (*auth.Claims, error) {
				return &auth.Claims{UserID: "u-1", Email: "ann@example.com", Role: "user"}, nil
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := protectedRouter(&fakeVerifier{verifyFn: tt.verifyFn}, nil)

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)

			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode == "" {
				return
			}

			var env failEnvelope

			if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}

			if env.Success {
				t.Fatal("failure envelope claims success")
			}

			if env.Code != tt.wantCode {
				t.Fatalf("got code %q, want %q", env.Code, tt.wantCode)
			}

			if tt.wantMessage != "" && env.Message != tt.wantMessage {
				t.Fatalf("got message %q, want %q", env.Message, tt.wantMessage)
			}
		})
	}
}

func TestRequireAuthStashesClaims(t *testing.T) {
	v := &fakeVerifier{
		verifyFn: func(token string) (*auth.Claims, error) {
			return &auth.Claims{UserID: "u-1", Email: "ann@example.com", Name: "Ann", Role: "admin"}, nil
		},
	}

	r := protectedRouter(v, func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		email, _ := middlewares.EmailFromContext(c)
		role, _ := middlewares.RoleFromContext(c)

		c.JSON(http.StatusOK, gin.H{"id": id, "email": email, "role": role})
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var got map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &got)

	if got["id"] != "u-1" || got["email"] != "ann@example.com" || got["role"] != "admin" {
		t.Fatalf("claims not propagated: %v", got)
	}
}

func TestRequireAuthAcceptsRealTokens(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)

	token, err := manager.Issue("u-1", "ann@example.com", "Ann", "user")

	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	r := protectedRouter(manager, nil)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
		wantCode   string
	}{
		{name: "admin_allowed", role: "admin", wantStatus: http.StatusOK},
		{name: "plain_user_forbidden", role: "user", wantStatus: http.StatusForbidden, wantCode: "FORBIDDEN"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVerifier{
				verifyFn: func(token string) (*auth.Claims, error) {
					return &auth.Claims{UserID: "u-1", Role: tt.role}, nil
				},
			}

			mw := middlewares.NewAuthMiddleware(v)

			r := gin.New()
			r.DELETE("/admin", mw.RequireAuth(), mw.RequireRole("admin"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
			req.Header.Set("Authorization", "Bearer token")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" {
				var env failEnvelope
				_ = json.Unmarshal(w.Body.Bytes(), &env)

				if env.Code != tt.wantCode {
					t.Fatalf("got code %q, want %q", env.Code, tt.wantCode)
				}
			}
		})
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	mw := middlewares.NewAuthMiddleware(&fakeVerifier{})

	r := gin.New()

	// RequireRole mounted without RequireAuth in front: no identity on the
	// context, so the gate must fail closed.
	r.DELETE("/admin", mw.RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
