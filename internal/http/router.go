package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/devhubhq/devhub/internal/auth"
	"github.com/devhubhq/devhub/internal/cache"
	"github.com/devhubhq/devhub/internal/config"
	"github.com/devhubhq/devhub/internal/http/handlers"
	"github.com/devhubhq/devhub/internal/http/middlewares"
	"github.com/devhubhq/devhub/internal/observability"
	"github.com/devhubhq/devhub/internal/repo/postgres"
	"github.com/devhubhq/devhub/internal/security"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, hasher *security.Hasher, enq handlers.JobEnqueuer, cfg config.Config, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20)) // 1 MiB
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware(cfg.ServiceName))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	projectsRepo := postgres.NewProjectsRepo(pool, prom)

	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())
	authmw := middlewares.NewAuthMiddleware(jwtManager)

	listCache := cache.New(30 * time.Second)

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, hasher, jwtManager, enq, log)
	usersHandler := handlers.NewUsersHandlerWithCache(usersRepo, projectsRepo, hasher, enq, log, listCache)

	// the credential endpoints get a fixed-window limiter keyed by IP
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/signup", authHandler.SignUp)
		authGroup.POST("/signin", authHandler.SignIn)
	}

	users := r.Group("/users")
	users.Use(authmw.RequireAuth())
	{
		users.GET("", usersHandler.ListUsers)
		users.GET("/:id", usersHandler.GetUserByID)
		users.GET("/:id/profile", usersHandler.GetUserProfile)
		users.GET("/:id/projects", usersHandler.GetUserProjects)
		users.PUT("/:id", usersHandler.UpdateUser)
		users.PUT("/:id/profile", usersHandler.UpdateUserProfile)

		// administrative surface
		users.POST("", authmw.RequireRole("admin"), usersHandler.CreateUser)
		users.DELETE("/:id", authmw.RequireRole("admin"), usersHandler.DeleteUser)
	}

	return r
}
