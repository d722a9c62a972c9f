package http

import (
	"log/slog"

	"github.com/geocoder89/fishin/internal/auth"
	"github.com/geocoder89/fishin/internal/cache"
	"github.com/geocoder89/fishin/internal/config"
	"github.com/geocoder89/fishin/internal/http/handlers"
	"github.com/geocoder89/fishin/internal/http/middlewares"
	"github.com/geocoder89/fishin/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "fishin-api"

// Deps are the collaborators the router mounts. Cache, Prom and Checks are
// optional.
type Deps struct {
	Fish   handlers.FishStore
	Users  handlers.UserStore
	Tokens *auth.Manager
	Cache  cache.Cache
	Prom   *observability.Prom
	Checks map[string]handlers.Check
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))

	var (
		cacheMetrics handlers.CacheMetrics
		authMetrics  handlers.AuthMetrics
	)
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		cacheMetrics = deps.Prom
		authMetrics = deps.Prom
		r.GET("/metrics", gin.WrapH(deps.Prom.Handler()))
	}

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))

	// health
	h := handlers.NewHealthHandler(deps.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	usersHandler := handlers.NewUsersHandler(deps.Users, deps.Tokens, authMetrics, log)
	api.POST("/users", usersHandler.CreateUser)
	api.POST("/token", usersHandler.IssueToken)
	api.GET("/me", usersHandler.Me)

	fishHandler := handlers.NewFishHandler(deps.Fish, deps.Cache, cacheMetrics, log)

	fishGroup := api.Group("/fish")
	if cfg.FishRequireAuth {
		fishGroup.Use(middlewares.NewAuthMiddleware(deps.Tokens).RequireAuth())
	}

	fishGroup.GET("", fishHandler.ListFish)
	fishGroup.GET("/:id", fishHandler.GetFish)
	fishGroup.POST("", fishHandler.CreateFish)
	fishGroup.PUT("/:id", fishHandler.UpdateFish)
	fishGroup.PATCH("/:id", fishHandler.PatchFish)
	fishGroup.DELETE("/:id", fishHandler.DeleteFish)

	return r
}
