package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oncotrace/oncotrace-backend/internal/http/handlers"
	"github.com/oncotrace/oncotrace-backend/internal/http/middleware"
	"github.com/oncotrace/oncotrace-backend/internal/observability"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

type RouterConfig struct {
	Log                *logger.Logger
	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	UserHandler        *handlers.UserHandler
	TerminologyHandler *handlers.TerminologyHandler
	HealthHandler      *handlers.HealthHandler
	ResourceService    services.ResourceService
	Resources          []*services.ResourceDefinition
	Metrics            *observability.Metrics
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("oncotrace"))
	router.Use(middleware.CORS())
	router.Use(middleware.AttachTraceContext())
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.Metrics(cfg.Metrics))

	// Public
	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/login", cfg.AuthHandler.Login)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
	}

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	api.POST("/auth/logout", cfg.AuthHandler.Logout)

	api.GET("/me", cfg.UserHandler.GetMe)
	api.PUT("/me", cfg.UserHandler.UpdateMe)

	admin := api.Group("/users", cfg.AuthMiddleware.RequireAdmin())
	{
		admin.GET("", cfg.UserHandler.List)
		admin.PUT("/:id/access-level", cfg.UserHandler.SetAccessLevel)
	}

	terminology := api.Group("/terminology", cfg.AuthMiddleware.RequireViewer())
	{
		terminology.GET("/resolve", cfg.TerminologyHandler.Resolve)
		terminology.GET("/search", cfg.TerminologyHandler.Search)
		terminology.POST("/descendants", cfg.TerminologyHandler.Descendants)
	}

	for _, def := range cfg.Resources {
		handler := handlers.NewResourceHandler(cfg.ResourceService, def)
		group := api.Group("/" + def.Name)
		group.GET("", cfg.AuthMiddleware.RequireViewer(), handler.List)
		group.GET("/:id", cfg.AuthMiddleware.RequireViewer(), handler.Get)
		if def.ReadOnly {
			continue
		}
		group.POST("", cfg.AuthMiddleware.RequireCurator(), handler.Create)
		group.PUT("/:id", cfg.AuthMiddleware.RequireCurator(), handler.Update)
		group.DELETE("/:id", cfg.AuthMiddleware.RequireCurator(), handler.Delete)
	}

	return router
}
