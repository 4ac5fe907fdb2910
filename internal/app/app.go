package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/clients/redis"
	"github.com/oncotrace/oncotrace-backend/internal/data/db"
	"github.com/oncotrace/oncotrace-backend/internal/http/handlers"
	"github.com/oncotrace/oncotrace-backend/internal/http/middleware"
	"github.com/oncotrace/oncotrace-backend/internal/observability"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/server"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Cache    *redis.Client
	Metrics  *observability.Metrics

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	cache, err := redis.NewClient(log)
	if err != nil {
		log.Warn("Redis unavailable, terminology cache disabled", "error", err)
		cache = nil
	}

	metrics := observability.Init(log)

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, cache)

	authMiddleware := middleware.NewAuthMiddleware(log, serviceset.Auth)
	router := server.NewRouter(server.RouterConfig{
		Log:                log,
		AuthHandler:        handlers.NewAuthHandler(serviceset.Auth),
		AuthMiddleware:     authMiddleware,
		UserHandler:        handlers.NewUserHandler(serviceset.User),
		TerminologyHandler: handlers.NewTerminologyHandler(serviceset.Terminology),
		HealthHandler:      handlers.NewHealthHandler(theDB, cache),
		ResourceService:    serviceset.Resource,
		Resources:          serviceset.Resources,
		Metrics:            metrics,
	})

	return &App{
		Log:      log,
		DB:       theDB,
		Router:   router,
		Cfg:      cfg,
		Repos:    reposet,
		Services: serviceset,
		Cache:    cache,
		Metrics:  metrics,
	}, nil
}

// Start launches the background pieces: tracing, the metrics listener and
// its collectors.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.otelShutdown = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		ServiceName: "oncotrace",
		Environment: a.Cfg.Environment,
		Version:     a.Cfg.Version,
	})

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartCollectors(ctx, a.Log, a.DB, a.Cache.Raw())
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(shutdownCtx)
		cancel()
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
