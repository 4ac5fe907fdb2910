package app

import (
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/clients/redis"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	User        services.UserService
	Terminology services.TerminologyService
	TherapyLine services.TherapyLineService
	Resource    services.ResourceService

	Factory   *schema.Factory
	Resources []*services.ResourceDefinition
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, cache *redis.Client) Services {
	log.Info("Wiring services...")

	factory := schema.NewFactory()

	authService := services.NewAuthService(
		db, log,
		reposet.User,
		reposet.UserToken,
		cfg.JWTSecretKey,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)
	userService := services.NewUserService(db, log, reposet.User, reposet.UserToken)
	terminologyService := services.NewTerminologyService(log, reposet.Concept, cache)
	therapyLineService := services.NewTherapyLineService(db, log, reposet.PatientCase, reposet.Timeline, reposet.TherapyLine)
	resourceService := services.NewResourceService(db, log, factory, therapyLineService)

	return Services{
		Auth:        authService,
		User:        userService,
		Terminology: terminologyService,
		TherapyLine: therapyLineService,
		Resource:    resourceService,
		Factory:     factory,
		Resources:   services.ResourceDefinitions(),
	}
}
