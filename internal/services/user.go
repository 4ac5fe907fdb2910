package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos"
	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type UserService interface {
	Get(ctx context.Context, userID uuid.UUID) (*types.User, error)
	List(ctx context.Context) ([]*types.User, error)
	SetAccessLevel(ctx context.Context, userID uuid.UUID, level int) error
	UpdateName(ctx context.Context, userID uuid.UUID, firstName, lastName string) error
	RevokeSessions(ctx context.Context, userID uuid.UUID) error
}

type userService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
}

func NewUserService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
) UserService {
	serviceLog := baseLog.With("service", "UserService")
	return &userService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
	}
}

func (us *userService) Get(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, errs.FromDB(err)
	}
	if len(users) == 0 {
		return nil, errs.NotFoundf("user %s not found", userID)
	}
	return users[0], nil
}

func (us *userService) List(ctx context.Context) ([]*types.User, error) {
	users, err := us.userRepo.List(ctx, nil)
	if err != nil {
		return nil, errs.FromDB(err)
	}
	return users, nil
}

func (us *userService) SetAccessLevel(ctx context.Context, userID uuid.UUID, level int) error {
	if level < types.AccessLevelNone || level > types.AccessLevelAdmin {
		return errs.InvalidArgumentf("access level %d is out of range", level)
	}
	return us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := us.userRepo.UpdateAccessLevel(ctx, tx, userID, level); err != nil {
			return errs.FromDB(err)
		}
		// Dropping below viewer locks the account out immediately.
		if level < types.AccessLevelViewer {
			if err := us.userTokenRepo.RevokeByUserIDs(ctx, tx, []uuid.UUID{userID}); err != nil {
				return errs.FromDB(err)
			}
		}
		return nil
	})
}

func (us *userService) UpdateName(ctx context.Context, userID uuid.UUID, firstName, lastName string) error {
	if err := us.userRepo.UpdateName(ctx, nil, userID, firstName, lastName); err != nil {
		return errs.FromDB(err)
	}
	return nil
}

func (us *userService) RevokeSessions(ctx context.Context, userID uuid.UUID) error {
	if err := us.userTokenRepo.RevokeByUserIDs(ctx, nil, []uuid.UUID{userID}); err != nil {
		return errs.FromDB(err)
	}
	return nil
}
