package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos"
	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/ctxutil"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/utils"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	Register(ctx context.Context, user *types.User) (*types.User, error)
	Login(ctx context.Context, username, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*ctxutil.RequestData, error)
	AccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := baseLog.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  []byte(jwtSecretKey),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) AccessTTL() time.Duration { return as.accessTTL }

func (as *authService) Register(ctx context.Context, user *types.User) (*types.User, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Username == "" || user.Email == "" || user.Password == "" {
		return nil, errs.InvalidArgumentf("username, email and password are required")
	}

	exists, err := as.userRepo.UsernameExists(ctx, nil, user.Username)
	if err != nil {
		return nil, errs.FromDB(err)
	}
	if exists {
		return nil, errs.InvalidArgumentf("username %q is already taken", user.Username)
	}

	hashed, err := utils.HashPassword(user.Password)
	if err != nil {
		return nil, err
	}
	user.Password = hashed
	if user.AccessLevel == types.AccessLevelNone {
		user.AccessLevel = types.AccessLevelViewer
	}

	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user.ID = uuid.New()
		_, err := as.userRepo.Create(ctx, tx, []*types.User{user})
		return errs.FromDB(err)
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("Registered user", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (as *authService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := as.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		// One failure mode for bad username and bad password.
		return nil, errs.Unauthorizedf("invalid credentials")
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, errs.Unauthorizedf("invalid credentials")
	}
	return as.issuePair(ctx, user)
}

func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	row, err := as.userTokenRepo.GetByHash(ctx, nil, utils.HashToken(refreshToken))
	if err != nil {
		return nil, errs.Unauthorizedf("invalid refresh token")
	}
	if row.RevokedAt != nil || time.Now().After(row.ExpiresAt) || row.User == nil {
		return nil, errs.Unauthorizedf("refresh token expired")
	}
	// Rotation: the presented token dies with the refresh.
	if err := as.userTokenRepo.Revoke(ctx, nil, []uuid.UUID{row.ID}); err != nil {
		return nil, errs.FromDB(err)
	}
	return as.issuePair(ctx, row.User)
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	row, err := as.userTokenRepo.GetByHash(ctx, nil, utils.HashToken(refreshToken))
	if err != nil {
		return nil
	}
	return errs.FromDB(as.userTokenRepo.Revoke(ctx, nil, []uuid.UUID{row.ID}))
}

func (as *authService) issuePair(ctx context.Context, user *types.User) (*TokenPair, error) {
	access, err := as.generateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.RandomToken()
	if err != nil {
		return nil, err
	}

	_, err = as.userTokenRepo.Create(ctx, nil, []*types.UserToken{{
		UserID:    user.ID,
		TokenHash: utils.HashToken(refresh),
		ExpiresAt: time.Now().Add(as.refreshTTL),
	}})
	if err != nil {
		return nil, errs.FromDB(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

type accessClaims struct {
	Username    string `json:"username"`
	AccessLevel int    `json:"access_level"`
	jwt.RegisteredClaims
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	now := time.Now()
	claims := accessClaims{
		Username:    user.Username,
		AccessLevel: user.AccessLevel,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.jwtSecretKey)
	if err != nil {
		return "", errs.Internalf("failed to sign access token: %v", err)
	}
	return signed, nil
}

// Authenticate validates a bearer token and returns the request identity.
func (as *authService) Authenticate(ctx context.Context, accessToken string) (*ctxutil.RequestData, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.Unauthorizedf("unexpected signing method")
		}
		return as.jwtSecretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, errs.Unauthorizedf("invalid access token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errs.Unauthorizedf("invalid subject claim")
	}
	return &ctxutil.RequestData{
		TokenString: accessToken,
		UserID:      userID,
		Username:    claims.Username,
		AccessLevel: claims.AccessLevel,
	}, nil
}
