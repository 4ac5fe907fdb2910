package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
)

func testAuthService(accessTTL time.Duration) *authService {
	return &authService{
		jwtSecretKey: []byte("test-secret"),
		accessTTL:    accessTTL,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	as := testAuthService(time.Hour)
	user := &types.User{
		ID:          uuid.New(),
		Username:    "curator1",
		AccessLevel: types.AccessLevelCurator,
	}

	token, err := as.generateAccessToken(user)
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}

	rd, err := as.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if rd.UserID != user.ID {
		t.Errorf("UserID = %s, want %s", rd.UserID, user.ID)
	}
	if rd.Username != "curator1" {
		t.Errorf("Username = %q", rd.Username)
	}
	if rd.AccessLevel != types.AccessLevelCurator {
		t.Errorf("AccessLevel = %d, want %d", rd.AccessLevel, types.AccessLevelCurator)
	}
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	as := testAuthService(time.Hour)
	token, err := as.generateAccessToken(&types.User{ID: uuid.New(), Username: "u"})
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}

	other := testAuthService(time.Hour)
	other.jwtSecretKey = []byte("different-secret")
	if _, err := other.Authenticate(context.Background(), token); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("wrong key: err = %v, want unauthorized", err)
	}

	if _, err := as.Authenticate(context.Background(), token+"x"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("mangled token: err = %v, want unauthorized", err)
	}

	if _, err := as.Authenticate(context.Background(), "not a jwt"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("garbage token: err = %v, want unauthorized", err)
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	as := testAuthService(-time.Minute)
	token, err := as.generateAccessToken(&types.User{ID: uuid.New(), Username: "u"})
	if err != nil {
		t.Fatalf("generateAccessToken: %v", err)
	}
	if _, err := as.Authenticate(context.Background(), token); !errors.Is(err, errs.ErrUnauthorized) {
		t.Errorf("expired token: err = %v, want unauthorized", err)
	}
}

func TestRegisterRequiresCredentials(t *testing.T) {
	as := testAuthService(time.Hour)

	cases := []*types.User{
		{Email: "a@b.c", Password: "pw"},
		{Username: "u", Password: "pw"},
		{Username: "u", Email: "a@b.c"},
		{Username: "   ", Email: "a@b.c", Password: "pw"},
	}
	for _, user := range cases {
		if _, err := as.Register(context.Background(), user); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("user %+v: err = %v, want invalid argument", user, err)
		}
	}
}

func TestSetAccessLevelRange(t *testing.T) {
	us := &userService{}
	for _, level := range []int{-1, types.AccessLevelAdmin + 1, 99} {
		err := us.SetAccessLevel(context.Background(), uuid.New(), level)
		if !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("level %d: err = %v, want invalid argument", level, err)
		}
	}
}
