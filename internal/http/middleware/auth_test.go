package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/ctxutil"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

type stubAuthService struct {
	rd  *ctxutil.RequestData
	err error
}

func (s *stubAuthService) Register(context.Context, *types.User) (*types.User, error) {
	return nil, nil
}
func (s *stubAuthService) Login(context.Context, string, string) (*services.TokenPair, error) {
	return nil, nil
}
func (s *stubAuthService) Refresh(context.Context, string) (*services.TokenPair, error) {
	return nil, nil
}
func (s *stubAuthService) Logout(context.Context, string) error { return nil }
func (s *stubAuthService) AccessTTL() time.Duration             { return time.Hour }
func (s *stubAuthService) Authenticate(context.Context, string) (*ctxutil.RequestData, error) {
	return s.rd, s.err
}

func authRouter(t *testing.T, stub *stubAuthService, minLevel int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	am := NewAuthMiddleware(log, stub)

	r := gin.New()
	group := r.Group("/api", am.RequireAuth(), am.RequireAccessLevel(minLevel))
	group.GET("/ping", func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": rd.UserID})
	})
	return r
}

func TestRequireAuthMissingToken(t *testing.T) {
	r := authRouter(t, &stubAuthService{}, types.AccessLevelViewer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	r := authRouter(t, &stubAuthService{err: errs.Unauthorizedf("invalid access token")}, types.AccessLevelViewer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAuthAttachesRequestData(t *testing.T) {
	rd := &ctxutil.RequestData{UserID: uuid.New(), Username: "v", AccessLevel: types.AccessLevelViewer}
	r := authRouter(t, &stubAuthService{rd: rd}, types.AccessLevelViewer)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestRequireAccessLevelBlocksViewerWrites(t *testing.T) {
	rd := &ctxutil.RequestData{UserID: uuid.New(), Username: "v", AccessLevel: types.AccessLevelViewer}
	r := authRouter(t, &stubAuthService{rd: rd}, types.AccessLevelCurator)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestExtractTokenHeaderShapes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			c.Request.Header.Set("Authorization", tc.header)
		}
		if got := extractToken(c); got != tc.want {
			t.Errorf("header %q: token = %q, want %q", tc.header, got, tc.want)
		}
	}
}
