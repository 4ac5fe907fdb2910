package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/http/response"
	"github.com/oncotrace/oncotrace-backend/internal/platform/ctxutil"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func userEnvelope(u *types.User) gin.H {
	return gin.H{
		"id":           u.ID,
		"username":     u.Username,
		"email":        u.Email,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"access_level": u.AccessLevel,
		"created_at":   u.CreatedAt,
	}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	user, err := uh.userService.Get(c.Request.Context(), rd.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, userEnvelope(user))
}

func (uh *UserHandler) UpdateMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := uh.userService.UpdateName(c.Request.Context(), rd.UserID, req.FirstName, req.LastName); err != nil {
		response.Error(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (uh *UserHandler) List(c *gin.Context) {
	users, err := uh.userService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userEnvelope(u))
	}
	response.RespondOK(c, gin.H{"items": out})
}

func (uh *UserHandler) SetAccessLevel(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var req struct {
		AccessLevel int `json:"access_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := uh.userService.SetAccessLevel(c.Request.Context(), userID, req.AccessLevel); err != nil {
		response.Error(c, err)
		return
	}
	response.RespondNoContent(c)
}
