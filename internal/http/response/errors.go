package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
)

// Error maps a service error onto the HTTP status and code of its
// sentinel. Unclassified errors surface as 500 internal.
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, errs.ErrConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, errs.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, errs.ErrUnauthorized):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, errs.ErrForbidden):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
