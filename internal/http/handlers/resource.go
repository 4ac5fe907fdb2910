package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncotrace/oncotrace-backend/internal/http/response"
	"github.com/oncotrace/oncotrace-backend/internal/observability"
	"github.com/oncotrace/oncotrace-backend/internal/platform/ctxutil"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

// Query parameters with routing meaning; everything else is handed to the
// filter catalog.
var reservedParams = map[string]bool{
	"page":       true,
	"pageSize":   true,
	"sort":       true,
	"anonymized": true,
	"expand":     true,
}

// ResourceHandler serves the uniform CRUD surface of every registered
// resource.
type ResourceHandler struct {
	resourceService services.ResourceService
	def             *services.ResourceDefinition
}

func NewResourceHandler(resourceService services.ResourceService, def *services.ResourceDefinition) *ResourceHandler {
	return &ResourceHandler{resourceService: resourceService, def: def}
}

func (rh *ResourceHandler) List(c *gin.Context) {
	params := services.ListParams{
		Query:      filterQuery(c.Request.URL.Query()),
		Page:       intQuery(c, "page", 1),
		PageSize:   intQuery(c, "pageSize", 0),
		Sort:       c.Query("sort"),
		Anonymized: rh.anonymized(c),
	}
	result, err := rh.resourceService.List(c.Request.Context(), rh.def, params)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"items":    result.Items,
		"total":    result.Total,
		"page":     result.Page,
		"pageSize": result.PageSize,
	})
}

func (rh *ResourceHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	envelope, err := rh.resourceService.Get(c.Request.Context(), rh.def, id, rh.anonymized(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, envelope)
}

func (rh *ResourceHandler) Create(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	id, err := rh.resourceService.Create(c.Request.Context(), rh.def, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"id": id})
}

func (rh *ResourceHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := rh.resourceService.Update(c.Request.Context(), rh.def, id, payload); err != nil {
		response.Error(c, err)
		return
	}
	response.RespondNoContent(c)
}

func (rh *ResourceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := rh.resourceService.Delete(c.Request.Context(), rh.def, id); err != nil {
		response.Error(c, err)
		return
	}
	response.RespondNoContent(c)
}

// anonymized reports whether this request must be served in anonymized
// form: either the client asked for it, or the caller's access level does
// not include identified reads.
func (rh *ResourceHandler) anonymized(c *gin.Context) bool {
	if strings.EqualFold(c.Query("anonymized"), "true") {
		if m := observability.Current(); m != nil {
			m.ObserveAnonymizedRead()
		}
		return true
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	return rd != nil && rd.Anonymized
}

func filterQuery(query url.Values) url.Values {
	out := url.Values{}
	for key, values := range query {
		if reservedParams[key] {
			continue
		}
		out[key] = values
	}
	return out
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
