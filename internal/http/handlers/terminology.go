package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/oncotrace/oncotrace-backend/internal/http/response"
	"github.com/oncotrace/oncotrace-backend/internal/services"
)

type TerminologyHandler struct {
	terminologyService services.TerminologyService
}

func NewTerminologyHandler(terminologyService services.TerminologyService) *TerminologyHandler {
	return &TerminologyHandler{terminologyService: terminologyService}
}

// Resolve looks one concept up by code, either within a named terminology
// binding or by code system URI.
func (th *TerminologyHandler) Resolve(c *gin.Context) {
	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	if terminology := strings.TrimSpace(c.Query("terminology")); terminology != "" {
		concept, err := th.terminologyService.ResolveInTerminology(c.Request.Context(), terminology, code)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.RespondOK(c, concept)
		return
	}
	if system := strings.TrimSpace(c.Query("system")); system != "" {
		concept, err := th.terminologyService.Resolve(c.Request.Context(), code, system)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.RespondOK(c, concept)
		return
	}
	response.RespondError(c, http.StatusBadRequest, "invalid_request", nil)
}

func (th *TerminologyHandler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", nil)
		return
	}
	terminology := strings.TrimSpace(c.Query("terminology"))
	limit := intQuery(c, "limit", 0)

	concepts, err := th.terminologyService.Search(c.Request.Context(), terminology, query, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": concepts})
}

// Descendants expands concept subtrees, for hierarchy-aware filtering.
func (th *TerminologyHandler) Descendants(c *gin.Context) {
	var req struct {
		RootIds      []string `json:"root_ids"`
		IncludeRoots bool     `json:"include_roots"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rootIDs := make([]uuid.UUID, 0, len(req.RootIds))
	for _, raw := range req.RootIds {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
			return
		}
		rootIDs = append(rootIDs, id)
	}
	ids, err := th.terminologyService.Descendants(c.Request.Context(), rootIDs, req.IncludeRoots)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ids": ids})
}
