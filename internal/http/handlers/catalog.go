package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/http/response"
	"github.com/yungbote/neurobridge-publish/internal/platform/apierr"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

var errContentUnavailable = errors.New("lesson unavailable")

type CatalogHandler struct {
	resolver services.LessonResolver
}

func NewCatalogHandler(resolver services.LessonResolver) *CatalogHandler {
	return &CatalogHandler{resolver: resolver}
}

// GET /api/catalog/lessons?limit=&offset=
func (h *CatalogHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, errBadOffset)
		return
	}
	lessons, err := h.resolver.ListCatalog(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lessons": lessons})
}

// GET /api/catalog/lessons/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	lesson, err := h.resolver.Resolve(c.Request.Context(), c.Param("id"))
	if domainagg.IsCode(err, domainagg.CodeNotFound) || domainagg.IsCode(err, domainagg.CodePermissionDenied) {
		// Missing, hidden and denied lessons look the same from outside.
		_ = c.Error(err)
		response.RespondError(c, http.StatusNotFound, apierr.CodeContentUnavailable, errContentUnavailable)
		return
	}
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"lesson": lesson})
}
