package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/http/response"
	"github.com/yungbote/neurobridge-publish/internal/platform/apierr"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

// PublishHandler is the server-side publish surface used by trusted clients
// and reviewer tooling.
type PublishHandler struct {
	pub services.PublishingService
}

func NewPublishHandler(pub services.PublishingService) *PublishHandler {
	return &PublishHandler{pub: pub}
}

type publishRequest struct {
	DraftID    string `json:"draftId"`
	Visibility string `json:"visibility"`
}

// POST /api/publish
func (h *PublishHandler) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	draftID, err := uuid.Parse(strings.TrimSpace(req.DraftID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	var vis publishing.Visibility
	if strings.TrimSpace(req.Visibility) != "" {
		v, ok := publishing.ParseVisibility(req.Visibility)
		if !ok {
			response.RespondError(c, http.StatusBadRequest, "validation", errBadVisibility)
			return
		}
		vis = v
	}
	publishedID, err := h.pub.Publish(c.Request.Context(), draftID, vis)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"publishedId": publishedID})
}

type unpublishRequest struct {
	ID      string `json:"id"`
	DraftID string `json:"draftId"`
}

// POST /api/unpublish
func (h *PublishHandler) Unpublish(c *gin.Context) {
	var req unpublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	replicaID := strings.TrimSpace(req.ID)
	if replicaID == "" {
		response.RespondError(c, http.StatusBadRequest, "validation", errMissingReplicaID)
		return
	}
	draftID := uuid.Nil
	if raw := strings.TrimSpace(req.DraftID); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
			return
		}
		draftID = id
	}
	if err := h.pub.UnpublishReplica(c.Request.Context(), replicaID, draftID); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}
