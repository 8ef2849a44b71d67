package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/http/response"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/platform/apierr"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type DraftHandlerDeps struct {
	Log        *logger.Logger
	Drafts     services.DraftService
	Publishing services.PublishingService
	Trash      services.TrashService
}

type DraftHandler struct {
	log    *logger.Logger
	drafts services.DraftService
	pub    services.PublishingService
	trash  services.TrashService
}

func NewDraftHandler(deps DraftHandlerDeps) *DraftHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &DraftHandler{
		log:    log.With("handler", "DraftHandler"),
		drafts: deps.Drafts,
		pub:    deps.Publishing,
		trash:  deps.Trash,
	}
}

// POST /api/drafts
func (h *DraftHandler) Create(c *gin.Context) {
	var body draftFields
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	content, err := body.content()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	draft, err := h.drafts.Create(c.Request.Context(), content)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"draft": draft})
}

// GET /api/drafts?trash=
func (h *DraftHandler) List(c *gin.Context) {
	trashed, _ := strconv.ParseBool(c.DefaultQuery("trash", "false"))
	drafts, err := h.drafts.ListMine(c.Request.Context(), trashed)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"drafts": drafts})
}

// GET /api/drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	draft, err := h.drafts.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

// PATCH /api/drafts/:id
func (h *DraftHandler) Update(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	var body draftFields
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	patch, err := body.patch()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	draft, err := h.drafts.Update(c.Request.Context(), id, patch)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

type setStateRequest struct {
	State string `json:"state"`
}

// POST /api/drafts/:id/state
func (h *DraftHandler) SetState(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	var req setStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
		return
	}
	state, valid := publishing.ParsePublishState(req.State)
	if !valid {
		response.RespondError(c, http.StatusBadRequest, "validation", errInvalidState)
		return
	}
	draft, err := h.drafts.SetManualState(c.Request.Context(), id, state)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

// POST /api/drafts/:id/submit
func (h *DraftHandler) Submit(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	draft, err := h.pub.Submit(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

// POST /api/drafts/:id/unpublish
func (h *DraftHandler) Unpublish(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	draft, err := h.pub.Unpublish(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

// DELETE /api/drafts/:id
func (h *DraftHandler) Delete(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	draft, err := h.trash.SoftDelete(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

// POST /api/drafts/:id/restore
func (h *DraftHandler) Restore(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	draft, err := h.trash.Restore(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

func draftIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return uuid.Nil, false
	}
	return id, true
}
