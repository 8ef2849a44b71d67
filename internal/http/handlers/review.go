package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-publish/internal/http/response"
	"github.com/yungbote/neurobridge-publish/internal/platform/apierr"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type ReviewHandler struct {
	queue services.ReviewQueueService
}

func NewReviewHandler(queue services.ReviewQueueService) *ReviewHandler {
	return &ReviewHandler{queue: queue}
}

// GET /api/review/queue?offset=
func (h *ReviewHandler) Queue(c *gin.Context) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, errBadOffset)
		return
	}
	page, err := h.queue.List(c.Request.Context(), offset)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"drafts":     page.Drafts,
		"offset":     page.Offset,
		"pageSize":   page.PageSize,
		"nextOffset": page.NextOffset,
	})
}

// POST /api/review/:id/approve
func (h *ReviewHandler) Approve(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	draft, err := h.queue.Approve(c.Request.Context(), id)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

type rejectRequest struct {
	Notes string `json:"notes"`
}

// POST /api/review/:id/reject
func (h *ReviewHandler) Reject(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	var req rejectRequest
	// Notes are optional; an empty body is a plain rejection.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, apierr.CodeBadRequest, err)
			return
		}
	}
	draft, err := h.queue.Reject(c.Request.Context(), id, req.Notes)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}
