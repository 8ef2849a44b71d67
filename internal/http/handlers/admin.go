package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-publish/internal/http/response"
	"github.com/yungbote/neurobridge-publish/internal/pkg/logger"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type AdminHandler struct {
	log        *logger.Logger
	trash      services.TrashService
	reconciler services.Reconciler
}

func NewAdminHandler(log *logger.Logger, trash services.TrashService, reconciler services.Reconciler) *AdminHandler {
	return &AdminHandler{log: log.With("handler", "AdminHandler"), trash: trash, reconciler: reconciler}
}

// DELETE /api/admin/drafts/:id
func (h *AdminHandler) HardDelete(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}
	if err := h.trash.HardDelete(c.Request.Context(), id); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.reconciler.RunOnce(c.Request.Context())
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	h.log.Info("manual reconcile finished",
		"republished", report.Republished,
		"pointers_fixed", report.PointersFixed,
		"deactivated", report.Deactivated,
		"errors", report.Errors,
	)
	response.RespondOK(c, gin.H{"report": report})
}
