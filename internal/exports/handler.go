package exports

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-export/internal/quota"
	"resume-export/internal/render"
	"resume-export/internal/shared/server/middleware"
	"resume-export/internal/shared/server/respond"
	"resume-export/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the export service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches export routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/:id/exports", h.enqueue)
	rg.GET("/resumes/:id/exports/:exportId", h.status)
	rg.GET("/resumes/:id/exports/:exportId/file", h.artifact)
	rg.GET("/resumes/:id/export/pdf", h.download)
}

func (h *Handler) enqueue(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := strings.TrimSpace(c.Param("id"))
	if resumeID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume id is required", nil)
		return
	}

	res, err := h.Svc.EnqueueExport(c.Request.Context(), userID, resumeID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("exportId", res.ExportID)
	c.Set("statusTransition", "->PENDING")
	respond.Accepted(c, c.Request.URL.Path+"/"+url.PathEscape(res.ExportID), res)
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := strings.TrimSpace(c.Param("id"))
	exportID := strings.TrimSpace(c.Param("exportId"))
	if resumeID == "" || exportID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume id and export id are required", nil)
		return
	}
	c.Set("exportId", exportID)

	view, err := h.Svc.GetStatus(c.Request.Context(), userID, resumeID, exportID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) artifact(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := strings.TrimSpace(c.Param("id"))
	exportID := strings.TrimSpace(c.Param("exportId"))
	if resumeID == "" || exportID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume id and export id are required", nil)
		return
	}
	c.Set("exportId", exportID)

	art, err := h.Svc.OpenArtifact(c.Request.Context(), userID, resumeID, exportID)
	if err != nil {
		writeError(c, err)
		return
	}
	defer art.Body.Close()
	respond.PDF(c, contentDisposition(art.FileName), -1, art.Body)
}

func (h *Handler) download(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	resumeID := strings.TrimSpace(c.Param("id"))
	if resumeID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resume id is required", nil)
		return
	}

	dl, err := h.Svc.DirectDownload(c.Request.Context(), userID, resumeID)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.PDF(c, contentDisposition(dl.FileName), int64(len(dl.Data)), bytes.NewReader(dl.Data))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, quota.ErrRateLimitExceeded):
		respond.RateLimited(c, quota.RetryAfter(err))
	case errors.Is(err, quota.ErrQuotaExceeded):
		respond.Error(c, http.StatusTooManyRequests, "quota_exceeded", "Daily export quota exceeded. Try again tomorrow.", nil)
	case errors.Is(err, quota.ErrExportLimitReached):
		respond.Error(c, http.StatusForbidden, "export_limit_reached", "You've reached your export limit. Upgrade your plan to continue.", []map[string]string{
			{"field": "exports", "issue": "limit_reached"},
		})
	case errors.Is(err, quota.ErrPlanLimitsMissing):
		respond.Error(c, http.StatusInternalServerError, "plan_misconfigured", "Export limits are not configured for your plan.", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume or export not found", nil)
	case errors.Is(err, render.ErrRenderFailure):
		respond.Error(c, http.StatusBadGateway, "render_failed", "We could not generate the PDF. Please try again.", nil)
	case errors.Is(err, ErrQueueUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "Exports are temporarily unavailable. Please try again.", nil)
	default:
		telemetry.Error("export.request_failed", map[string]any{"path": c.FullPath(), "error": sanitizeError(err)})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "export request failed", nil)
	}
}
