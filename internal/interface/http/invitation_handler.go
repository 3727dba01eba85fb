package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/application"
	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/response"
	"github.com/eduviet/eduviet-server/pkg/validation"
)

type InvitationHandler struct {
	Invites *application.InvitationService
	Logger  *logrus.Logger
}

func NewInvitationHandler(invites *application.InvitationService, logger *logrus.Logger) *InvitationHandler {
	return &InvitationHandler{Invites: invites, Logger: logger}
}

type issueRequest struct {
	Event       string `json:"event" binding:"required,min=2,max=60"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"required,invtype"`
	TotalUses   int    `json:"total_uses" binding:"required,gt=0"`
	StartedAt   string `json:"started_at"`
	ExpiredAt   string `json:"expired_at"`
}

// Issue POST /api/invitations
func (h *InvitationHandler) Issue(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	in := application.IssueInput{
		Event:       req.Event,
		Description: req.Description,
		Type:        entity.InvitationCodeType(req.Type),
		TotalUses:   req.TotalUses,
	}
	if req.StartedAt != "" {
		t, err := time.Parse(time.RFC3339, req.StartedAt)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"started_at": "must be RFC3339"})
			return
		}
		in.StartedAt = t
	}
	if req.ExpiredAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiredAt)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid payload", map[string]string{"expired_at": "must be RFC3339"})
			return
		}
		in.ExpiredAt = &t
	}

	code, err := h.Invites.Issue(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), in)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, codeView(code), "invitation code issued", nil)
}

func codeView(c *entity.InvitationCode) gin.H {
	return gin.H{
		"id":          c.ID,
		"code":        c.Code,
		"event":       c.Event,
		"description": c.Description,
		"type":        string(c.Type),
		"total_uses":  c.TotalUses,
		"uses_left":   c.UsesLeft,
		"started_at":  c.StartedAt,
		"expired_at":  c.ExpiredAt,
		"is_system":   c.IsSystem,
		"is_active":   c.IsActive,
		"created_by":  c.CreatedBy,
		"created_at":  c.CreatedAt,
	}
}

// Get GET /api/invitations/:id
func (h *InvitationHandler) Get(c *gin.Context) {
	code, err := h.Invites.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, codeView(code), "invitation code", nil)
}

// List GET /api/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	codes, total, err := h.Invites.List(c.Request.Context(), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	out := make([]gin.H, 0, len(codes))
	for _, code := range codes {
		out = append(out, codeView(code))
	}
	response.Success(c, http.StatusOK, out, "invitation codes", gin.H{"total": total, "page": page.Number, "size": page.Size})
}

// Deactivate DELETE /api/invitations/:id. Soft off-switch, never a row delete.
func (h *InvitationHandler) Deactivate(c *gin.Context) {
	err := h.Invites.Deactivate(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "invitation code deactivated", nil)
}

type redeemRequest struct {
	Code string `json:"code" binding:"required"`
}

// Redeem POST /api/invitations/redeem. Standalone redemption for an
// existing account (registration redeems inside its own flow).
func (h *InvitationHandler) Redeem(c *gin.Context) {
	var req redeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	hist, err := h.Invites.Redeem(c.Request.Context(), req.Code, c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"id":         hist.ID,
		"code":       hist.Code,
		"user_id":    hist.UserID,
		"invited_at": hist.InvitedAt,
		"status":     string(hist.Status),
	}, "invitation code redeemed", nil)
}

// ListHistory GET /api/invitations/history
func (h *InvitationHandler) ListHistory(c *gin.Context) {
	page := pageFromQuery(c)
	items, total, err := h.Invites.ListHistory(c.Request.Context(), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items, "invitation history", gin.H{"total": total, "page": page.Number, "size": page.Size})
}

// GetHistory GET /api/invitations/history/:id
func (h *InvitationHandler) GetHistory(c *gin.Context) {
	item, err := h.Invites.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, item, "invitation history entry", nil)
}

// HistoryByCode GET /api/invitations/:id/history
func (h *InvitationHandler) HistoryByCode(c *gin.Context) {
	code, err := h.Invites.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	items, err := h.Invites.ListHistoryByCode(c.Request.Context(), code.Code)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items, "redemptions", nil)
}
