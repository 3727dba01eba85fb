package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduviet/eduviet-server/internal/application"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/response"
	"github.com/eduviet/eduviet-server/pkg/validation"
)

type NotificationHandler struct {
	Notifications *application.NotificationService
}

func NewNotificationHandler(n *application.NotificationService) *NotificationHandler {
	return &NotificationHandler{Notifications: n}
}

type createNotificationRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Title  string `json:"title" binding:"required,min=1,max=200"`
	Body   string `json:"body"`
	Kind   string `json:"kind" binding:"omitempty,oneof=system payment invitation"`
}

// Create POST /api/notifications (admin)
func (h *NotificationHandler) Create(c *gin.Context) {
	var req createNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	n, err := h.Notifications.Create(c.Request.Context(), application.NotifyInput{
		UserID: req.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Kind:   req.Kind,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, n, "notification created", nil)
}

// List GET /api/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	items, total, err := h.Notifications.ListForUser(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items, "notifications", gin.H{"total": total, "page": page.Number, "size": page.Size})
}

// MarkRead PUT /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	err := h.Notifications.MarkRead(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "notification read", nil)
}

// Delete DELETE /api/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	err := h.Notifications.Delete(c.Request.Context(), c.Param("id"), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "notification deleted", nil)
}
