package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduviet/eduviet-server/internal/container"
	"github.com/eduviet/eduviet-server/internal/domain/entity"
	handlers "github.com/eduviet/eduviet-server/internal/interface/http"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/helpers"
)

// NotificationModule wires in-app notification routes.
type NotificationModule struct {
	Handler *handlers.NotificationHandler
	JWT     *helpers.JWTManager
}

func NewNotificationModule(h *handlers.NotificationHandler, jwt *helpers.JWTManager) *NotificationModule {
	return &NotificationModule{Handler: h, JWT: jwt}
}

func (m *NotificationModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/notifications")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))

	auth.GET("", m.Handler.List)
	auth.PUT("/:id/read", m.Handler.MarkRead)
	auth.DELETE("/:id", m.Handler.Delete)
	auth.POST("", middleware.RequireRole(string(entity.RoleAdmin)), m.Handler.Create)
}
