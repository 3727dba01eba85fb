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

// InvitationModule wires the invitation ledger routes. Issuance is limited
// to inviting roles; students may only redeem.
type InvitationModule struct {
	Handler *handlers.InvitationHandler
	JWT     *helpers.JWTManager
}

func NewInvitationModule(h *handlers.InvitationHandler, jwt *helpers.JWTManager) *InvitationModule {
	return &InvitationModule{Handler: h, JWT: jwt}
}

func (m *InvitationModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/invitations")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil))

	issuerOnly := middleware.RequireRole(
		string(entity.RoleAdmin),
		string(entity.RoleTeacher),
		string(entity.RoleParent),
	)

	auth.POST("", issuerOnly, m.Handler.Issue)
	auth.GET("", issuerOnly, m.Handler.List)
	auth.GET("/history", issuerOnly, m.Handler.ListHistory)
	auth.GET("/history/:id", issuerOnly, m.Handler.GetHistory)
	auth.POST("/redeem", m.Handler.Redeem)
	auth.GET("/:id", issuerOnly, m.Handler.Get)
	auth.GET("/:id/history", issuerOnly, m.Handler.HistoryByCode)
	auth.DELETE("/:id", issuerOnly, m.Handler.Deactivate)
}
