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

// UserModule wires profile and user administration routes. Everything here
// requires an authenticated session; admin-only routes add a role guard.
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(
		middleware.RateLimit(rdb, 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP()),
		middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByUserID(), nil),
	)

	auth.GET("/profile", m.Handler.GetProfile)
	auth.PUT("/profile", m.Handler.UpdateProfile)
	auth.POST("/profile/avatar", m.Handler.UploadAvatar)
	auth.GET("/users/search", m.Handler.Search)
	auth.GET("/users/slug/:slug", m.Handler.GetBySlug)

	admin := auth.Group("/users")
	admin.Use(middleware.RequireRole(string(entity.RoleAdmin)))
	admin.GET("", m.Handler.List)
	admin.DELETE("/:id", m.Handler.Delete)
}
