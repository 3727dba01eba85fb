package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduviet/eduviet-server/internal/container"
	handlers "github.com/eduviet/eduviet-server/internal/interface/http"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/helpers"
)

// AuthModule wires registration, login and session routes.
// Public: POST /api/auth/register, /api/auth/login, /api/auth/refresh,
// /api/auth/verify-email, /api/auth/verify-email/resend
// Protected: POST /api/auth/logout
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	registerLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(rdb, 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByIP(), nil)
	verifyLimiter := middleware.RateLimit(rdb, 20, time.Minute, middleware.KeyByIPAndPath(), nil)

	auth := rg.Group("/auth")
	auth.POST("/register", registerLimiter, m.Handler.Register)
	auth.POST("/login", loginLimiter, m.Handler.Login)
	auth.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	auth.POST("/verify-email", verifyLimiter, m.Handler.VerifyEmail)
	auth.POST("/verify-email/resend", verifyLimiter, m.Handler.ResendVerification)

	protected := auth.Group("/")
	protected.Use(middleware.Auth(rdb, m.JWT))
	protected.POST("/logout", m.Handler.Logout)
}
