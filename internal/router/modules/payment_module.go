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

// PaymentModule wires the package catalog and the payment workflow.
// Return and webhook stay public: the gateway authenticates itself with the
// HMAC signature, not a session.
type PaymentModule struct {
	Handler *handlers.PaymentHandler
	JWT     *helpers.JWTManager
}

func NewPaymentModule(h *handlers.PaymentHandler, jwt *helpers.JWTManager) *PaymentModule {
	return &PaymentModule{Handler: h, JWT: jwt}
}

func (m *PaymentModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	callbackLimiter := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	rg.GET("/payments/return", callbackLimiter, m.Handler.Return)
	rg.GET("/payments/webhook", callbackLimiter, m.Handler.Webhook)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(rdb, m.JWT))
	auth.Use(middleware.RateLimit(rdb, 60, time.Minute, middleware.KeyByUserID(), nil))

	auth.GET("/packages", m.Handler.ListPackages)
	auth.GET("/packages/:id", m.Handler.GetPackage)
	auth.POST("/packages", middleware.RequireRole(string(entity.RoleAdmin)), m.Handler.CreatePackage)

	auth.POST("/payments/checkout", m.Handler.Checkout)
	auth.GET("/payments", m.Handler.ListPayments)
	auth.GET("/payments/:txn", m.Handler.GetPaymentStatus)
}
