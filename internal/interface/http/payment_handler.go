package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/application"
	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/response"
	"github.com/eduviet/eduviet-server/pkg/validation"
)

type PaymentHandler struct {
	Billing *application.BillingService
	Logger  *logrus.Logger
}

func NewPaymentHandler(billing *application.BillingService, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{Billing: billing, Logger: logger}
}

type createPackageRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=80"`
	Type         string `json:"type" binding:"required,oneof=free basic premium"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
	Price        int64  `json:"price" binding:"gte=0"`
	Currency     string `json:"currency"`
}

// CreatePackage POST /api/packages (admin)
func (h *PaymentHandler) CreatePackage(c *gin.Context) {
	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	pkg, err := h.Billing.CreatePackage(c.Request.Context(), application.PackageInput{
		Name:         req.Name,
		Type:         entity.PackageType(req.Type),
		DurationDays: req.DurationDays,
		Price:        req.Price,
		Currency:     req.Currency,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, pkg, "package created", nil)
}

// ListPackages GET /api/packages
func (h *PaymentHandler) ListPackages(c *gin.Context) {
	pkgs, err := h.Billing.ListPackages(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pkgs, "packages", nil)
}

// GetPackage GET /api/packages/:id
func (h *PaymentHandler) GetPackage(c *gin.Context) {
	pkg, err := h.Billing.GetPackage(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, pkg, "package", nil)
}

type checkoutRequest struct {
	PackageID string `json:"package_id" binding:"required,uuid"`
	Method    string `json:"method" binding:"omitempty,oneof=vnpay"`
}

// Checkout POST /api/payments/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.Method == "" {
		req.Method = "vnpay"
	}
	ip := c.GetString("real_ip")
	if ip == "" {
		ip = c.ClientIP()
	}
	res, err := h.Billing.Checkout(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), req.PackageID, req.Method, ip)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res, "checkout created", nil)
}

// Return GET /api/payments/return handles the browser redirect back from the gateway.
func (h *PaymentHandler) Return(c *gin.Context) {
	res, err := h.Billing.HandleReturn(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res, res.Message, nil)
}

// Webhook GET /api/payments/webhook handles the server-to-server confirmation. The
// body shape is fixed by the gateway protocol, not our envelope.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	code, msg := h.Billing.HandleWebhook(c.Request.Context(), c.Request.URL.Query())
	c.JSON(http.StatusOK, gin.H{"RspCode": code, "Message": msg})
}

// ListPayments GET /api/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	page := pageFromQuery(c)
	items, total, err := h.Billing.ListPayments(c.Request.Context(), c.GetString(middleware.CtxUserIDKey), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, items, "payments", gin.H{"total": total, "page": page.Number, "size": page.Size})
}

// GetPaymentStatus GET /api/payments/:txn
func (h *PaymentHandler) GetPaymentStatus(c *gin.Context) {
	p, err := h.Billing.GetPaymentStatus(c.Request.Context(), c.Param("txn"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p, "payment", nil)
}
