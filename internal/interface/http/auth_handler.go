package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/application"
	"github.com/eduviet/eduviet-server/internal/domain/entity"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/helpers"
	"github.com/eduviet/eduviet-server/pkg/response"
	"github.com/eduviet/eduviet-server/pkg/validation"
)

type AuthHandler struct {
	Auth    *application.AuthService
	Cookies *helpers.Manager
	Logger  *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, cookies *helpers.Manager, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies, Logger: logger}
}

type registerRequest struct {
	Fullname   string `json:"fullname" binding:"required,min=2,max=120"`
	Username   string `json:"username" binding:"required,alphanum,min=3,max=40"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,pwd"`
	Role       string `json:"role" binding:"required,role"`
	InviteCode string `json:"invite_code"`
	School     string `json:"school"`
	ClassName  string `json:"class_name"`
	TeacherID  string `json:"teacher_id"`
	ParentID   string `json:"parent_id"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), application.RegisterInput{
		Fullname:   req.Fullname,
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Role:       entity.Role(req.Role),
		InviteCode: req.InviteCode,
		School:     req.School,
		ClassName:  req.ClassName,
		TeacherID:  req.TeacherID,
		ParentID:   req.ParentID,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"user_id":  u.ID,
		"email":    u.Email,
		"username": u.Username,
		"slug":     u.Slug,
		"role":     string(u.Role),
	}, "registered, check your email for the verification code", nil)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	resp, pair, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, resp, "login success", nil)
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, err := c.Cookie("refresh_token")
	if err != nil || token == "" {
		response.Error(c, http.StatusUnauthorized, "missing refresh token", nil)
		return
	}
	pair, userID, err := h.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "invalid refresh token", nil)
		return
	}
	h.Cookies.SetPair(c, pair.AccessToken, pair.AccessTokenExpiry, pair.RefreshToken, pair.RefreshTokenExpiry)
	response.Success(c, http.StatusOK, gin.H{"user_id": userID}, "token refreshed", nil)
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	if uid != "" {
		if err := h.Auth.Logout(c.Request.Context(), uid); err != nil && h.Logger != nil {
			h.Logger.WithError(err).WithField("user_id", uid).Warn("logout session cleanup failed")
		}
	}
	h.Cookies.Clear(c)
	response.Success(c, http.StatusOK, nil, "logged out", nil)
}

type verifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// VerifyEmail POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Auth.VerifyEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "email verified", nil)
}

type resendVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResendVerification POST /api/auth/verify-email/resend
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req resendVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "verification email queued", nil)
}
