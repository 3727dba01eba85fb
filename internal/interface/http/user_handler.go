package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/eduviet/eduviet-server/internal/application"
	"github.com/eduviet/eduviet-server/internal/domain/entity"
	repo "github.com/eduviet/eduviet-server/internal/domain/repository"
	"github.com/eduviet/eduviet-server/internal/interface/middleware"
	"github.com/eduviet/eduviet-server/pkg/response"
	"github.com/eduviet/eduviet-server/pkg/validation"
)

type UserHandler struct {
	Users  *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(users *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Logger: logger}
}

func pageFromQuery(c *gin.Context) repo.Page {
	num, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	if num < 1 {
		num = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	order := c.DefaultQuery("order", "desc")
	if order != "asc" {
		order = "desc"
	}
	return repo.Page{Number: num, Size: size, Order: order}
}

func userView(u *entity.User) gin.H {
	return gin.H{
		"id":              u.ID,
		"fullname":        u.Fullname,
		"username":        u.Username,
		"email":           u.Email,
		"slug":            u.Slug,
		"avatar_url":      u.AvatarURL,
		"role":            string(u.Role),
		"status":          string(u.Status),
		"account_package": string(u.AccountPackage),
		"school":          u.School,
		"class_name":      u.ClassName,
		"is_verified":     u.IsVerified,
		"created_at":      u.CreatedAt,
	}
}

// GetProfile GET /api/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Users.GetProfile(c.Request.Context(), uid)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile", nil)
}

type updateProfileRequest struct {
	Fullname  string `json:"fullname" binding:"omitempty,min=2,max=120"`
	School    string `json:"school"`
	ClassName string `json:"class_name"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url"`
}

// UpdateProfile PUT /api/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Users.UpdateProfile(c.Request.Context(), uid, application.UpdateProfileInput{
		Fullname:  req.Fullname,
		School:    req.School,
		ClassName: req.ClassName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "profile updated", nil)
}

// UploadAvatar POST /api/profile/avatar (multipart field "avatar")
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	fh, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "missing avatar file", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "unreadable avatar file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Users.UploadAvatar(c.Request.Context(), uid, f, fh.Filename, fh.Header.Get("Content-Type"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"avatar_url": url}, "avatar uploaded", nil)
}

// List GET /api/users (admin)
func (h *UserHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	users, total, err := h.Users.List(c.Request.Context(), page)
	if err != nil {
		response.FromError(c, err)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userView(u))
	}
	response.Success(c, http.StatusOK, out, "users", gin.H{"total": total, "page": page.Number, "size": page.Size})
}

// GetBySlug GET /api/users/slug/:slug
func (h *UserHandler) GetBySlug(c *gin.Context) {
	u, err := h.Users.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, userView(u), "user", nil)
}

// Search GET /api/users/search?q=
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Users.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}

// Delete DELETE /api/users/:id (admin). Soft delete only.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.Users.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, nil, "user deleted", nil)
}
