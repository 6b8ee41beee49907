package handlers

import (
	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/internal/middleware"
	"github.com/forps/taskboard/internal/services"
	"github.com/forps/taskboard/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		authService: services.NewAuthService(db, jwtCfg),
	}
}

// Register creates an account and its personal workspace
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Register(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// Login verifies credentials and returns a token
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.authService.Login(&req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Me returns the authenticated account
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.Me(middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, user)
}
