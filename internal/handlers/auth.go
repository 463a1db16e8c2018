package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/middleware"
	"github.com/huangang/rendermarket/internal/services"
	"github.com/huangang/rendermarket/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func authError(err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrAccountDisabled):
		return response.NewForbidden(err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		return response.NewConflict(err.Error())
	}
	return err
}

// Signup creates an artist or client profile
// POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req services.SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		services.LogWarning("auth", "signup_failed", err.Error(), nil, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{"email": req.Email})
		response.Error(c, authError(err))
		return
	}

	uid := resp.Profile.ID
	services.LogInfo("auth", "signup", "profile created", &uid, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{"role": resp.Profile.Role})
	response.Created(c, resp)
}

// Login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		services.LogWarning("auth", "login_failed", err.Error(), nil, c.ClientIP(), c.Request.UserAgent(), map[string]interface{}{"email": req.Email})
		response.Error(c, authError(err))
		return
	}

	uid := resp.Profile.ID
	services.LogInfo("auth", "login", "login succeeded", &uid, c.ClientIP(), c.Request.UserAgent(), nil)
	response.Success(c, resp)
}

// Me returns the caller's profile
// GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	profile, err := h.authService.GetProfile(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, profile)
}
