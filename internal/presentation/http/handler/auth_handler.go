package handler

import (
	"github.com/clinicpos/diagnostics-api/internal/application/service"
	"github.com/clinicpos/diagnostics-api/internal/domain/entity"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/request"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/dto/response"
	"github.com/clinicpos/diagnostics-api/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService *service.AuthService
	policy      *middleware.Policy
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, policy *middleware.Policy) *AuthHandler {
	return &AuthHandler{authService: authService, policy: policy}
}

func (h *AuthHandler) userPayload(u *entity.User) gin.H {
	roles := u.RoleNames()
	return gin.H{
		"id":           u.ID,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"email":        u.Email,
		"roles":        roles,
		"capabilities": h.policy.Grant(roles).List(),
	}
}

// Login handles staff login
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Login credentials"
// @Success 200 {object} response.APIResponse
// @Failure 401 {object} response.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	output, err := h.authService.Login(c.Request.Context(), &service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Login successful", gin.H{
		"user":         h.userPayload(output.User),
		"access_token": output.AccessToken,
		"token_type":   "Bearer",
		"expires_in":   output.ExpiresIn,
	})
}

// Me returns the signed-in staff member and what they may do
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := actor(c)
	if !ok {
		return
	}

	user, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Profile retrieved successfully", gin.H{
		"user": h.userPayload(user),
	})
}
