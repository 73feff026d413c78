package handlers

import (
	"net/http"

	"authapi_backend/internal/middleware"
	"authapi_backend/internal/models"
	"authapi_backend/internal/services"
	"authapi_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	*BaseHandler
	userService services.UserService
	authService services.AuthService
}

func NewUserHandler(base *BaseHandler, userService services.UserService, authService services.AuthService) *UserHandler {
	return &UserHandler{
		BaseHandler: base,
		userService: userService,
		authService: authService,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.GET("/profile/:userId", h.GetProfile)

	secured := users.Group("")
	secured.Use(middleware.AuthMiddleware(h.authService, models.UserRoleUser))
	{
		secured.GET("/current-user", h.GetCurrentUser)
		secured.PATCH("/change-password", h.ChangePassword)
		secured.PATCH("/change-email", h.ChangeEmail)
		secured.PATCH("/update-account", h.UpdateAccount)
	}
}

// GetProfile - публичный профиль без email
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := h.ValidateUserIDParam(c, "userId")
	if !ok {
		return
	}

	profile, err := h.userService.GetPublicProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "User profile found successfully.", gin.H{"profile": profile})
}

func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "User found successfully.", gin.H{"user": user})
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ChangePasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Password changed successfully.", nil)
}

func (h *UserHandler) ChangeEmail(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.ChangeEmailRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ChangeEmail(c.Request.Context(), userID, &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "An email has been sent to \""+req.Email+"\" with further instructions.", nil)
}

func (h *UserHandler) UpdateAccount(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateProfileRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Account updated successfully.", gin.H{"user": user})
}
