package handlers

import (
	"errors"
	"net/http"

	"authapi_backend/internal/models"
	"authapi_backend/internal/services"
	"authapi_backend/internal/services/dto"
	"authapi_backend/internal/validator"
	"authapi_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

const loginRequiredMessage = "A username or email address & password is required to proceed."

type AuthHandler struct {
	*BaseHandler
	authService services.AuthService
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		authService: authService,
	}
}

// RegisterRoutes регистрирует публичные маршруты учетной записи под /users
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.GET("/confirm-account", h.ConfirmAccount)
		users.GET("/resend-confirmation-email", h.ResendConfirmation)
		users.GET("/request-reset-password", h.RequestPasswordReset)
		users.PATCH("/reset-password", h.ResetPassword)
		users.PATCH("/refresh-access-token", h.RefreshAccessToken)
		users.PATCH("/confirm-change-email", h.ConfirmChangeEmail)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusCreated, "User registered successfully.", gin.H{"user": user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	h.login(c, models.UserRoleUser, "User Logged In Successfully.")
}

// bindLogin разбирает тело входа. Нужен username или email.
func (h *BaseHandler) bindLogin(c *gin.Context) (*dto.LoginRequest, bool) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body"))
		return nil, false
	}
	req.Normalize()

	fieldErrs := map[string]string{}
	if err := h.validator.Validate(&req); err != nil {
		var vErr *validator.ValidationError
		if !errors.As(err, &vErr) {
			h.HandleServiceError(c, err)
			return nil, false
		}
		fieldErrs = vErr.Errors
	}

	// Достаточно одного корректного идентификатора, ошибка второго не важна
	_, usernameBad := fieldErrs["username"]
	_, emailBad := fieldErrs["email"]
	switch {
	case req.Email != "" && !emailBad:
		delete(fieldErrs, "username")
	case req.Username != "" && !usernameBad:
		delete(fieldErrs, "email")
	case req.Username == "" && req.Email == "":
		fieldErrs["username"] = "A username or email address is required"
	}

	if len(fieldErrs) > 0 {
		apperrors.HandleError(c, apperrors.New(apperrors.CodeValidationFailed, "validation",
			loginRequiredMessage, http.StatusBadRequest).WithDetails(fieldErrs))
		return nil, false
	}
	return &req, true
}

// login общий для обычного и админского входа
func (h *AuthHandler) login(c *gin.Context, surface models.UserRole, message string) {
	req, ok := h.bindLogin(c)
	if !ok {
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req, surface)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, message, resp)
}

func (h *AuthHandler) ConfirmAccount(c *gin.Context) {
	var query dto.UserTokenQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	user, err := h.authService.ConfirmAccount(c.Request.Context(), query.UserID, query.ConfirmationToken)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Your account has been successfully confirmed.", gin.H{"user": user})
}

func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var query dto.UserIDQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	if err := h.authService.ResendConfirmation(c.Request.Context(), query.UserID); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "A new confirmation email has been sent. Please check your inbox.", nil)
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var query dto.RequestResetPasswordQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	if err := h.authService.RequestPasswordReset(c.Request.Context(), query.Email); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "An email has been sent with further instructions.", nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var query dto.ResetPasswordQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}
	var req dto.ResetPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), query.UserID, query.ResetPasswordToken, req.NewPassword); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Password has been reset successfully.", nil)
}

func (h *AuthHandler) RefreshAccessToken(c *gin.Context) {
	var req dto.RefreshTokenRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	tokens, err := h.authService.RefreshSession(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Access token refreshed successfully.", tokens)
}

func (h *AuthHandler) ConfirmChangeEmail(c *gin.Context) {
	var query dto.UserTokenQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	user, err := h.authService.ConfirmEmailChange(c.Request.Context(), query.UserID, query.ConfirmationToken)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	respond(c, http.StatusOK, "Email changed successfully.", gin.H{"user": user})
}
