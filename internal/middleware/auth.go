package middleware

import (
	"strings"

	"authapi_backend/internal/auth"
	"authapi_backend/internal/logger"
	"authapi_backend/internal/models"
	"authapi_backend/pkg/apperrors"
	"authapi_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
)

// SessionVerifier проверяет access-токен. Реализуется services.AuthService.
type SessionVerifier interface {
	VerifySession(token string, requiredRole models.UserRole) (*auth.Claims, error)
}

// AuthMiddleware - проверка Bearer-токена и роли
func AuthMiddleware(verifier SessionVerifier, requiredRole models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := verifier.VerifySession(tokenStr, requiredRole)
		if err != nil {
			logger.CtxWarn(c.Request.Context(), "Access token rejected",
				"path", c.Request.URL.Path,
				"required_role", requiredRole,
			)
			apperrors.HandleError(c, err)
			return
		}

		// Сохраняем claims в контекст
		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.RoleKey, claims.Role)
		c.Set(contextkeys.ClaimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}
