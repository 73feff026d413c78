package auth

import (
	"authapi_backend/internal/models"
)

// Authorize is the role gate for protected routes. Roles are compared
// exactly, admin does not include user.
func Authorize(role, requiredRole models.UserRole) error {
	if !role.Valid() || role != requiredRole {
		return ErrInsufficientRole
	}
	return nil
}
