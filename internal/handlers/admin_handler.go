package handlers

import (
	"net/http"

	"authapi_backend/internal/middleware"
	"authapi_backend/internal/models"
	"authapi_backend/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler - вход администратора и проверочный маршрут
type AdminHandler struct {
	*AuthHandler
}

func NewAdminHandler(base *BaseHandler, authService services.AuthService) *AdminHandler {
	return &AdminHandler{AuthHandler: NewAuthHandler(base, authService)}
}

// RegisterRoutes ожидает группу /api
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.POST("/login", h.Login)
	admin.GET("/test-admin", middleware.AuthMiddleware(h.authService, models.UserRoleAdmin), h.TestAdmin)
}

func (h *AdminHandler) Login(c *gin.Context) {
	h.login(c, models.UserRoleAdmin, "Logged In Successfully as Admin.")
}

func (h *AdminHandler) TestAdmin(c *gin.Context) {
	respond(c, http.StatusOK, "Admin access granted.", gin.H{"ok": true})
}
