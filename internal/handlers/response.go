package handlers

import "github.com/gin-gonic/gin"

// SuccessResponse - конверт успешного ответа
type SuccessResponse struct {
	Status  int         `json:"status"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, SuccessResponse{
		Status:  status,
		Success: true,
		Message: message,
		Data:    data,
	})
}
