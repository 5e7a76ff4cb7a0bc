package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Response{
		Success: true,
		Data:    data,
	})
}

func SendError(c *gin.Context, statusCode int, err *AppError) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   err,
	})
}

func SendValidationError(c *gin.Context, message string, details string) {
	SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, message, details))
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, message))
}

func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, NewAppError(ErrCodeUnauthorized, message))
}

func SendConflict(c *gin.Context, message string) {
	SendError(c, http.StatusConflict, NewAppError(ErrCodeConflict, message))
}

func SendInternalError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, NewAppError(ErrCodeInternal, message))
}
