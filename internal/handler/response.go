package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventhorizon/internal/apperrors"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// Fail maps a service error onto the right HTTP status. Validation and
// domain sentinels carry their own status; anything else is a 500.
func Fail(c *gin.Context, err error) {
	switch {
	case err == nil:
		Ok(c, nil, nil)
	case apperrors.IsValidation(err):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case apperrors.IsNotFound(err):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case apperrors.IsConflict(err):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		Error(c, http.StatusInternalServerError, "internal error", nil)
	}
}
