package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	_ = c.Error(err)
	c.JSON(status, envelope(code, err))
}

func abort(c *gin.Context, status int, code string, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, envelope(code, err))
}

func envelope(code string, err error) ErrorEnvelope {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return ErrorEnvelope{Error: APIError{Message: msg, Code: code}}
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
