// Package response defines the JSON envelope the API returns and the mapping
// from the application error taxonomy to HTTP statuses.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipstage/backend/internal/apperrors"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	c.JSON(http.StatusConflict, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error maps an application error to the right HTTP status. Every error the
// components surface carries a human-readable message; nothing opaque reaches
// the presentation boundary.
func Error(c *gin.Context, err error) {
	var (
		cfgErr       *apperrors.ConfigError
		validErr     *apperrors.ValidationError
		transportErr *apperrors.TransportError
		remoteErr    *apperrors.RemoteError
	)
	switch {
	case errors.As(err, &cfgErr):
		ServiceUnavailable(c, cfgErr.Error())
	case errors.As(err, &validErr):
		BadRequest(c, validErr.Error())
	case errors.As(err, &transportErr):
		c.JSON(http.StatusBadGateway, Body{Success: false, Error: transportErr.Error()})
	case errors.As(err, &remoteErr):
		status := http.StatusBadGateway
		if remoteErr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, Body{Success: false, Error: remoteErr.Error()})
	default:
		Internal(c, err.Error())
	}
}
