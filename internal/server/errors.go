package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/millwise/shopfloor/internal/apperror"
	hierdomain "github.com/millwise/shopfloor/internal/hierarchy/domain"
	identitydomain "github.com/millwise/shopfloor/internal/identity/domain"
	rolesdomain "github.com/millwise/shopfloor/internal/roles/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string                `json:"type"`
	Message string                `json:"message"`
	Errors  []apperror.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware renders the last error attached to the context
// as the uniform envelope, unless a handler already wrote a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	if appErr, ok := apperror.As(err); ok {
		return appErr.Status, errorPayload{
			Type:    appErr.Type,
			Message: appErr.Message,
			Errors:  appErr.Fields,
		}
	}

	switch {
	case errors.Is(err, identitydomain.ErrInvalidCredentials),
		errors.Is(err, identitydomain.ErrInvalidToken):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}
	case errors.Is(err, identitydomain.ErrUserNotFound),
		errors.Is(err, hierdomain.ErrEntityNotFound),
		errors.Is(err, hierdomain.ErrAssignmentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	case errors.Is(err, identitydomain.ErrUserExists):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: "user already exists"}
	case errors.Is(err, identitydomain.ErrInvalidUsername),
		errors.Is(err, identitydomain.ErrInvalidPassword),
		errors.Is(err, rolesdomain.ErrInvalidRole),
		errors.Is(err, rolesdomain.ErrInvalidUser),
		errors.Is(err, hierdomain.ErrUnknownLevel):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
