package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/log"
)

var statusByKind = []struct {
	kind   error
	status int
}{
	{domain.ErrValidation, http.StatusBadRequest},
	{domain.ErrConflict, http.StatusBadRequest},
	{domain.ErrInvalidCredentials, http.StatusBadRequest},
	{domain.ErrInvalidState, http.StatusBadRequest},
	{domain.ErrInvalidOrExpired, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
}

// writeError translates a service error into a status code and a
// {"message": ...} body.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	for _, m := range statusByKind {
		if errors.Is(err, m.kind) {
			status = m.status
			break
		}
	}
	if errors.Is(err, domain.ErrUpstream) && strings.HasPrefix(c.FullPath(), "/api/auth/") {
		status = http.StatusUnauthorized
	}

	fallback := "Server error"
	if status < 500 {
		fallback = http.StatusText(status)
	}
	msg := domain.MessageOf(err, fallback)
	if status >= 500 {
		ctx := c.Request.Context()
		tagError(ctx, err)
		log.Ctx(ctx).Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

func badBody(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
}
