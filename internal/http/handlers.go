package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/todo-service/internal/security"
	"github.com/tazhibayda/todo-service/internal/service"
)

// Pinger is a dependency checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	Auth     *service.AuthService
	Recovery *service.RecoveryService
	Todos    *service.TodoService
	Profile  *service.ProfileService
	Tokens   *security.Tokens
	Checks   map[string]Pinger
}

// Healthz godoc
// @Summary Liveness and dependency check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "down", "failed": name})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// JWKS godoc
// @Summary Public keys for session token verification (RS256 only)
// @Tags ops
// @Produce json
// @Success 200 {object} security.JWKSet
// @Router /.well-known/jwks.json [get]
func (h *Handler) JWKS(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, h.Tokens.JWKS())
}

// pathID parses a numeric :id; ok is false for anything that cannot be an id.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
