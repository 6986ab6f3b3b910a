package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	model "auction-ledger/internal/models"
	"auction-ledger/services/bidding/helpers"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

// Identity headers set by the upstream auth collaborator
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if user, ok := helpers.CurrentUser(c); ok {
		fields["user_id"] = user.UserID
	}
	utils.Info("HTTP Request", fields)
}

// IdentityMiddleware copies the caller identity headers into the request
// context. Requests without X-User-ID pass through anonymously.
func IdentityMiddleware(c *gin.Context) {
	userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
	if userID == "" {
		c.Next()
		return
	}

	role := model.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
	switch role {
	case "":
		role = model.RoleRegular
	case model.RoleAdmin, model.RoleRegular:
	default:
		utils.JSONError(c, http.StatusBadRequest, errors.New("unknown role "+string(role)), "invalid identity headers")
		c.Abort()
		return
	}

	c.Set(helpers.UserContextKey, model.UserContext{UserID: userID, Role: role})
	c.Next()
}

// RequireAdmin rejects callers without the admin role
func RequireAdmin(c *gin.Context) {
	user, ok := helpers.CurrentUser(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, errors.New("missing X-User-ID header"), "authentication required")
		c.Abort()
		return
	}
	if !user.IsAdmin() {
		utils.JSONError(c, http.StatusForbidden, errors.New("admin role required"), "operation not permitted")
		utils.Warn("RequireAdmin: non-admin call", map[string]any{"user_id": user.UserID, "path": c.Request.URL.Path})
		c.Abort()
		return
	}
	c.Next()
}
