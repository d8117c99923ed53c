package middleware

import (
	"net/http"

	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Settlement permissions carried in access tokens
const (
	PermissionRead   = "settlement:read"
	PermissionWrite  = "settlement:write"
	PermissionPeriod = "settlement:period"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	// Disabled lets every authenticated caller through
	Disabled bool
	Logger   *zap.Logger
}

// RequireAnyPermission requires the caller to hold at least one of permissions
func RequireAnyPermission(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Disabled {
			c.Next()
			return
		}
		claims := GetJWTClaims(c)
		if claims != nil {
			for _, p := range permissions {
				if claims.HasPermission(p) {
					c.Next()
					return
				}
			}
		}

		if cfg.Logger != nil {
			cfg.Logger.Warn("Permission denied",
				zap.String("user_id", GetJWTUserID(c)),
				zap.Strings("required_any", permissions),
				zap.String("path", c.Request.URL.Path),
			)
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponseWithRequestID("ERR_FORBIDDEN", "unauthorized", "Permission denied", c.GetString(RequestIDKey)))
	}
}

// RequireMethodPermission maps safe methods to read and everything else to write
func RequireMethodPermission(cfg PermissionConfig) gin.HandlerFunc {
	read := RequireAnyPermission(cfg, PermissionRead, PermissionWrite)
	write := RequireAnyPermission(cfg, PermissionWrite)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			read(c)
		default:
			write(c)
		}
	}
}
