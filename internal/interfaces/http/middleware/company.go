package middleware

import (
	"net/http"

	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Company context keys
const (
	CompanyIDKey    = "company_id"
	CompanyIDHeader = "X-Company-ID"
)

// CompanyConfig holds configuration for company resolution
type CompanyConfig struct {
	// AllowHeader lets X-Company-ID override the token's tenant
	AllowHeader bool
	SkipPaths   []string
	Logger      *zap.Logger
}

// Company resolves the company every settlement call is scoped to.
// The JWT tenant is the company; X-Company-ID is honoured only when AllowHeader is set.
// Requests without a resolvable company are rejected.
func Company(cfg CompanyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, cfg.SkipPaths, nil) {
			c.Next()
			return
		}

		raw := GetJWTTenantID(c)
		if cfg.AllowHeader {
			if header := c.GetHeader(CompanyIDHeader); header != "" {
				raw = header
			}
		}
		if raw == "" {
			abortCompany(c, "Company context is required")
			return
		}
		companyID, err := uuid.Parse(raw)
		if err != nil || companyID == uuid.Nil {
			if cfg.Logger != nil {
				cfg.Logger.Warn("Invalid company identifier", zap.String("company_id", raw))
			}
			abortCompany(c, "Invalid company identifier")
			return
		}

		c.Set(CompanyIDKey, companyID)
		c.Request = c.Request.WithContext(logger.WithCompanyID(c.Request.Context(), companyID.String()))
		c.Next()
	}
}

func abortCompany(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeCompany, "invalid_input", message, c.GetString(RequestIDKey)))
}

// GetCompanyID returns the company resolved by Company, or uuid.Nil
func GetCompanyID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(CompanyIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
