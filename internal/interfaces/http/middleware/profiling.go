package middleware

import (
	"context"

	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths that don't need profiling labels (e.g., health checks).
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't need profiling labels.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/ready",
		},
	}
}

// ProfilingWithConfig returns profiling middleware with custom configuration.
// The route pattern, method and company are attached as Pyroscope labels so
// profiles can be filtered by endpoint. Place it after Company.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if skipped(c.Request.URL.Path, cfg.SkipPaths, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), extractProfilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// extractProfilingLabels uses the matched route pattern, never the raw path,
// to keep label cardinality low.
func extractProfilingLabels(c *gin.Context) map[string]string {
	labels := telemetry.HTTPRequestLabels(c.FullPath(), c.Request.Method)
	if companyID := GetCompanyID(c); companyID != uuid.Nil {
		labels[telemetry.ProfilingLabelCompanyID] = companyID.String()
	}
	return labels
}
