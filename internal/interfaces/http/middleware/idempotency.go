package middleware

import (
	"bytes"
	"net/http"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Idempotency headers
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength  = 255
)

// IdempotencyConfig holds configuration for the Idempotency-Key middleware
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	Config shared.IdempotencyConfig
	Logger *zap.Logger
}

// Idempotency replays the stored response when a POST repeats an Idempotency-Key.
// Keys are scoped per company and path. A second request arriving while the first
// is still running gets 409. Server errors release the key so the client can retry.
// Store failures are logged and the request proceeds without deduplication.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.Config.TTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if !cfg.Config.Enabled || cfg.Store == nil || c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, "invalid_input",
					"Idempotency-Key is too long", c.GetString(RequestIDKey)))
			return
		}

		ctx := c.Request.Context()
		scoped := GetCompanyID(c).String() + ":" + c.Request.URL.Path + ":" + key

		stored, found, err := cfg.Store.Lookup(ctx, scoped)
		if err != nil {
			log.Warn("Idempotency lookup failed", zap.Error(err))
			c.Next()
			return
		}
		if found {
			if stored == nil {
				abortInProgress(c)
				return
			}
			c.Header(IdempotentReplayedHeader, "true")
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		reserved, err := cfg.Store.Reserve(ctx, scoped, ttl)
		if err != nil {
			log.Warn("Idempotency reservation failed", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			abortInProgress(c)
			return
		}

		rec := &responseRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := cfg.Store.Release(ctx, scoped); err != nil {
				log.Warn("Idempotency release failed", zap.Error(err))
			}
			return
		}
		resp := shared.StoredResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := cfg.Store.Complete(ctx, scoped, resp, ttl); err != nil {
			log.Warn("Idempotency completion failed", zap.Error(err))
		}
	}
}

func abortInProgress(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusConflict,
		dto.NewErrorResponseWithRequestID(dto.ErrCodeInProgress, "concurrency",
			"A request with this Idempotency-Key is still being processed", c.GetString(RequestIDKey)))
}

// responseRecorder copies the body while passing it through
type responseRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}
