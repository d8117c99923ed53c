package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		ctx := WithRequestID(c.Request.Context(), "req-42")
		c.Request = c.Request.WithContext(WithCompanyID(ctx, "company-7"))
		c.Next()
	})
	router.Use(GinMiddleware(log), Recovery(log))
	return router
}

func TestGinMiddleware(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	router := newTestRouter(zap.New(core))

	var handlerLogged bool
	router.GET("/payments/:id", func(c *gin.Context) {
		FromContext(c.Request.Context()).Debug("inside handler")
		handlerLogged = true
		c.Status(http.StatusOK)
	})
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/abc?x=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, handlerLogged)

	access := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, access[0].Level)
	assert.Equal(t, "/payments/:id", fields["route"])
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "company-7", fields["company_id"])
	assert.Equal(t, "x=1", fields["query"])

	inner := recorded.FilterMessage("inside handler").All()
	require.Len(t, inner, 1)
	assert.Equal(t, "req-42", inner[0].ContextMap()["request_id"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	warn := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, warn, 2)
	assert.Equal(t, zapcore.WarnLevel, warn[1].Level)
}

func TestRecovery(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	router := newTestRouter(zap.New(core))
	router.GET("/boom", func(c *gin.Context) {
		panic("allocation exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "allocation exploded", panics[0].ContextMap()["error"])
}
