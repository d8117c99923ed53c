package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup_AppliesMiddleware(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithMiddleware(func(c *gin.Context) {
		c.Header("X-Guard", "ran")
		c.Next()
	}))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, "ran", w.Header().Get("X-Guard"))
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }

	g := NewDomainGroup("test", "/test")
	g.GET("/a", ok).POST("/a", ok).PUT("/a/:id", ok).PATCH("/a/:id", ok).DELETE("/a/:id", ok)
	sub := g.Group("nested", "/nested")
	sub.GET("", ok)
	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/test/a"},
		{http.MethodPost, "/api/v1/test/a"},
		{http.MethodPut, "/api/v1/test/a/1"},
		{http.MethodPatch, "/api/v1/test/a/1"},
		{http.MethodDelete, "/api/v1/test/a/1"},
		{http.MethodGet, "/api/v1/test/nested"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "route %s %s should work", tt.method, tt.path)
	}

	assert.Equal(t, "test", g.Name())
	assert.Equal(t, "/test", g.Prefix())
}

func TestSettlementGroups(t *testing.T) {
	engine := gin.New()
	pass := func(c *gin.Context) { c.Next() }
	h := Handlers{
		Periods:     handler.NewPeriodHandler(nil),
		Documents:   handler.NewDocumentHandler(nil, nil),
		Payments:    handler.NewPaymentHandler(nil, nil),
		Allocations: handler.NewAllocationHandler(nil),
		Directory:   handler.NewDirectoryHandler(nil),
	}

	r := NewRouter(engine)
	for _, g := range SettlementGroups(h, pass, pass) {
		r.Register(g)
	}
	r.Setup()

	registered := map[string]bool{}
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /api/v1/periods",
		"POST /api/v1/periods",
		"GET /api/v1/periods/:year/:month",
		"POST /api/v1/periods/:year/:month/lock",
		"POST /api/v1/periods/:year/:month/unlock",
		"POST /api/v1/periods/:year/:month/close",
		"POST /api/v1/documents",
		"PUT /api/v1/documents/:id",
		"POST /api/v1/documents/:id/post",
		"POST /api/v1/documents/:id/reverse",
		"POST /api/v1/documents/:id/allocations/cancel",
		"POST /api/v1/payments/:id/allocate",
		"POST /api/v1/payments/:id/auto-allocate",
		"POST /api/v1/payments/:id/overpayment",
		"POST /api/v1/payments/:id/reverse",
		"POST /api/v1/allocations/:id/cancel",
		"GET /api/v1/parties/:party_id/open-documents",
		"GET /api/v1/accounts/:id",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}
