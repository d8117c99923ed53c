package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func companyRouter(cfg CompanyConfig, tenant string, seen *uuid.UUID) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if tenant != "" {
			c.Set(JWTTenantIDKey, tenant)
		}
		c.Next()
	})
	router.Use(Company(cfg))
	router.GET("/test", func(c *gin.Context) {
		*seen = GetCompanyID(c)
		if logger.GetCompanyID(c.Request.Context()) != seen.String() {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

func TestCompany_FromToken(t *testing.T) {
	tenant := uuid.New()
	var seen uuid.UUID
	router := companyRouter(CompanyConfig{}, tenant.String(), &seen)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(CompanyIDHeader, uuid.NewString())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenant, seen, "header is ignored unless allowed")
}

func TestCompany_HeaderOverride(t *testing.T) {
	company := uuid.New()
	var seen uuid.UUID
	router := companyRouter(CompanyConfig{AllowHeader: true}, uuid.NewString(), &seen)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(CompanyIDHeader, company.String())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, company, seen)
}

func TestCompany_Missing(t *testing.T) {
	var seen uuid.UUID
	router := companyRouter(CompanyConfig{}, "", &seen)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, dto.ErrCodeCompany, decodeError(t, rec).Code)
}

func TestCompany_InvalidHeader(t *testing.T) {
	var seen uuid.UUID
	router := companyRouter(CompanyConfig{AllowHeader: true}, "", &seen)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(CompanyIDHeader, "not-a-uuid")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, seen)
}
