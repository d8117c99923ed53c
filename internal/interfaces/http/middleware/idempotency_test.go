package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Complete(ctx context.Context, key string, resp shared.StoredResponse, ttl time.Duration) error {
	return m.Called(ctx, key, resp, ttl).Error(0)
}

func (m *MockIdempotencyStore) Lookup(ctx context.Context, key string) (*shared.StoredResponse, bool, error) {
	args := m.Called(ctx, key)
	resp, _ := args.Get(0).(*shared.StoredResponse)
	return resp, args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockIdempotencyStore) Close() error { return nil }

func idempotentRouter(store shared.IdempotencyStore, status int, calls *int32) *gin.Engine {
	gin.SetMode(gin.TestMode)
	companyID := uuid.MustParse("00000000-0000-0000-0000-00000000c0de")
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(CompanyIDKey, companyID)
		c.Next()
	})
	r.Use(Idempotency(IdempotencyConfig{Store: store, Config: shared.DefaultIdempotencyConfig()}))
	handler := func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"call": n})
	}
	r.POST("/payments", handler)
	r.GET("/payments", handler)
	return r
}

func post(r *gin.Engine, method, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/payments", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	r := idempotentRouter(store, http.StatusCreated, &calls)

	first := post(r, http.MethodPost, "abc")
	second := post(r, http.MethodPost, "abc")

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(IdempotentReplayedHeader))
	assert.Empty(t, first.Header().Get(IdempotentReplayedHeader))
	assert.Equal(t, int32(1), calls)

	other := post(r, http.MethodPost, "xyz")
	assert.JSONEq(t, `{"call":2}`, other.Body.String())
}

func TestIdempotency_PassThrough(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	r := idempotentRouter(store, http.StatusOK, &calls)

	post(r, http.MethodPost, "")
	post(r, http.MethodPost, "")
	post(r, http.MethodGet, "k")
	post(r, http.MethodGet, "k")
	assert.Equal(t, int32(4), calls)
	assert.Equal(t, 0, store.Size())
}

func TestIdempotency_ServerErrorReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore()
	defer store.Close()
	var calls int32
	r := idempotentRouter(store, http.StatusServiceUnavailable, &calls)

	post(r, http.MethodPost, "retry-me")
	post(r, http.MethodPost, "retry-me")
	assert.Equal(t, int32(2), calls)
}

func TestIdempotency_InFlightConflict(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("Lookup", mock.Anything, mock.Anything).Return(nil, true, nil)
	var calls int32
	r := idempotentRouter(store, http.StatusCreated, &calls)

	rec := post(r, http.MethodPost, "busy")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_REQUEST_IN_PROGRESS")
	assert.Equal(t, int32(0), calls)
}

func TestIdempotency_LostReservationRace(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("Lookup", mock.Anything, mock.Anything).Return(nil, false, nil)
	store.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
	var calls int32
	r := idempotentRouter(store, http.StatusCreated, &calls)

	assert.Equal(t, http.StatusConflict, post(r, http.MethodPost, "race").Code)
	assert.Equal(t, int32(0), calls)
}

func TestIdempotency_StoreFailureFailsOpen(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("Lookup", mock.Anything, mock.Anything).Return(nil, false, errors.New("redis down"))
	var calls int32
	r := idempotentRouter(store, http.StatusCreated, &calls)

	assert.Equal(t, http.StatusCreated, post(r, http.MethodPost, "k").Code)
	assert.Equal(t, int32(1), calls)
	store.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotency_KeyScopedByCompany(t *testing.T) {
	store := new(MockIdempotencyStore)
	store.On("Lookup", mock.Anything, "00000000-0000-0000-0000-00000000c0de:/payments:k").Return(nil, false, nil)
	store.On("Reserve", mock.Anything, mock.Anything, 24*time.Hour).Return(true, nil)
	store.On("Complete", mock.Anything, mock.Anything, mock.MatchedBy(func(r shared.StoredResponse) bool {
		return r.Status == http.StatusCreated && strings.HasPrefix(r.ContentType, "application/json")
	}), 24*time.Hour).Return(nil)
	var calls int32
	r := idempotentRouter(store, http.StatusCreated, &calls)

	post(r, http.MethodPost, "k")
	store.AssertExpectations(t)
}

func TestIdempotency_RejectsOversizedKey(t *testing.T) {
	var calls int32
	r := idempotentRouter(cache.NewInMemoryIdempotencyStore(), http.StatusCreated, &calls)

	rec := post(r, http.MethodPost, strings.Repeat("k", 256))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), calls)
}
