package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/settlement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusForKind(t *testing.T) {
	tests := []struct {
		kind     shared.ErrorKind
		expected int
	}{
		{shared.KindValidation, http.StatusUnprocessableEntity},
		{shared.KindState, http.StatusUnprocessableEntity},
		{shared.KindConcurrency, http.StatusConflict},
		{shared.KindNotFound, http.StatusNotFound},
		{shared.KindInvalidInput, http.StatusBadRequest},
		{shared.KindUnauthorized, http.StatusUnauthorized},
		{"", http.StatusInternalServerError},
		{"mystery", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusForKind(tt.kind))
		})
	}
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(41), resp.Meta.Total)
}

func TestNewSuccessResponseWithMeta_ZeroPageSize(t *testing.T) {
	resp := NewSuccessResponseWithMeta(nil, 10, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID("PERIOD_NOT_OPEN", "state", "period 2026-03 is locked", "req-1")

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errObj := decoded["error"].(map[string]any)
	assert.Equal(t, "PERIOD_NOT_OPEN", errObj["code"])
	assert.Equal(t, "state", errObj["kind"])
	assert.Equal(t, "req-1", errObj["request_id"])
	assert.NotContains(t, decoded, "data")
}

func TestListRequestNormalize(t *testing.T) {
	r := ListRequest{}.Normalize()
	assert.Equal(t, 1, r.Page)
	assert.Equal(t, 20, r.PageSize)

	r = ListRequest{Page: 3, PageSize: 50}.Normalize()
	assert.Equal(t, 3, r.Page)
	assert.Equal(t, 50, r.PageSize)
}
