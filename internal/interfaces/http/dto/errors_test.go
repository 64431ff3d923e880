package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeRegisterAlreadyOpen, http.StatusConflict},
		{ErrCodeLockTimeout, http.StatusServiceUnavailable},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInsufficientStock, http.StatusUnprocessableEntity},
		{ErrCodePaymentOverAllocation, http.StatusUnprocessableEntity},
		{ErrCodeCouponUnavailable, http.StatusUnprocessableEntity},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode_CoversDomainCodes(t *testing.T) {
	domainCodes := []string{
		shared.CodeNotFound,
		shared.CodeAlreadyExists,
		shared.CodeValidation,
		shared.CodeConcurrencyConflict,
		shared.CodeInvalidStateTransition,
		shared.CodeInsufficientStock,
		shared.CodeInsufficientBalance,
		shared.CodeIncompatibleUnits,
		shared.CodeCyclicUnitGraph,
		shared.CodeLockTimeout,
		shared.CodePaymentOverAllocation,
		shared.CodeCouponUnavailable,
		shared.CodeRegisterAlreadyOpen,
	}
	for _, code := range domainCodes {
		apiCode := NormalizeErrorCode(code)
		assert.NotEqual(t, code, apiCode, "domain code %s has no API code", code)
		_, ok := ErrorCodeHTTPStatus[apiCode]
		assert.True(t, ok, "API code %s has no HTTP status", apiCode)
	}
	assert.Equal(t, "CUSTOM_ERROR", NormalizeErrorCode("CUSTOM_ERROR"))
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithDetails(ErrCodeInsufficientStock, "short", "req-1", []map[string]string{{"product_id": "p"}})
	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	errInfo := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeInsufficientStock, errInfo["code"])
	assert.Equal(t, "req-1", errInfo["request_id"])
	assert.Len(t, errInfo["details"], 1)
	_, hasData := decoded["data"]
	assert.False(t, hasData)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}
