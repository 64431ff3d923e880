package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/backoffice/internal/domain/inventory"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/erp/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(method, path string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, nil)
	c.Set(middleware.RequestIDKey, "req-1")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.NewDomainError(shared.CodeNotFound, "Document not found"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"validation", shared.NewValidationError("qty must be positive"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"invalid transition", shared.NewInvalidTransitionError("COMPLETED", "CANCELLED"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"lock timeout", shared.ErrLockTimeout, http.StatusServiceUnavailable, dto.ErrCodeLockTimeout},
		{"register open", shared.ErrRegisterAlreadyOpen, http.StatusConflict, dto.ErrCodeRegisterAlreadyOpen},
		{"wrapped", fmt.Errorf("complete: %w", shared.ErrPaymentOverAllocation), http.StatusUnprocessableEntity, dto.ErrCodePaymentOverAllocation},
		{"unknown domain code", shared.NewDomainError("SOMETHING_ELSE", "odd"), http.StatusInternalServerError, "SOMETHING_ELSE"},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "/")
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternalMessages(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	(&BaseHandler{}).HandleError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
}

func TestBaseHandler_HandleErrorListsShortages(t *testing.T) {
	productID := uuid.New()
	err := fmt.Errorf("post: %w", inventory.NewInsufficientStockError(inventory.Shortage{
		ProductID:   productID,
		WarehouseID: uuid.New(),
		Requested:   decimal.NewFromInt(5),
		Available:   decimal.NewFromInt(2),
	}))

	c, w := newTestContext(http.MethodPost, "/")
	(&BaseHandler{}).HandleError(c, err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Error struct {
			Code    string               `json:"code"`
			Details []inventory.Shortage `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, dto.ErrCodeInsufficientStock, body.Error.Code)
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, productID, body.Error.Details[0].ProductID)
	assert.True(t, body.Error.Details[0].Requested.Equal(decimal.NewFromInt(5)))
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")
	(&BaseHandler{}).HandleError(c, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_ParamID(t *testing.T) {
	h := &BaseHandler{}

	t.Run("valid", func(t *testing.T) {
		id := uuid.New()
		c, _ := newTestContext(http.MethodGet, "/")
		c.Params = gin.Params{{Key: "id", Value: id.String()}}

		got, ok := h.ParamID(c, "id")
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("invalid", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		c.Params = gin.Params{{Key: "line_id", Value: "abc"}}

		_, ok := h.ParamID(c, "line_id")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
		assert.Equal(t, "Invalid line_id format", resp.Error.Message)
	})
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	c, w := newTestContext(http.MethodPost, "/")
	h.Created(c, map[string]string{"id": "x"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)

	c, w = newTestContext(http.MethodGet, "/")
	h.SuccessWithMeta(c, []int{1, 2}, 45, 2, 20)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
