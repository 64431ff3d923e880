package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineBody struct {
	ProductID string          `json:"product_id" binding:"required,uuid"`
	Quantity  decimal.Decimal `json:"quantity" binding:"gt=0"`
	Note      string          `json:"note" binding:"max=5"`
}

func bindLine(body string) (*httptest.ResponseRecorder, bool) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req lineBody
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleValidationError(c, err)
		return w, false
	}
	return w, true
}

func TestValidation_DecimalAndTagNames(t *testing.T) {
	SetupValidator()

	_, ok := bindLine(`{"product_id":"1b4e28ba-2fa1-11d2-883f-0016d3cca427","quantity":"2.5"}`)
	assert.True(t, ok)

	w, ok := bindLine(`{"product_id":"nope","quantity":"0","note":"too long"}`)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error struct {
			Code    string                 `json:"code"`
			Details []dto.ValidationDetail `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

	messages := map[string]string{}
	for _, d := range resp.Error.Details {
		messages[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid UUID format", messages["product_id"])
	assert.Equal(t, "Must be greater than 0", messages["quantity"])
	assert.Equal(t, "Must be at most 5 characters", messages["note"])
}

func TestFormatValidationErrors_MalformedJSON(t *testing.T) {
	resp := FormatValidationErrors(errors.New("unexpected EOF"), "req-9")
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
	assert.Equal(t, "req-9", resp.Error.RequestID)
	assert.False(t, resp.Success)
}
