package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stoa-market/stoa-market-api/internal/apperrors"
)

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Health(c)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "stoa-market-api", resp["service"])
}

func TestReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := &Handlers{}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Ready(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"not found", apperrors.ErrNotFound, http.StatusNotFound},
		{"unauthorized", apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", apperrors.ErrForbidden, http.StatusForbidden},
		{"empty cart", apperrors.ErrEmptyCart, http.StatusBadRequest},
		{"products unavailable", apperrors.ErrProductsUnavailable, http.StatusConflict},
		{"invalid status", apperrors.ErrInvalidStatus, http.StatusBadRequest},
		{"insufficient stock", &apperrors.InsufficientStockError{ProductTitle: "Wool coat"}, http.StatusConflict},
		{"validation", apperrors.NewValidationError("quantity", "must be positive"), http.StatusBadRequest},
		{"persistence", &apperrors.PersistenceError{Op: "checkout", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			handleError(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestHandleError_InsufficientStockMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	handleError(c, &apperrors.InsufficientStockError{ProductTitle: "Wool coat"})

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "Wool coat")
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		raw    string
		wantID int64
		wantOK bool
	}{
		{"valid", "42", 42, true},
		{"zero", "0", 0, false},
		{"negative", "-3", 0, false},
		{"garbage", "abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.raw}}

			id, ok := pathID(c, "id")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, w.Code)
			}
		})
	}
}

func TestParsePrice(t *testing.T) {
	assert.Nil(t, parsePrice(""))
	assert.Nil(t, parsePrice("abc"))
	assert.Nil(t, parsePrice("-5"))

	p := parsePrice("19.90")
	require.NotNil(t, p)
	assert.Equal(t, "19.9", p.String())
}

func TestCheckoutOutcome(t *testing.T) {
	assert.Equal(t, "empty_cart", checkoutOutcome(apperrors.ErrEmptyCart))
	assert.Equal(t, "insufficient_stock", checkoutOutcome(apperrors.ErrProductsUnavailable))
	assert.Equal(t, "insufficient_stock", checkoutOutcome(&apperrors.InsufficientStockError{ProductTitle: "x"}))
	assert.Equal(t, "error", checkoutOutcome(errors.New("boom")))
}
