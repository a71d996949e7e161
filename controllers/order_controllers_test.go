package controllers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
)

func TestCreateOrderIsIdempotent(t *testing.T) {
	env := setupEnv(t)
	body := map[string]interface{}{
		"payment_reference": "pay_dinein_1",
		"restaurant_id":     1,
		"table_id":          5,
		"type":              "dine_in",
		"items":             []map[string]interface{}{{"menu_item_id": 1, "quantity": 1, "special_instructions": "pedas"}},
		"tip_cents":         200,
	}

	w, env1 := env.do(t, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decode[models.Order](t, env1.Data)
	assert.EqualValues(t, 4700, first.TotalCents)
	assert.Equal(t, models.PaymentPending, first.PaymentStatus)

	body["items"] = []map[string]interface{}{{"menu_item_id": 1, "quantity": 5}}
	w, env2 := env.do(t, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[models.Order](t, env2.Data)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 4700, second.TotalCents, "the stored order is returned unchanged")
}

func TestCreateOrderValidation(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantHTTP int
		wantCode string
	}{
		{"no items", map[string]interface{}{"restaurant_id": 1}, http.StatusBadRequest, services.CodeValidationFailed},
		{"zero quantity", map[string]interface{}{"restaurant_id": 1, "items": []map[string]interface{}{{"menu_item_id": 1}}}, http.StatusBadRequest, services.CodeValidationFailed},
		{"unknown menu item", map[string]interface{}{"restaurant_id": 1, "items": []map[string]interface{}{{"menu_item_id": 42, "quantity": 1}}}, http.StatusBadRequest, services.CodeMenuItemUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := env.do(t, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.wantHTTP, w.Code, w.Body.String())
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestGetOrderNotFound(t *testing.T) {
	env := setupEnv(t)

	w, body := env.do(t, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeOrderNotFound, body.Code)

	w, body = env.do(t, http.MethodGet, "/orders/payment-reference/pay_nothing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeOrderNotFound, body.Code)
}
