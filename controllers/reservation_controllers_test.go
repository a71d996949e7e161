package controllers_test

import (
	"bytes"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
)

func TestCreateReservation(t *testing.T) {
	env := setupEnv(t)

	res := env.hold(t, "19:00")
	assert.Equal(t, models.ReservationTentative, res.Status)
	require.NotNil(t, res.ExpiresAt)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC), res.ExpiresAt.UTC())
	require.NotNil(t, res.PreOrder)
	assert.Len(t, res.PreOrder.Items, 1)
}

func TestCreateReservationRejectsBadInput(t *testing.T) {
	env := setupEnv(t)

	tests := []struct {
		name     string
		body     map[string]interface{}
		wantHTTP int
		wantCode string
	}{
		{
			name:     "missing party size",
			body:     map[string]interface{}{"restaurant_id": 1, "date": "2025-06-01", "time": "19:00", "customer_name": "A", "customer_contact": "a@example.com"},
			wantHTTP: http.StatusBadRequest,
			wantCode: services.CodeValidationFailed,
		},
		{
			name:     "time in the past",
			body:     map[string]interface{}{"restaurant_id": 1, "party_size": 2, "date": "2025-06-01", "time": "09:00", "customer_name": "A", "customer_contact": "a@example.com"},
			wantHTTP: http.StatusBadRequest,
			wantCode: services.CodeValidationFailed,
		},
		{
			name:     "unknown table",
			body:     map[string]interface{}{"restaurant_id": 1, "table_id": 99, "party_size": 2, "date": "2025-06-01", "time": "19:00", "customer_name": "A", "customer_contact": "a@example.com"},
			wantHTTP: http.StatusNotFound,
			wantCode: services.CodeTableNotFound,
		},
		{
			name: "pre-order item not on the menu",
			body: map[string]interface{}{"restaurant_id": 1, "party_size": 2, "date": "2025-06-01", "time": "19:00", "customer_name": "A", "customer_contact": "a@example.com",
				"pre_order": map[string]interface{}{"items": []map[string]interface{}{{"menu_item_id": 999, "quantity": 1}}}},
			wantHTTP: http.StatusBadRequest,
			wantCode: services.CodeMenuItemUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := env.do(t, http.MethodPost, "/reservations", tt.body)
			assert.Equal(t, tt.wantHTTP, w.Code, w.Body.String())
			assert.False(t, body.Status)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestGetReservationAppliesExpiry(t *testing.T) {
	env := setupEnv(t)
	res := env.hold(t, "19:00")

	w, body := env.do(t, http.MethodGet, "/reservations/"+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReservationTentative, decode[models.Reservation](t, body.Data).Status)

	env.clock.Advance(16 * time.Minute)
	w, body = env.do(t, http.MethodGet, "/reservations/"+res.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReservationExpired, decode[models.Reservation](t, body.Data).Status)

	w, body = env.do(t, http.MethodGet, "/reservations/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeReservationNotFound, body.Code)
}

func TestUpdateReservationStatus(t *testing.T) {
	env := setupEnv(t)
	res := env.hold(t, "19:00")

	w, body := env.do(t, http.MethodPatch, "/reservations/"+res.ID+"/status", map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeInvalidReservationStatus, body.Code)

	w, body = env.do(t, http.MethodPatch, "/reservations/"+res.ID+"/status", map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ReservationCancelled, decode[models.Reservation](t, body.Data).Status)

	w, body = env.do(t, http.MethodPatch, "/reservations/"+res.ID+"/status", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, services.CodeInvalidReservationStatus, body.Code)

	w, body = env.do(t, http.MethodPatch, "/reservations/missing/status", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeReservationNotFound, body.Code)
}

func TestCancelInsideWindowIsDenied(t *testing.T) {
	env := setupEnv(t)
	res := env.hold(t, "19:00")

	w, _ := env.do(t, http.MethodPost, "/payments/webhook", env.notification("pay_win", res.ID, "settlement"))
	require.Equal(t, http.StatusOK, w.Code)

	w, body := env.do(t, http.MethodPatch, "/reservations/"+res.ID+"/status", map[string]string{"status": "cancelled"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, services.CodeCancellationWindowPassed, body.Code)
	assert.Contains(t, body.Message, "12 hours")
}

func TestCheckIn(t *testing.T) {
	env := setupEnv(t)
	res := env.hold(t, "19:00")

	w, body := env.do(t, http.MethodPost, "/reservations/"+res.ID+"/checkin", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, services.CodeInvalidState, body.Code)

	w, _ = env.do(t, http.MethodPost, "/payments/webhook", env.notification("pay_ci", res.ID, "settlement"))
	require.Equal(t, http.StatusOK, w.Code)

	w, body = env.do(t, http.MethodPost, "/reservations/"+res.ID+"/checkin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	seated := decode[models.Reservation](t, body.Data)
	assert.Equal(t, models.ReservationSeated, seated.Status)
	assert.True(t, seated.CustomerArrived)

	w, body = env.do(t, http.MethodPost, "/admin/reservations/"+res.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ReservationCompleted, decode[models.Reservation](t, body.Data).Status)

	var table models.Table
	require.NoError(t, env.db.First(&table, 5).Error)
	assert.Equal(t, models.TableAvailable, table.Status)
}

func TestCheckInQR(t *testing.T) {
	env := setupEnv(t)
	res := env.hold(t, "19:00")

	w, _ := env.do(t, http.MethodGet, "/reservations/"+res.ID+"/checkin-qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w, body := env.do(t, http.MethodGet, "/reservations/missing/checkin-qr", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, services.CodeReservationNotFound, body.Code)
}

func TestAdminListAndSweep(t *testing.T) {
	env := setupEnv(t)
	env.hold(t, "17:00")
	env.hold(t, "19:00")

	env.clock.Advance(20 * time.Minute)
	w, body := env.do(t, http.MethodPost, "/admin/reservations/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]int64](t, body.Data)["expired"])

	w, body = env.do(t, http.MethodGet, "/admin/restaurants/1/reservations?date=2025-06-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[[]models.Reservation](t, body.Data)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, models.ReservationExpired, r.Status)
	}

	w, body = env.do(t, http.MethodGet, "/admin/restaurants/1/reservations?date=June", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, services.CodeValidationFailed, body.Code)

	w, _ = env.do(t, http.MethodGet, "/admin/restaurants/abc/reservations?date=2025-06-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
