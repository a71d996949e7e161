package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-reservation/controllers"
	"github.com/yeremiapane/restaurant-reservation/database"
	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const serverKey = "test-server-key"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.InitLogger("text", "error")
	os.Exit(m.Run())
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9]+`)

type testEnv struct {
	db       *gorm.DB
	clock    *services.ManualClock
	core     *services.Core
	midtrans *services.MidtransService
	router   *gin.Engine
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:ctrl_%s?mode=memory&cache=shared", unsafeName.ReplaceAllString(t.Name(), "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))

	require.NoError(t, db.Create(&models.Restaurant{ID: 1, Name: "Warung Senja", Timezone: "UTC"}).Error)
	require.NoError(t, db.Create(&models.Table{ID: 5, RestaurantID: 1, TableNumber: "T5", Capacity: 4, Status: models.TableAvailable}).Error)
	require.NoError(t, db.Create(&models.MenuItem{ID: 1, RestaurantID: 1, Name: "Nasi Goreng", PriceCents: 4500, Available: true}).Error)

	clock := services.NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	core := services.NewCore(database.NewGormStore(db), services.Options{
		Clock:      clock,
		Background: func(fn func()) { fn() },
	})
	midtrans := services.NewMidtransService(services.MidtransConfig{ServerKey: serverKey})

	r := gin.New()
	reservationCtrl := controllers.NewReservationController(core, "https://reserve.example.com/")
	orderCtrl := controllers.NewOrderController(core.Orders)
	paymentCtrl := controllers.NewPaymentController(core.Payments, midtrans)
	adminCtrl := controllers.NewAdminController(core)

	r.POST("/reservations", reservationCtrl.Create)
	r.GET("/reservations/:id", reservationCtrl.Get)
	r.PATCH("/reservations/:id/status", reservationCtrl.UpdateStatus)
	r.POST("/reservations/:id/checkin", reservationCtrl.CheckIn)
	r.GET("/reservations/:id/checkin-qr", reservationCtrl.CheckInQR)
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:id", orderCtrl.GetOrder)
	r.GET("/orders/payment-reference/:ref", orderCtrl.GetOrderByPaymentReference)
	r.POST("/payments/webhook", paymentCtrl.HandleWebhook)
	r.GET("/admin/restaurants/:id/reservations", adminCtrl.ListReservations)
	r.POST("/admin/reservations/:id/complete", adminCtrl.Complete)
	r.POST("/admin/reservations/sweep", adminCtrl.Sweep)

	return &testEnv{db: db, clock: clock, core: core, midtrans: midtrans, router: r}
}

type envelope struct {
	Status  bool            `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func (e *testEnv) hold(t *testing.T, hhmm string) models.Reservation {
	t.Helper()
	w, env := e.do(t, http.MethodPost, "/reservations", map[string]interface{}{
		"restaurant_id":    1,
		"table_id":         5,
		"party_size":       2,
		"date":             "2025-06-01",
		"time":             hhmm,
		"customer_name":    "Dewi",
		"customer_contact": "+62 812 0000 0000",
		"pre_order": map[string]interface{}{
			"items":     []map[string]interface{}{{"menu_item_id": 1, "quantity": 2}},
			"tip_cents": 500,
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Reservation](t, env.Data)
}

// notification builds a signed settlement notification for reservationID.
func (e *testEnv) notification(ref, reservationID, status string) map[string]string {
	n := map[string]string{
		"order_id":           ref,
		"transaction_status": status,
		"status_code":        "200",
		"gross_amount":       "95.00",
		"custom_field1":      reservationID,
	}
	n["signature_key"] = e.midtrans.Sign(n["order_id"], n["status_code"], n["gross_amount"])
	return n
}
