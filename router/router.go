package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeremiapane/restaurant-reservation/controllers"
	"github.com/yeremiapane/restaurant-reservation/kds"
	"github.com/yeremiapane/restaurant-reservation/middlewares"
	"github.com/yeremiapane/restaurant-reservation/services"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	Core           *services.Core
	Hub            *kds.Hub
	Midtrans       *services.MidtransService
	Gatherer       prometheus.Gatherer
	PublicBaseURL  string
	AllowedOrigins []string
	// RequestsPerSecond per client IP; zero disables the limiter.
	RequestsPerSecond float64
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.SecurityHeaders())
	if d.RequestsPerSecond > 0 {
		limiter := middlewares.NewRateLimiter(d.RequestsPerSecond, int(d.RequestsPerSecond)*2+1, 10*time.Minute)
		r.Use(limiter.RateLimit())
	}

	reservationCtrl := controllers.NewReservationController(d.Core, d.PublicBaseURL)
	orderCtrl := controllers.NewOrderController(d.Core.Orders)
	paymentCtrl := controllers.NewPaymentController(d.Core.Payments, d.Midtrans)
	adminCtrl := controllers.NewAdminController(d.Core)
	kdsCtrl := controllers.NewKDSController(d.Hub, d.AllowedOrigins)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.POST("/reservations", reservationCtrl.Create)
	r.GET("/reservations/:id", reservationCtrl.Get)
	r.PATCH("/reservations/:id/status", reservationCtrl.UpdateStatus)
	r.POST("/reservations/:id/checkin", reservationCtrl.CheckIn)
	r.GET("/reservations/:id/checkin-qr", reservationCtrl.CheckInQR)

	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:id", orderCtrl.GetOrder)
	r.GET("/orders/payment-reference/:ref", orderCtrl.GetOrderByPaymentReference)

	payments := r.Group("/payments")
	payments.Use(middlewares.PaymentSecurityHeaders(), middlewares.PaymentRateLimiter(50, 100), middlewares.LogPaymentRequest())
	{
		payments.POST("/webhook", paymentCtrl.HandleWebhook)
	}

	// KDS displays authenticate with ?token= because browsers cannot set
	// headers on the websocket handshake.
	r.GET("/kds/ws", middlewares.WebSocketAuthMiddleware(), kdsCtrl.Connect)

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	admin := r.Group("/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRoles("owner", "staff"))
	{
		admin.GET("/restaurants/:id/reservations", adminCtrl.ListReservations)
		admin.PATCH("/reservations/:id/status", adminCtrl.UpdateStatus)
		admin.POST("/reservations/:id/complete", adminCtrl.Complete)
		admin.POST("/reservations/sweep", adminCtrl.Sweep)
		admin.POST("/payments/:ref/reconcile", paymentCtrl.Reconcile)
	}

	return r
}
