package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

type OrderController struct {
	Orders *services.OrderMaterializer
}

func NewOrderController(orders *services.OrderMaterializer) *OrderController {
	return &OrderController{Orders: orders}
}

type createOrderRequest struct {
	PaymentReference string                   `json:"payment_reference"`
	RestaurantID     uint                     `json:"restaurant_id" binding:"required"`
	TableID          *uint                    `json:"table_id"`
	ReservationID    *string                  `json:"reservation_id"`
	Type             models.OrderType         `json:"type"`
	Items            []models.LineItemRequest `json:"items" binding:"required,dive"`
	TipCents         int64                    `json:"tip_cents"`
}

// CreateOrder -> POST /orders. Replaying the same payment reference returns
// the stored order with 200 instead of creating another one.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var body createOrderRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, err.Error())
		return
	}

	order, created, err := oc.Orders.Materialize(c.Request.Context(), body.PaymentReference, services.OrderSpec{
		RestaurantID:  body.RestaurantID,
		TableID:       body.TableID,
		ReservationID: body.ReservationID,
		Type:          body.Type,
		Items:         body.Items,
		TipCents:      body.TipCents,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if !created {
		utils.RespondJSON(c, http.StatusOK, "Order already exists", order)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrder -> GET /orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	order, err := oc.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

// GetOrderByPaymentReference -> GET /orders/payment-reference/:ref
func (oc *OrderController) GetOrderByPaymentReference(c *gin.Context) {
	order, err := oc.Orders.FindByPaymentReference(c.Request.Context(), c.Param("ref"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}
