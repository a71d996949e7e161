package controllers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

type PaymentController struct {
	Payments *services.PaymentHandler
	Midtrans *services.MidtransService
}

func NewPaymentController(payments *services.PaymentHandler, midtrans *services.MidtransService) *PaymentController {
	return &PaymentController{Payments: payments, Midtrans: midtrans}
}

// HandleWebhook -> POST /payments/webhook. Every notification that passes
// signature verification is acknowledged with 200, business no-ops included,
// so the processor stops redelivering. Only infrastructure failures return 5xx.
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, "failed to read request body")
		return
	}

	var notification services.MidtransNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, "invalid notification format")
		return
	}

	log := utils.InfoLogger.WithFields(logrus.Fields{
		"payment_reference":  notification.OrderID,
		"transaction_status": notification.TransactionStatus,
	})

	if !pc.Midtrans.ValidateSignature(notification.OrderID, notification.StatusCode, notification.GrossAmount, notification.SignatureKey) {
		log.Warn("payment notification with invalid signature")
		utils.RespondErrorCode(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "invalid signature")
		return
	}

	ev, final, err := notification.ToPaymentEvent()
	if err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, err.Error())
		return
	}
	if !final {
		log.Info("payment notification not final yet")
		utils.RespondJSON(c, http.StatusOK, "Notification received", nil)
		return
	}
	ev.Source = "webhook"

	pc.process(c, ev)
}

// Reconcile -> POST /admin/payments/:ref/reconcile. Polls the processor for
// a transaction whose notification never arrived and applies it.
func (pc *PaymentController) Reconcile(c *gin.Context) {
	status, err := pc.Midtrans.CheckTransactionStatus(c.Request.Context(), c.Param("ref"))
	if err != nil {
		utils.ErrorLogger.WithField("payment_reference", c.Param("ref")).WithError(err).Error("transaction status lookup failed")
		utils.RespondErrorCode(c, http.StatusBadGateway, "PROCESSOR_UNAVAILABLE", "failed to fetch transaction status")
		return
	}

	ev, final, err := status.ToPaymentEvent()
	if err != nil {
		utils.RespondErrorCode(c, http.StatusBadGateway, "PROCESSOR_UNAVAILABLE", err.Error())
		return
	}
	if !final {
		utils.RespondJSON(c, http.StatusOK, "Transaction not final yet", gin.H{"transaction_status": status.TransactionStatus})
		return
	}
	ev.Source = "reconcile"

	pc.process(c, ev)
}

func (pc *PaymentController) process(c *gin.Context, ev services.PaymentEvent) {
	result, err := pc.Payments.Handle(c.Request.Context(), ev)
	if err != nil {
		e, ok := services.AsError(err)
		if !ok {
			RespondServiceError(c, err)
			return
		}
		// Business rejections are settled out of band; the delivery itself succeeded.
		c.JSON(http.StatusOK, utils.JSONResponse{
			Status:  true,
			Code:    e.Code,
			Message: e.Message,
			Data:    result,
		})
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment processed", result)
}
