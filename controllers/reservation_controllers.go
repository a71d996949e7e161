package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/yeremiapane/restaurant-reservation/models"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

type ReservationController struct {
	Core *services.Core
	// PublicBaseURL prefixes the check-in link encoded in QR codes.
	PublicBaseURL string
}

func NewReservationController(core *services.Core, publicBaseURL string) *ReservationController {
	return &ReservationController{Core: core, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

type createReservationRequest struct {
	RestaurantID    uint             `json:"restaurant_id" binding:"required"`
	TableID         *uint            `json:"table_id"`
	PartySize       int              `json:"party_size" binding:"required"`
	Date            string           `json:"date" binding:"required"`
	Time            string           `json:"time" binding:"required"`
	CustomerName    string           `json:"customer_name" binding:"required"`
	CustomerContact string           `json:"customer_contact" binding:"required"`
	PreOrder        *models.PreOrder `json:"pre_order"`
}

type updateStatusRequest struct {
	Status models.ReservationStatus `json:"status" binding:"required"`
}

// Create -> POST /reservations, places a tentative hold.
func (rc *ReservationController) Create(c *gin.Context) {
	var body createReservationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, err.Error())
		return
	}

	res, err := rc.Core.Holds.CreateHold(c.Request.Context(), services.HoldRequest{
		RestaurantID:    body.RestaurantID,
		TableID:         body.TableID,
		PartySize:       body.PartySize,
		Date:            body.Date,
		Time:            body.Time,
		CustomerName:    body.CustomerName,
		CustomerContact: body.CustomerContact,
		PreOrder:        body.PreOrder,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Reservation held", res)
}

// Get -> GET /reservations/:id, with lazy expiration applied.
func (rc *ReservationController) Get(c *gin.Context) {
	res, err := rc.Core.Holds.GetHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation detail", res)
}

// UpdateStatus -> PATCH /reservations/:id/status. Cancellation is the only
// transition a caller may request; the rest are driven by payments and check-in.
func (rc *ReservationController) UpdateStatus(c *gin.Context) {
	cancelReservation(c, rc.Core)
}

func cancelReservation(c *gin.Context, core *services.Core) {
	var body updateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeValidationFailed, err.Error())
		return
	}
	if body.Status != models.ReservationCancelled {
		utils.RespondErrorCode(c, http.StatusBadRequest, services.CodeInvalidReservationStatus,
			fmt.Sprintf("status %q cannot be set directly", body.Status))
		return
	}

	res, err := core.Cancellation.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Reservation cancelled", res)
}

// CheckIn -> POST /reservations/:id/checkin
func (rc *ReservationController) CheckIn(c *gin.Context) {
	res, err := rc.Core.CheckIn.CheckIn(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Guest checked in", res)
}

// CheckInQR -> GET /reservations/:id/checkin-qr, a PNG the host scans on arrival.
func (rc *ReservationController) CheckInQR(c *gin.Context) {
	res, err := rc.Core.Holds.GetHold(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}

	url := fmt.Sprintf("%s/reservations/%s/checkin", rc.PublicBaseURL, res.ID)
	png, err := qrcode.Encode(url, qrcode.Medium, 256)
	if err != nil {
		RespondServiceError(c, fmt.Errorf("failed to generate QR code: %w", err))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
